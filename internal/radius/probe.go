package radius

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

const (
	CodeCoARequest = 43 // Change-of-Authorization Request
	CodeCoAAck     = 44 // CoA-ACK
	CodeCoANak     = 45 // CoA-NAK
)

// ProbeResult contains the result of a NAS shared-secret probe.
type ProbeResult struct {
	Success     bool
	SecretValid bool
	SecretSet   bool
	ErrorMsg    string
}

// ProbeSecret verifies a stored NAS secret by sending a minimal CoA-Request.
// Either a CoA-ACK or a CoA-NAK proves the secret: a NAK means the NAS
// authenticated the request but found no matching session. Full CoA/DM
// support remains an extension point.
func ProbeSecret(nasIP string, secret string) ProbeResult {
	result := ProbeResult{}

	if secret == "" {
		result.ErrorMsg = "RADIUS secret not configured"
		return result
	}
	result.SecretSet = true

	// 3799 is the RFC 3576 port; some NAS implementations listen on 1700.
	for _, port := range []int{3799, 1700} {
		probe := sendCoAProbe(nasIP, port, secret)
		if probe.SecretValid {
			probe.SecretSet = true
			return probe
		}
	}

	result.ErrorMsg = "No CoA response - secret may be wrong or CoA not enabled"
	return result
}

func sendCoAProbe(nasIP string, coaPort int, secret string) ProbeResult {
	result := ProbeResult{}

	addr := fmt.Sprintf("%s:%d", nasIP, coaPort)
	conn, err := net.DialTimeout("udp", addr, 2*time.Second)
	if err != nil {
		result.ErrorMsg = fmt.Sprintf("Cannot connect to CoA port %d", coaPort)
		return result
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(2 * time.Second))

	if _, err = conn.Write(buildCoAProbePacket(secret)); err != nil {
		result.ErrorMsg = fmt.Sprintf("Failed to send CoA: %v", err)
		return result
	}

	response := make([]byte, 4096)
	n, err := conn.Read(response)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			result.ErrorMsg = "Timeout - no response"
			return result
		}
		result.ErrorMsg = fmt.Sprintf("Read error: %v", err)
		return result
	}

	if n >= 20 {
		switch response[0] {
		case CodeCoAAck:
			result.Success = true
			result.SecretValid = true
			result.ErrorMsg = fmt.Sprintf("CoA-ACK received (secret valid, port %d)", coaPort)
		case CodeCoANak:
			result.Success = true
			result.SecretValid = true
			result.ErrorMsg = "CoA-NAK received (secret valid, no matching session)"
		default:
			result.ErrorMsg = fmt.Sprintf("Unknown response code: %d", response[0])
		}
	}

	return result
}

// buildCoAProbePacket creates a minimal CoA-Request carrying only a
// NAS-IP-Address attribute.
func buildCoAProbePacket(secret string) []byte {
	packet := make([]byte, 0, 64)

	packet = append(packet, CodeCoARequest)
	packet = append(packet, 0x01)       // Identifier
	packet = append(packet, 0x00, 0x00) // Length placeholder

	authenticator := make([]byte, 16)
	packet = append(packet, authenticator...)

	// NAS-IP-Address = 0.0.0.0: Type=4, Length=6
	packet = append(packet, 4, 6, 0, 0, 0, 0)

	binary.BigEndian.PutUint16(packet[2:4], uint16(len(packet)))

	// Request Authenticator: MD5(Code + ID + Length + 16 zero bytes + Attributes + Secret)
	h := md5.New()
	h.Write(packet)
	h.Write([]byte(secret))
	copy(packet[4:20], h.Sum(nil))

	return packet
}
