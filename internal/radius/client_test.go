package radius

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/rand"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/openisp/naps/internal/naperr"
	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
)

func TestUserPasswordRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		password string
	}{
		{"short", "testing123", "s3cret"},
		{"exactly_16", "testing123", "0123456789abcdef"},
		{"two_blocks", "testing123", "a-password-longer-than-16-bytes"},
		{"long_secret", "a-much-longer-shared-secret-value", "pw"},
		{"single_char", "s", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var auth [16]byte
			if _, err := rand.Read(auth[:]); err != nil {
				t.Fatal(err)
			}

			enc, err := radius.NewUserPassword([]byte(tt.password), []byte(tt.secret), auth[:])
			if err != nil {
				t.Fatalf("encrypt: %v", err)
			}
			if len(enc)%16 != 0 {
				t.Errorf("crypted User-Password length %d not a multiple of 16", len(enc))
			}

			dec, err := radius.UserPassword(enc, []byte(tt.secret), auth[:])
			if err != nil {
				t.Fatalf("decrypt: %v", err)
			}
			if string(dec) != tt.password {
				t.Errorf("round trip = %q, want %q", dec, tt.password)
			}
		})
	}
}

// fakeServer runs an in-process RADIUS responder. The handler receives the
// parsed request and returns the response packet, or nil to stay silent.
func fakeServer(t *testing.T, secret string, handler func(req *radius.Packet) *radius.Packet) (addr *net.UDPAddr, stop func()) {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 4096)
		for {
			n, from, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			req, err := radius.Parse(buf[:n], []byte(secret))
			if err != nil {
				continue
			}
			resp := handler(req)
			if resp == nil {
				continue
			}
			wire, err := resp.Encode()
			if err != nil {
				continue
			}
			conn.WriteTo(wire, from)
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr), func() {
		conn.Close()
		<-done
	}
}

func getAttr(p *radius.Packet, t radius.Type) []byte {
	for _, attr := range p.Attributes {
		if attr.Type == t {
			return attr.Attribute
		}
	}
	return nil
}

func TestAccessRequestPAPAccept(t *testing.T) {
	const secret = "testing123"

	addr, stop := fakeServer(t, secret, func(req *radius.Packet) *radius.Packet {
		username := rfc2865.UserName_GetString(req)
		password := rfc2865.UserPassword_GetString(req)

		if username == "alice" && password == "s3cret" {
			resp := req.Response(radius.CodeAccessAccept)
			rfc2865.ReplyMessage_SetString(resp, "Welcome")
			return resp
		}
		return req.Response(radius.CodeAccessReject)
	})
	defer stop()

	client := NewClient("127.0.0.1", addr.Port, secret, time.Second, 3)

	result, err := client.AccessRequestPAP(context.Background(), "alice", "s3cret", nil)
	if err != nil {
		t.Fatalf("PAP accept: %v", err)
	}
	if !result.OK {
		t.Error("expected ok=true")
	}
	if result.Code != "Access-Accept" {
		t.Errorf("code = %q, want Access-Accept", result.Code)
	}
	if result.ReplyMessage != "Welcome" {
		t.Errorf("reply_message = %q, want Welcome", result.ReplyMessage)
	}

	// Wrong password must come back as a clean reject, not an error.
	result, err = client.AccessRequestPAP(context.Background(), "alice", "wrong", nil)
	if err != nil {
		t.Fatalf("PAP reject: %v", err)
	}
	if result.OK {
		t.Error("expected ok=false for reject")
	}
	if result.Code != "Access-Reject" {
		t.Errorf("code = %q, want Access-Reject", result.Code)
	}
}

func TestAccessRequestCHAP(t *testing.T) {
	const secret = "testing123"
	const password = "chap-pass"

	addr, stop := fakeServer(t, secret, func(req *radius.Packet) *radius.Packet {
		chapPassword := getAttr(req, rfc2865.CHAPPassword_Type)
		challenge := getAttr(req, rfc2865.CHAPChallenge_Type)
		if len(chapPassword) != 17 || len(challenge) != 16 {
			return req.Response(radius.CodeAccessReject)
		}

		h := md5.New()
		h.Write(chapPassword[:1])
		h.Write([]byte(password))
		h.Write(challenge)
		if !bytes.Equal(chapPassword[1:], h.Sum(nil)) {
			return req.Response(radius.CodeAccessReject)
		}
		return req.Response(radius.CodeAccessAccept)
	})
	defer stop()

	client := NewClient("127.0.0.1", addr.Port, secret, time.Second, 3)

	result, err := client.AccessRequestCHAP(context.Background(), "bob", password, nil)
	if err != nil {
		t.Fatalf("CHAP: %v", err)
	}
	if !result.OK || result.Code != "Access-Accept" {
		t.Errorf("got (%v, %s), want accept", result.OK, result.Code)
	}

	result, err = client.AccessRequestCHAP(context.Background(), "bob", "wrong", nil)
	if err != nil {
		t.Fatalf("CHAP reject: %v", err)
	}
	if result.OK {
		t.Error("expected ok=false for bad CHAP password")
	}
}

func TestResponseAuthenticatorMutationDetected(t *testing.T) {
	const secret = "testing123"

	// Responder that corrupts one byte of an otherwise valid response.
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	go func() {
		buf := make([]byte, 4096)
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		req, err := radius.Parse(buf[:n], []byte(secret))
		if err != nil {
			return
		}
		resp := req.Response(radius.CodeAccessAccept)
		rfc2865.ReplyMessage_SetString(resp, "Welcome")
		wire, err := resp.Encode()
		if err != nil {
			return
		}
		wire[len(wire)-1] ^= 0x01
		conn.WriteTo(wire, from)
	}()

	addr := conn.LocalAddr().(*net.UDPAddr)
	client := NewClient("127.0.0.1", addr.Port, secret, time.Second, 1)

	_, err = client.AccessRequestPAP(context.Background(), "alice", "s3cret", nil)
	if err == nil {
		t.Fatal("expected error for mutated response")
	}
	if naperr.KindOf(err) != naperr.Protocol {
		t.Errorf("kind = %q, want PROTOCOL", naperr.KindOf(err))
	}
}

func TestRetrySameIdentifier(t *testing.T) {
	const secret = "testing123"

	var requests [][]byte
	addr, stop := fakeServer(t, secret, func(req *radius.Packet) *radius.Packet {
		wire, _ := req.Encode()
		requests = append(requests, wire)
		if len(requests) < 2 {
			return nil // drop the first request to force a resend
		}
		return req.Response(radius.CodeAccessAccept)
	})
	defer stop()

	client := NewClient("127.0.0.1", addr.Port, secret, 250*time.Millisecond, 3)

	result, err := client.AccessRequestPAP(context.Background(), "alice", "s3cret", nil)
	if err != nil {
		t.Fatalf("retry exchange: %v", err)
	}
	if !result.OK {
		t.Error("expected accept after retry")
	}
	if len(requests) < 2 {
		t.Fatalf("server saw %d requests, want >= 2", len(requests))
	}
	if !bytes.Equal(requests[0], requests[1]) {
		t.Error("resent packet differs from original; identifier/authenticator must be stable across retries")
	}
}

func TestRetryBudgetIsResends(t *testing.T) {
	const secret = "testing123"

	// Server that never answers: the client must send the initial request
	// plus exactly Retries resends before giving up.
	var seen int
	addr, stop := fakeServer(t, secret, func(req *radius.Packet) *radius.Packet {
		seen++
		return nil
	})
	defer stop()

	client := NewClient("127.0.0.1", addr.Port, secret, 100*time.Millisecond, 2)

	_, err := client.AccessRequestPAP(context.Background(), "alice", "s3cret", nil)
	if naperr.KindOf(err) != naperr.Unreachable {
		t.Fatalf("kind = %q, want UNREACHABLE", naperr.KindOf(err))
	}
	if seen != 3 {
		t.Errorf("server saw %d requests, want 3 (1 send + 2 resends)", seen)
	}
}

func TestTimeoutReportsBothAddresses(t *testing.T) {
	// Socket that never answers.
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	addr := conn.LocalAddr().(*net.UDPAddr)
	client := NewClient("127.0.0.1", addr.Port, "testing123", 100*time.Millisecond, 2)

	_, err = client.AccessRequestPAP(context.Background(), "alice", "s3cret", nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if naperr.KindOf(err) != naperr.Unreachable {
		t.Fatalf("kind = %q, want UNREACHABLE", naperr.KindOf(err))
	}

	var napErr *naperr.Error
	if !errors.As(err, &napErr) {
		t.Fatal("expected *naperr.Error")
	}
	var haveSrc, haveDst bool
	for _, line := range napErr.Diag {
		if len(line) > 4 && line[:4] == "src=" {
			haveSrc = true
		}
		if len(line) > 4 && line[:4] == "dst=" {
			haveDst = true
		}
	}
	if !haveSrc || !haveDst {
		t.Errorf("diagnostic lacks addresses: %v", napErr.Diag)
	}
}

func TestUnknownExtraAttributeSkipped(t *testing.T) {
	p := radius.New(radius.CodeAccessRequest, []byte("s"))
	applyExtraAttrs(p, []ExtraAttr{
		{Name: "No-Such-Attribute", Value: "x"},
		{Name: "NAS-Identifier", Value: "naps"},
		{VendorID: 14988, VendorType: 8, Raw: []byte("10M/10M")},
	})

	if got := rfc2865.NASIdentifier_GetString(p); got != "naps" {
		t.Errorf("NAS-Identifier = %q, want naps", got)
	}
	if vsa := getAttr(p, rfc2865.VendorSpecific_Type); len(vsa) != 4+2+len("10M/10M") {
		t.Errorf("VSA length = %d", len(vsa))
	}
}
