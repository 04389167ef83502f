package radius

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/openisp/naps/internal/naperr"
	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
)

// Client issues Access-Requests against a FreeRADIUS server for
// authentication testing. It is a wire client only; accounting data is read
// from the SQL schema, not over the wire.
type Client struct {
	Host     string
	AuthPort int
	Secret   string
	Timeout  time.Duration
	Retries  int
}

// Result is the outcome of one Access-Request exchange.
type Result struct {
	OK           bool
	Code         string
	ReplyMessage string
	SrcAddr      string
	DstAddr      string
}

// NewClient creates a wire client with the given retry policy.
func NewClient(host string, authPort int, secret string, timeout time.Duration, retries int) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &Client{
		Host:     host,
		AuthPort: authPort,
		Secret:   secret,
		Timeout:  timeout,
		Retries:  retries,
	}
}

// AccessRequestPAP sends a PAP Access-Request. The User-Password attribute is
// crypted per RFC 2865 §5.2 (chained 16-byte MD5 blocks keyed on the shared
// secret and the request authenticator).
func (c *Client) AccessRequestPAP(ctx context.Context, username, password string, extra []ExtraAttr) (*Result, error) {
	p, err := c.newRequest(username, extra)
	if err != nil {
		return nil, err
	}
	if err := rfc2865.UserPassword_SetString(p, password); err != nil {
		return nil, naperr.Wrap(naperr.InvalidInput, err, "cannot encode User-Password")
	}
	return c.exchange(ctx, p)
}

// AccessRequestCHAP sends a CHAP Access-Request: CHAP-Password is
// ident || MD5(ident || password || challenge), CHAP-Challenge carries the
// 16-byte challenge.
func (c *Client) AccessRequestCHAP(ctx context.Context, username, password string, extra []ExtraAttr) (*Result, error) {
	p, err := c.newRequest(username, extra)
	if err != nil {
		return nil, err
	}

	var ident [1]byte
	var challenge [16]byte
	if _, err := rand.Read(ident[:]); err != nil {
		return nil, fmt.Errorf("failed to generate CHAP ident: %w", err)
	}
	if _, err := rand.Read(challenge[:]); err != nil {
		return nil, fmt.Errorf("failed to generate CHAP challenge: %w", err)
	}

	h := md5.New()
	h.Write(ident[:])
	h.Write([]byte(password))
	h.Write(challenge[:])

	chapPassword := make([]byte, 0, 17)
	chapPassword = append(chapPassword, ident[0])
	chapPassword = append(chapPassword, h.Sum(nil)...)

	p.Add(rfc2865.CHAPPassword_Type, chapPassword)
	p.Add(rfc2865.CHAPChallenge_Type, challenge[:])

	return c.exchange(ctx, p)
}

// newRequest builds an Access-Request with a fresh random authenticator and
// identifier, applies User-Name and the extra attributes.
func (c *Client) newRequest(username string, extra []ExtraAttr) (*radius.Packet, error) {
	if c.Host == "" || c.Secret == "" {
		return nil, naperr.New(naperr.ConfigMissing, "RADIUS host or secret not configured")
	}

	p := radius.New(radius.CodeAccessRequest, []byte(c.Secret))

	var ident [1]byte
	if _, err := rand.Read(ident[:]); err != nil {
		return nil, fmt.Errorf("failed to generate request identifier: %w", err)
	}
	p.Identifier = ident[0]

	if err := rfc2865.UserName_SetString(p, username); err != nil {
		return nil, naperr.Wrap(naperr.InvalidInput, err, "cannot encode User-Name")
	}

	applyExtraAttrs(p, extra)
	return p, nil
}

// exchange sends the encoded request and waits for an authentic response,
// resending the same bytes on timeout. The request authenticator is never
// regenerated between retries, so the server sees one request identity.
func (c *Client) exchange(ctx context.Context, p *radius.Packet) (*Result, error) {
	wire, err := p.Encode()
	if err != nil {
		return nil, naperr.Wrap(naperr.Protocol, err, "cannot encode request")
	}

	dst := net.JoinHostPort(c.Host, strconv.Itoa(c.AuthPort))
	conn, err := net.DialTimeout("udp", dst, c.Timeout)
	if err != nil {
		return nil, naperr.Wrap(naperr.Unreachable, err, "cannot open UDP socket to %s", dst)
	}
	defer conn.Close()

	src := conn.LocalAddr().String()
	buf := make([]byte, 4096)

	// One initial send plus Retries resends on timeout.
	for attempt := 0; attempt <= c.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		deadline := time.Now().Add(c.Timeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		conn.SetDeadline(deadline)

		if _, err := conn.Write(wire); err != nil {
			return nil, naperr.Wrap(naperr.Unreachable, err, "send failed").WithDiag(
				"src=" + src, "dst=" + dst,
			)
		}

		n, err := conn.Read(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return nil, naperr.Wrap(naperr.Unreachable, err, "read failed").WithDiag(
				"src=" + src, "dst=" + dst,
			)
		}

		return c.decodeResponse(buf[:n], wire, src, dst)
	}

	// Both addresses are reported to aid NAT/firewall diagnosis.
	return nil, naperr.New(naperr.Unreachable, "no response from RADIUS server").WithDiag(
		"src="+src, "dst="+dst,
		fmt.Sprintf("attempts=%d timeout=%s", c.Retries+1, c.Timeout),
	)
}

func (c *Client) decodeResponse(resp, request []byte, src, dst string) (*Result, error) {
	if len(resp) < 20 {
		return nil, naperr.New(naperr.Protocol, "short response (%d bytes)", len(resp)).WithDiag(
			"src="+src, "dst="+dst,
		)
	}

	// Response Authenticator MUST equal
	// MD5(Code||ID||Length||RequestAuth||Attrs||secret).
	if !radius.IsAuthenticResponse(resp, request, []byte(c.Secret)) {
		return nil, naperr.New(naperr.Protocol, "response authenticator mismatch").WithDiag(
			"src="+src, "dst="+dst,
		)
	}

	packet, err := radius.Parse(resp, []byte(c.Secret))
	if err != nil {
		return nil, naperr.Wrap(naperr.Protocol, err, "unparseable response").WithDiag(
			"src="+src, "dst="+dst,
		)
	}

	var messages []string
	for _, attr := range packet.Attributes {
		if attr.Type == rfc2865.ReplyMessage_Type {
			messages = append(messages, string(attr.Attribute))
		}
	}

	return &Result{
		OK:           packet.Code == radius.CodeAccessAccept,
		Code:         codeName(packet.Code),
		ReplyMessage: strings.Join(messages, "\n"),
		SrcAddr:      src,
		DstAddr:      dst,
	}, nil
}

func codeName(code radius.Code) string {
	switch code {
	case radius.CodeAccessRequest:
		return "Access-Request"
	case radius.CodeAccessAccept:
		return "Access-Accept"
	case radius.CodeAccessReject:
		return "Access-Reject"
	case radius.CodeAccessChallenge:
		return "Access-Challenge"
	case radius.CodeAccountingRequest:
		return "Accounting-Request"
	case radius.CodeAccountingResponse:
		return "Accounting-Response"
	}
	return fmt.Sprintf("Code-%d", int(code))
}
