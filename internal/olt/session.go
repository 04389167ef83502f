package olt

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/openisp/naps/internal/naperr"
)

// Config carries the Telnet endpoint and pacing knobs for one session.
type Config struct {
	Host           string
	Port           int
	Username       string
	Password       string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	CmdDelay       time.Duration
	PagerMax       int
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 23
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 12 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 8 * time.Second
	}
	if c.CmdDelay == 0 {
		c.CmdDelay = 500 * time.Millisecond
	}
	if c.PagerMax == 0 {
		c.PagerMax = 20
	}
}

// Session is one Telnet connection to an OLT. Not safe for concurrent use;
// every intent opens its own session and closes it on every exit path.
type Session struct {
	conn net.Conn
	cfg  Config
}

var (
	loginPrompts    = []string{"Username:", "Login:", "login:"}
	passwordPrompts = []string{"Password:", "password:"}
	authFailMarkers = []string{"Authentication failed", "Login incorrect", "Access denied"}
	pagerMarkers    = []string{"---- More ----", "--More--", "More"}
)

// Dial opens a Telnet session and walks the login dialogue. Authentication
// failure surfaces AUTH_FAILED with the tail of the device banner; the
// password itself is never part of any error.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	cfg.applyDefaults()
	if cfg.Username == "" || cfg.Password == "" {
		return nil, naperr.New(naperr.ConfigMissing,
			"no telnet credentials for %s (set device credentials or the company default)", cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, naperr.Wrap(naperr.Unreachable, err, "telnet connect failed").
			WithDiag("dst=" + addr)
	}

	s := &Session{conn: conn, cfg: cfg}

	if _, err := s.readUntil(ctx, loginPrompts, nil); err != nil {
		conn.Close()
		return nil, naperr.Wrap(naperr.Protocol, err, "no login prompt from %s", addr)
	}
	if err := s.writeLine(cfg.Username); err != nil {
		conn.Close()
		return nil, naperr.Wrap(naperr.Unreachable, err, "telnet write failed").WithDiag("dst=" + addr)
	}
	if _, err := s.readUntil(ctx, passwordPrompts, nil); err != nil {
		conn.Close()
		return nil, naperr.Wrap(naperr.Protocol, err, "no password prompt from %s", addr)
	}
	if err := s.writeLine(cfg.Password); err != nil {
		conn.Close()
		return nil, naperr.Wrap(naperr.Unreachable, err, "telnet write failed").WithDiag("dst=" + addr)
	}

	// Success is a shell prompt; a repeated Username: prompt or an explicit
	// failure marker means the credentials were rejected.
	banner, err := s.readUntil(ctx, shellPrompts(), append(authFailMarkers, loginPrompts...))
	if err != nil {
		conn.Close()
		if naperr.IsKind(err, naperr.AuthFailed) {
			return nil, naperr.New(naperr.AuthFailed, "telnet login rejected by %s", addr).
				WithDiag("banner=" + bannerTail(banner))
		}
		return nil, naperr.Wrap(naperr.Protocol, err, "no shell prompt from %s", addr)
	}

	return s, nil
}

func shellPrompts() []string { return []string{">", "#", "$"} }

// bannerTail keeps the last 300 bytes of banner output for diagnostics.
func bannerTail(banner string) string {
	banner = strings.TrimSpace(banner)
	if len(banner) > 300 {
		banner = banner[len(banner)-300:]
	}
	return banner
}

// Run executes commands in order, classifying each response before the next
// command is written. It stops at the first failed command and returns the
// results gathered so far together with a CLI_COMMAND_FAILED error carrying
// the command index, the matching error lines and the executed history.
func (s *Session) Run(ctx context.Context, commands []string) ([]CommandResult, error) {
	results := make([]CommandResult, 0, len(commands))

	for i, cmd := range commands {
		if err := s.pause(ctx, 0); err != nil {
			return results, err
		}
		if err := s.writeLine(cmd); err != nil {
			return results, naperr.Wrap(naperr.Unreachable, err, "telnet write failed at command %d", i).
				WithDiag("command=" + cmd)
		}
		// The command is on the wire from here. Record it before waiting so
		// a cancellation mid-response still reports it as possibly committed.
		results = append(results, CommandResult{Index: i, Command: cmd, Indeterminate: true})
		cur := &results[len(results)-1]

		if err := s.pause(ctx, s.cfg.CmdDelay); err != nil {
			return results, err
		}

		output, err := s.drain(ctx)
		if err != nil {
			return results, err
		}

		errLines := Classify(output)
		cur.Output, cur.Errors = output, errLines
		cur.OK, cur.Indeterminate = len(errLines) == 0, false

		if !cur.OK {
			diag := []string{
				fmt.Sprintf("command[%d]=%s", i, cmd),
			}
			for _, line := range errLines {
				diag = append(diag, "device: "+line)
			}
			for _, prev := range results[:len(results)-1] {
				diag = append(diag, "executed: "+prev.Command)
			}
			return results, naperr.New(naperr.CliCommandFailed,
				"command %d (%s) rejected by device", i, cmd).WithDiag(diag...)
		}
	}
	return results, nil
}

// Close logs out best-effort. A failed logout never overrides the primary
// error path, so it only warns.
func (s *Session) Close() error {
	s.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := s.writeLine("exit"); err == nil {
		_ = s.writeLine("quit")
	} else {
		log.Printf("Warning: telnet logout write failed: %v", err)
	}
	return s.conn.Close()
}

func (s *Session) writeLine(line string) error {
	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.ReadTimeout))
	_, err := s.conn.Write([]byte(line + "\n"))
	return err
}

// pause sleeps for d while honouring cancellation. d of zero only checks.
func (s *Session) pause(ctx context.Context, d time.Duration) error {
	if d == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// readUntil accumulates output until the stream ends with one of want. A
// hit on fail returns AUTH_FAILED with the output gathered so far.
func (s *Session) readUntil(ctx context.Context, want, fail []string) (string, error) {
	deadline := time.Now().Add(s.cfg.ReadTimeout)
	var buf []byte
	chunk := make([]byte, 4096)

	for {
		if err := ctx.Err(); err != nil {
			return string(buf), err
		}
		if time.Now().After(deadline) {
			return string(buf), fmt.Errorf("timed out waiting for %v", want)
		}
		s.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, err := s.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, stripTelnetControls(s.conn, chunk[:n])...)
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return string(buf), err
		}

		text := string(buf)
		for _, marker := range fail {
			if strings.Contains(text, marker) {
				return text, naperr.New(naperr.AuthFailed, "device reported %q", marker)
			}
		}
		// Prompts are only valid at the tail of the stream; markers inside
		// the banner body do not count.
		tail := strings.TrimRight(text, " \t")
		for _, marker := range want {
			if strings.HasSuffix(tail, marker) {
				return text, nil
			}
		}
	}
}

// drain reads a command's full response, feeding the pager until it stops
// asking or the iteration cap is hit. A quiet socket ends the read.
func (s *Session) drain(ctx context.Context) (string, error) {
	var buf []byte
	chunk := make([]byte, 4096)
	pages := 0
	deadline := time.Now().Add(s.cfg.ReadTimeout)

	for {
		if err := ctx.Err(); err != nil {
			return string(buf), err
		}
		if time.Now().After(deadline) {
			break
		}
		s.conn.SetReadDeadline(time.Now().Add(400 * time.Millisecond))
		n, err := s.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, stripTelnetControls(s.conn, chunk[:n])...)

			if pages < s.cfg.PagerMax && containsAny(string(buf), pagerMarkers) {
				// The device erases the More line with backspaces after
				// the space; those are stripped below.
				pages++
				s.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
				if _, werr := s.conn.Write([]byte(" ")); werr != nil {
					return stripBackspaces(string(buf)), naperr.Wrap(naperr.Unreachable, werr, "pager write failed")
				}
				buf = []byte(dropPagerPrompts(string(buf)))
				deadline = time.Now().Add(s.cfg.ReadTimeout)
			}
			continue
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				// Quiet socket: the response is complete.
				break
			}
			return stripBackspaces(string(buf)), naperr.Wrap(naperr.Unreachable, err, "telnet read failed")
		}
	}
	return stripBackspaces(string(buf)), nil
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// dropPagerPrompts removes pager prompt text so one More line is never
// counted twice across reads.
func dropPagerPrompts(text string) string {
	for _, m := range pagerMarkers {
		text = strings.ReplaceAll(text, m, "")
	}
	return text
}

func stripBackspaces(s string) string {
	return strings.ReplaceAll(s, "\b", "")
}

// stripTelnetControls drops IAC negotiation from the stream, refusing every
// option the device offers or demands. OLT CLIs work fine in the resulting
// dumb-terminal mode.
func stripTelnetControls(conn net.Conn, data []byte) []byte {
	const (
		iac  = 255
		dont = 254
		do   = 253
		wont = 252
		will = 251
		sb   = 250
		se   = 240
	)
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != iac || i+1 >= len(data) {
			if data[i] != iac {
				out = append(out, data[i])
			}
			continue
		}
		switch data[i+1] {
		case do, will:
			if i+2 < len(data) {
				reply := byte(wont)
				if data[i+1] == will {
					reply = dont
				}
				conn.Write([]byte{iac, reply, data[i+2]})
				i += 2
			}
		case dont, wont:
			if i+2 < len(data) {
				i += 2
			}
		case sb:
			for i+1 < len(data) && data[i+1] != se {
				i++
			}
			i++
		default:
			i++
		}
	}
	return out
}
