package olt

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/openisp/naps/internal/naperr"
)

// fakeOLT scripts a minimal Telnet CLI: login dialogue, then a canned
// response per command.
type fakeOLT struct {
	listener  net.Listener
	password  string
	responses map[string]string
	pagerCmd  string // command answered in two pages
}

func newFakeOLT(t *testing.T, password string, responses map[string]string) *fakeOLT {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeOLT{listener: ln, password: password, responses: responses}
	go f.serve()
	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeOLT) port() int {
	return f.listener.Addr().(*net.TCPAddr).Port
}

func (f *fakeOLT) serve() {
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeOLT) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)

	conn.Write([]byte("\r\nUsername:"))
	if _, err := r.ReadString('\n'); err != nil {
		return
	}
	conn.Write([]byte("Password:"))
	pass, err := r.ReadString('\n')
	if err != nil {
		return
	}
	if strings.TrimSpace(pass) != f.password {
		conn.Write([]byte("\r\nAuthentication failed\r\nUsername:"))
		time.Sleep(time.Second)
		return
	}
	conn.Write([]byte("\r\nWelcome to ZXAN product line\r\nZXAN#"))

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(line)
		switch {
		case cmd == "exit" || cmd == "quit":
			return
		case cmd == f.pagerCmd:
			conn.Write([]byte("\r\npage-one\r\n--More--"))
			// The driver acknowledges the pager with a space.
			one := make([]byte, 1)
			if _, err := conn.Read(one); err != nil {
				return
			}
			conn.Write([]byte("\b\b\b\b\b\b\b\bpage-two\r\nZXAN#"))
		default:
			resp, ok := f.responses[cmd]
			if !ok {
				resp = "% Invalid input detected at '" + cmd + "' position"
			}
			conn.Write([]byte("\r\n" + resp + "\r\nZXAN#"))
		}
	}
}

func testConfig(f *fakeOLT, password string) Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           f.port(),
		Username:       "admin",
		Password:       password,
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    2 * time.Second,
		CmdDelay:       10 * time.Millisecond,
		PagerMax:       20,
	}
}

func TestDialRejectsMissingCredentials(t *testing.T) {
	_, err := Dial(context.Background(), Config{Host: "127.0.0.1"})
	if !naperr.IsKind(err, naperr.ConfigMissing) {
		t.Fatalf("want CONFIG_MISSING, got %v", err)
	}
}

func TestDialAuthFailure(t *testing.T) {
	f := newFakeOLT(t, "zxr10", nil)
	_, err := Dial(context.Background(), testConfig(f, "wrong"))
	if !naperr.IsKind(err, naperr.AuthFailed) {
		t.Fatalf("want AUTH_FAILED, got %v", err)
	}
	var ne *naperr.Error
	if !errors.As(err, &ne) {
		t.Fatal("not a typed error")
	}
	joined := strings.Join(ne.Diag, "\n")
	if !strings.Contains(joined, "banner=") {
		t.Errorf("diagnostics lack banner tail: %v", ne.Diag)
	}
	if strings.Contains(joined, "wrong") {
		t.Errorf("password leaked into diagnostics: %v", ne.Diag)
	}
}

func TestRunSuccess(t *testing.T) {
	f := newFakeOLT(t, "zxr10", map[string]string{
		"show card": "Rack Shelf Slot CfgType RealType Port",
		"conf t":    "",
	})
	s, err := Dial(context.Background(), testConfig(f, "zxr10"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()

	results, err := s.Run(context.Background(), []string{"show card", "conf t"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if !r.OK {
			t.Errorf("command %q classified as failed: %v", r.Command, r.Errors)
		}
	}
	if !strings.Contains(results[0].Output, "RealType") {
		t.Errorf("output lost: %q", results[0].Output)
	}
}

func TestRunStopsAtFailedCommand(t *testing.T) {
	f := newFakeOLT(t, "zxr10", map[string]string{
		"conf t": "",
	})
	s, err := Dial(context.Background(), testConfig(f, "zxr10"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()

	results, err := s.Run(context.Background(), []string{"conf t", "bogus command", "never sent"})
	if !naperr.IsKind(err, naperr.CliCommandFailed) {
		t.Fatalf("want CLI_COMMAND_FAILED, got %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (third command must not run)", len(results))
	}
	if results[1].OK {
		t.Error("failed command classified OK")
	}

	var ne *naperr.Error
	if !errors.As(err, &ne) {
		t.Fatal("not a typed error")
	}
	joined := strings.Join(ne.Diag, "\n")
	if !strings.Contains(joined, "command[1]=bogus command") {
		t.Errorf("diag lacks failing command: %v", ne.Diag)
	}
	if !strings.Contains(joined, "executed: conf t") {
		t.Errorf("diag lacks history: %v", ne.Diag)
	}
}

func TestRunFeedsPager(t *testing.T) {
	f := newFakeOLT(t, "zxr10", nil)
	f.pagerCmd = "show running-config"

	s, err := Dial(context.Background(), testConfig(f, "zxr10"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()

	results, err := s.Run(context.Background(), []string{"show running-config"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	out := results[0].Output
	if !strings.Contains(out, "page-one") || !strings.Contains(out, "page-two") {
		t.Errorf("paged output incomplete: %q", out)
	}
	if strings.Contains(out, "More") {
		t.Errorf("pager prompt leaked into output: %q", out)
	}
	if strings.Contains(out, "\b") {
		t.Errorf("backspaces not stripped: %q", out)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	f := newFakeOLT(t, "zxr10", map[string]string{"conf t": ""})
	s, err := Dial(context.Background(), testConfig(f, "zxr10"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := s.Run(ctx, []string{"conf t"})
	if err == nil {
		t.Fatal("cancelled run returned nil error")
	}
	if len(results) != 0 {
		t.Errorf("cancel before the first write reported %d results", len(results))
	}
}

func TestRunReportsWrittenCommandOnCancel(t *testing.T) {
	f := newFakeOLT(t, "zxr10", map[string]string{"conf t": ""})
	cfg := testConfig(f, "zxr10")
	cfg.CmdDelay = 500 * time.Millisecond
	s, err := Dial(context.Background(), cfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()

	// Cancel while the command's response is pending: the command went out
	// on the wire, so the result must mark it as possibly committed.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	results, err := s.Run(ctx, []string{"conf t"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want the written command reported", len(results))
	}
	if results[0].Command != "conf t" || !results[0].Indeterminate || results[0].OK {
		t.Errorf("written command reported as %+v, want indeterminate", results[0])
	}
}
