package server

import (
	"bytes"
	"context"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"
)

// startServer runs a loopback server with a fast processing tick until the
// test ends.
func startServer(t *testing.T, tweak func(*GameConf)) (*Server, context.CancelFunc, <-chan error) {
	t.Helper()
	gc := DefaultGameConf()
	gc.Bind = "127.0.0.1"
	gc.Port = 0
	gc.ProcessTickMS = 10
	gc.BcryptCost = bcrypt.MinCost
	if tweak != nil {
		tweak(gc)
	}
	s, err := NewServer(gc)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	stopped := make(chan struct{})
	go func() {
		errc <- s.Serve(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return s, cancel, errc
}

type client struct {
	t    *testing.T
	conn net.Conn
	buf  []byte
}

func dial(t *testing.T, addr net.Addr) *client {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn}
}

// expect reads until want has arrived and consumes output through it.
func (c *client) expect(want string) string {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	chunk := make([]byte, 1024)
	for {
		if i := bytes.Index(c.buf, []byte(want)); i >= 0 {
			seen := string(c.buf[:i+len(want)])
			c.buf = c.buf[i+len(want):]
			return seen
		}
		n, err := c.conn.Read(chunk)
		c.buf = append(c.buf, chunk[:n]...)
		if err != nil {
			c.t.Fatalf("waiting for %q: %v (have %q)", want, err, c.buf)
		}
	}
}

func (c *client) send(line string) {
	c.t.Helper()
	if _, err := io.WriteString(c.conn, line+"\r\n"); err != nil {
		c.t.Fatalf("send %q: %v", line, err)
	}
}

func (c *client) login(name string) {
	c.t.Helper()
	c.expect("What is your name? ")
	c.send(name)
	c.expect("Are you sure this is the name you want? ")
	c.send("y")
	c.expect("password:")
	c.send("secret1")
	c.expect("Confirm password:")
	c.send("secret1")
	c.expect("Choose your race from the above list: ")
	c.send("dwarf")
	c.expect("Choose your class from the above list: ")
	c.send("cleric")
	c.expect(`Be sure to reference the "help" command.`)
}

func TestServerLoginAndPlay(t *testing.T) {
	s, _, _ := startServer(t, nil)

	alice := dial(t, s.Addr())
	alice.login("Alice")
	bob := dial(t, s.Addr())
	bob.login("Bob")

	alice.send("say hi there")
	alice.expect("You say 'hi there'")
	bob.expect("Alice says 'hi there'")

	bob.send("who")
	out := bob.expect("2 player(s) online.")
	if !strings.Contains(out, "Alice") || !strings.Contains(out, "Bob") {
		t.Errorf("who output = %q", out)
	}

	bob.send("nsx")
	bob.expect("Unrecognized command nsx.")
	bob.send("ns")
	out = bob.expect("Alas, you cannot go that way.")
	if strings.Contains(out, "Unrecognized") {
		t.Errorf("speedwalk output = %q", out)
	}
	bob.expect("Alas, you cannot go that way.")

	alice.send("quit")
	alice.expect("Thanks for playing! Come back again soon!")
	alice.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.ReadAll(alice.conn); err != nil {
		t.Errorf("expected clean EOF after quit: %v", err)
	}

	var chars int
	if !s.Do(func() { chars = s.Chars.Len() }) {
		t.Fatal("Do failed on a running server")
	}
	if chars != 1 {
		t.Errorf("characters after quit = %d, want 1", chars)
	}
}

func TestServerShutdownNotifiesClients(t *testing.T) {
	s, cancel, errc := startServer(t, nil)

	c := dial(t, s.Addr())
	c.login("Alice")
	onboarding := dial(t, s.Addr())
	onboarding.expect("What is your name? ")

	cancel()
	c.expect("Server is shutting down now. Try back in a few minutes.")
	onboarding.expect("Server is shutting down now.")

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	if s.Do(func() {}) {
		t.Error("Do should fail after shutdown")
	}
	if _, err := net.Dial("tcp", s.Addr().String()); err == nil {
		t.Error("listener still accepting after shutdown")
	}
}

// lockedBuffer collects log output written from server goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServeLogsMudName(t *testing.T) {
	var logs lockedBuffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	_, cancel, errc := startServer(t, func(gc *GameConf) { gc.MudName = "Testland" })
	cancel()
	select {
	case <-errc:
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	if want := "Testland starting (" + VersionString() + ")"; !strings.Contains(logs.String(), want) {
		t.Errorf("log output %q does not contain %q", logs.String(), want)
	}
}

func TestServerPeerDisconnectCleansUp(t *testing.T) {
	s, _, _ := startServer(t, nil)

	c := dial(t, s.Addr())
	c.login("Alice")
	c.conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var count, chars int
		s.Do(func() { count, chars = s.Conns.Count(), s.Chars.Len() })
		if count == 0 && chars == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("descriptor not released after peer disconnect")
}

func TestAcceptRateLimit(t *testing.T) {
	s, _, _ := startServer(t, func(gc *GameConf) {
		gc.AcceptRate = 0.001
		gc.AcceptBurst = 1
	})

	first := dial(t, s.Addr())
	first.expect("What is your name? ")

	second := dial(t, s.Addr())
	second.expect("Too many connections, try again later.")
	second.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.ReadAll(second.conn); err != nil {
		t.Errorf("refused connection should be closed: %v", err)
	}
}

func TestWebSocketSession(t *testing.T) {
	s, _, _ := startServer(t, nil)
	ts := httptest.NewServer(s.WebSocketHandler())
	defer ts.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer ws.Close()

	var seen strings.Builder
	expect := func(want string) {
		t.Helper()
		ws.SetReadDeadline(time.Now().Add(5 * time.Second))
		for !strings.Contains(seen.String(), want) {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				t.Fatalf("waiting for %q: %v (have %q)", want, err, seen.String())
			}
			if bytes.IndexByte(msg, 0xFF) >= 0 {
				t.Errorf("telnet bytes leaked to websocket: %q", msg)
			}
			seen.Write(msg)
		}
		seen.Reset()
	}
	send := func(text string) {
		t.Helper()
		if err := ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	expect("What is your name? ")
	send("Carol")
	expect("Are you sure")
	send("yes")
	expect("password:")
	send("secret1")
	expect("Confirm password:")
	send("secret1")
	expect("Choose your race")
	send("half-orc")
	expect("Choose your class")
	send("thief")
	expect("Be sure to reference")

	send("score\nlook")
	expect("You are Carol, a half-orc thief.")
	expect("The Void")
}

func TestWebSocketOriginAllowlist(t *testing.T) {
	s, _, _ := startServer(t, func(gc *GameConf) {
		gc.WSOrigins = []string{"https://mud.example"}
	})
	ts := httptest.NewServer(s.WebSocketHandler())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	bad := http.Header{"Origin": []string{"https://evil.example"}}
	if _, resp, err := websocket.DefaultDialer.Dial(url, bad); err == nil {
		t.Fatal("foreign origin should be refused")
	} else if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("refusal response = %v", resp)
	}

	good := http.Header{"Origin": []string{"https://MUD.example"}}
	ws, _, err := websocket.DefaultDialer.Dial(url, good)
	if err != nil {
		t.Fatalf("allowed origin refused: %v", err)
	}
	ws.Close()
}
