package server

import (
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crystal-mush/gomud/pkg/telnet"
)

// WebSocketHandler upgrades HTTP requests to WebSocket sessions. Each text
// message from the client carries one or more lines; output goes back as
// text messages with telnet negotiation removed.
func (s *Server) WebSocketHandler() http.Handler {
	origins := s.Conf.WSOrigins
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(origins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range origins {
				if strings.EqualFold(o, origin) {
					return true
				}
			}
			return false
		},
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.allow() {
			log.Printf("Refused websocket from %s: accept rate exceeded", r.RemoteAddr)
			http.Error(w, strings.TrimSpace(TooManyConnections), http.StatusServiceUnavailable)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("websocket upgrade error: %v", err)
			return
		}

		conn := &wsConn{ws: ws, addr: wsAddr(clientAddr(r))}
		if !s.post(event{kind: evAccept, conn: conn, transport: TransportWebSocket}) {
			conn.Close()
		}
	})
}

// clientAddr prefers X-Forwarded-For or X-Real-IP when behind a proxy.
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can be comma-separated; first entry is the real client
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

type wsAddr string

func (a wsAddr) Network() string { return "websocket" }
func (a wsAddr) String() string  { return string(a) }

// wsConn presents a WebSocket as a byte stream so it can back a
// Descriptor like any TCP connection. Read is called only by the reader
// goroutine and Write only by the event loop.
type wsConn struct {
	ws      *websocket.Conn
	addr    wsAddr
	pending []byte // unread remainder of the current message
}

func (c *wsConn) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		typ, msg, err := c.ws.ReadMessage()
		if err != nil {
			return 0, err
		}
		if typ != websocket.TextMessage && typ != websocket.BinaryMessage {
			continue
		}
		if len(msg) == 0 || msg[len(msg)-1] != '\n' {
			msg = append(msg, '\n')
		}
		c.pending = msg
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *wsConn) Write(p []byte) (int, error) {
	out := telnet.StripCommands(p)
	if len(out) == 0 {
		return len(p), nil
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, out); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error                       { return c.ws.Close() }
func (c *wsConn) LocalAddr() net.Addr                { return c.ws.LocalAddr() }
func (c *wsConn) RemoteAddr() net.Addr               { return c.addr }
func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

var _ net.Conn = (*wsConn)(nil)
