package server

import (
	"log"
	"net"
	"strings"
	"time"

	"github.com/crystal-mush/gomud/pkg/game"
	"github.com/crystal-mush/gomud/pkg/telnet"
)

// TransportType identifies the kind of transport a Descriptor uses.
type TransportType int

const (
	TransportTCP       TransportType = iota // Telnet over TCP, cleartext or TLS
	TransportWebSocket                      // One or more lines per text message
)

func (t TransportType) String() string {
	if t == TransportWebSocket {
		return "websocket"
	}
	return "tcp"
}

// ConnState is where a connection is in its lifecycle.
type ConnState int

const (
	StateNone ConnState = iota // before the first transition
	StateGetName
	StateConfirmName
	StateGetPassword
	StateConfirmPassword
	StateGetRace
	StateGetClass
	StatePlaying
	StateClosing
)

var stateNames = map[ConnState]string{
	StateNone:            "none",
	StateGetName:         "get_name",
	StateConfirmName:     "confirm_name",
	StateGetPassword:     "get_password",
	StateConfirmPassword: "confirm_password",
	StateGetRace:         "get_race",
	StateGetClass:        "get_class",
	StatePlaying:         "playing",
	StateClosing:         "closing",
}

func (s ConnState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Descriptor is one client connection: its socket, onboarding state,
// bounded input queue and session data. All methods run on the server's
// event loop goroutine.
type Descriptor struct {
	Conn      net.Conn
	Addr      string
	Transport TransportType
	ConnTime  time.Time
	LastInput time.Time
	BytesSent int
	BytesRecv int
	Char      *game.Character // set on entering play

	id           int
	state        ConnState
	data         map[string]string
	queue        []string
	queueCap     int
	maxLine      int
	writeTimeout time.Duration
	decoder      telnet.Decoder
	question     func(answer string)
	closed       bool
	debug        bool
	metrics      *Metrics

	onState func(d *Descriptor, old, new ConnState)
	onClose func(d *Descriptor)
}

// NewDescriptor wraps a net.Conn into a Descriptor. The queue capacity,
// line limit and write timeout come from gc.
func NewDescriptor(id int, conn net.Conn, gc *GameConf) *Descriptor {
	now := time.Now()
	addr := ""
	if ra := conn.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return &Descriptor{
		Conn:         conn,
		Addr:         addr,
		ConnTime:     now,
		LastInput:    now,
		id:           id,
		data:         make(map[string]string),
		queueCap:     gc.InputQueueCap,
		maxLine:      gc.MaxLineLength,
		writeTimeout: gc.WriteDeadline(),
		debug:        gc.Debug,
	}
}

// ID returns the connection number.
func (d *Descriptor) ID() int { return d.id }

// State returns the current connection state.
func (d *Descriptor) State() ConnState { return d.state }

// SetState moves to s and reports the transition, even when s equals the
// current state; re-entering an onboarding state asks its question again.
func (d *Descriptor) SetState(s ConnState) {
	old := d.state
	d.state = s
	if d.onState != nil {
		d.onState(d, old, s)
	}
}

// Data returns the session's key/value bag.
func (d *Descriptor) Data() map[string]string { return d.data }

// Idle returns the time since the last line arrived.
func (d *Descriptor) Idle() time.Duration { return time.Since(d.LastInput) }

// Write sends msg as is. A failed write closes the connection.
func (d *Descriptor) Write(msg string) {
	d.writeRaw([]byte(msg))
}

func (d *Descriptor) writeRaw(b []byte) {
	if d.closed || len(b) == 0 {
		return
	}
	if d.writeTimeout > 0 {
		d.Conn.SetWriteDeadline(time.Now().Add(d.writeTimeout))
	}
	n, err := d.Conn.Write(b)
	d.BytesSent += n
	d.metrics.sent(n)
	if err != nil {
		log.Printf("[%d] Write error: %v", d.id, err)
		d.Close()
	}
}

// Question sends prompt and hands the next line to answer instead of
// queueing it.
func (d *Descriptor) Question(prompt string, answer func(string)) {
	d.question = answer
	d.Write(prompt)
}

// Prompt shows text and then re-echoes whatever the user had typed but
// not yet sent, so output arriving mid-line does not swallow it.
func (d *Descriptor) Prompt(text string) {
	d.Write(text)
	if partial := d.decoder.Partial(); partial != "" {
		d.Write(partial)
	}
}

// SuppressEcho asks the client to stop echoing typed characters.
func (d *Descriptor) SuppressEcho() { d.writeRaw(telnet.EchoOff()) }

// RestoreEcho gives local echo back to the client.
func (d *Descriptor) RestoreEcho() { d.writeRaw(telnet.EchoOn()) }

// ReadFromBuffer pops the oldest queued line.
func (d *Descriptor) ReadFromBuffer() (string, bool) {
	if len(d.queue) == 0 {
		return "", false
	}
	line := d.queue[0]
	d.queue = d.queue[1:]
	return line, true
}

// QueueLen returns the number of lines waiting to be processed.
func (d *Descriptor) QueueLen() int { return len(d.queue) }

// feed pushes raw bytes from the socket through the telnet decoder.
func (d *Descriptor) feed(p []byte) {
	d.BytesRecv += len(p)
	d.metrics.received(len(p))
	for _, line := range d.decoder.Feed(p) {
		if d.closed {
			return
		}
		d.receive(line)
	}
	if !d.closed && d.maxLine > 0 && d.decoder.Pending() > d.maxLine {
		d.Write("\r\nLine too long. Closing connection...\r\n")
		log.Printf("[%d] Input line exceeded %d bytes", d.id, d.maxLine)
		d.Close()
	}
}

// receive handles one complete line: an outstanding question gets it,
// otherwise it joins the queue. Filling the queue closes the connection.
func (d *Descriptor) receive(line string) {
	d.LastInput = time.Now()

	if answer := d.question; answer != nil {
		d.question = nil
		answer(line)
		return
	}
	if line == "" {
		return
	}
	if d.debug {
		log.Printf("[%d] INPUT %q", d.id, line)
	}

	d.queue = append(d.queue, strings.TrimSpace(line))
	if len(d.queue) >= d.queueCap {
		d.Write("\r\nToo much input too fast. Fix your client to rate limit input.\r\nClosing connection...\r\n")
		log.Printf("[%d] Input queue reached %d lines, disconnecting %s", d.id, d.queueCap, d.charName())
		d.metrics.flood()
		d.Close()
	}
}

func (d *Descriptor) charName() string {
	if name := d.data[game.KeyName]; name != "" {
		return name
	}
	return "(null)"
}

// Close shuts the connection down. Safe to call repeatedly; cleanup runs
// once.
func (d *Descriptor) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.SetState(StateClosing)
	d.Conn.Close()
	d.queue = nil
	d.question = nil
	d.decoder.Reset()
	if d.onClose != nil {
		d.onClose(d)
	}
}

// IsClosed returns whether the connection has been closed.
func (d *Descriptor) IsClosed() bool { return d.closed }

var _ game.Session = (*Descriptor)(nil)
