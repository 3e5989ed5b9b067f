package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/crystal-mush/gomud/pkg/commands"
	"github.com/crystal-mush/gomud/pkg/game"
	"github.com/crystal-mush/gomud/pkg/interp"
)

const (
	// ShutdownMessage is sent to every connection when the server stops.
	ShutdownMessage = "\r\nServer is shutting down now. Try back in a few minutes.\r\n"
	// TooManyConnections is sent to connections refused by the accept limiter.
	TooManyConnections = "Too many connections, try again later.\r\n"

	eventQueueLen = 256
	readBufSize   = 4096
)

type eventKind int

const (
	evAccept eventKind = iota // new connection, not yet a descriptor
	evData                    // bytes read from a descriptor
	evEOF                     // a descriptor's reader stopped
	evFunc                    // run fn on the loop
)

type event struct {
	kind      eventKind
	conn      net.Conn
	transport TransportType
	d         *Descriptor
	data      []byte
	err       error
	fn        func()
}

// Server is the main game server. All game state is owned by a single
// event loop goroutine; listeners and per-connection readers only post
// events to it.
type Server struct {
	Conf    *GameConf
	Chars   *game.Registry
	Conns   *ConnManager
	Interp  *interp.Interpreter
	Sched   *Scheduler
	Texts   *TextFiles
	Metrics *Metrics

	listener    net.Listener
	tlsListener net.Listener
	wsListener  net.Listener
	wsServer    *http.Server
	metricsSrv  *http.Server
	limiter     *rate.Limiter

	events   chan event
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer wires up a server from gc. Nothing listens until Listen.
func NewServer(gc *GameConf) (*Server, error) {
	if err := gc.Validate(); err != nil {
		return nil, err
	}

	chars := game.NewRegistry()
	metrics := NewMetrics(time.Now())

	it := interp.New(commands.Default(chars), gc.Aliases)
	it.OnDispatch = metrics.Command
	it.OnUnknown = metrics.Unknown

	cm := NewConnManager(gc, chars)
	cm.Metrics = metrics
	if gc.TextDir != "" {
		cm.Texts = LoadTextFiles(gc.TextDir)
	}

	s := &Server{
		Conf:    gc,
		Chars:   chars,
		Conns:   cm,
		Interp:  it,
		Sched:   NewScheduler(cm, it, gc),
		Texts:   cm.Texts,
		Metrics: metrics,
		events:  make(chan event, eventQueueLen),
		done:    make(chan struct{}),
	}
	if gc.AcceptRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(gc.AcceptRate), max(gc.AcceptBurst, 1))
	}
	return s, nil
}

// Listen opens every configured listener.
func (s *Server) Listen() error {
	gc := s.Conf
	if gc.IsCleartext() {
		ln, err := net.Listen("tcp", net.JoinHostPort(gc.Bind, fmt.Sprint(gc.Port)))
		if err != nil {
			return fmt.Errorf("cleartext listener: %w", err)
		}
		s.listener = ln
		log.Printf("Listening (cleartext) on %s", ln.Addr())
	}

	if gc.TLS {
		cert, err := tls.LoadX509KeyPair(gc.TLSCert, gc.TLSKey)
		if err != nil {
			s.closeListeners()
			return fmt.Errorf("TLS cert load: %w", err)
		}
		tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}}
		ln, err := tls.Listen("tcp", net.JoinHostPort(gc.Bind, fmt.Sprint(gc.TLSListenPort())), tlsCfg)
		if err != nil {
			s.closeListeners()
			return fmt.Errorf("TLS listener: %w", err)
		}
		s.tlsListener = ln
		log.Printf("Listening (TLS) on %s", ln.Addr())
	}

	if gc.WebSocketPort > 0 {
		ln, err := net.Listen("tcp", net.JoinHostPort(gc.Bind, fmt.Sprint(gc.WebSocketPort)))
		if err != nil {
			s.closeListeners()
			return fmt.Errorf("websocket listener: %w", err)
		}
		s.wsListener = ln
		mux := http.NewServeMux()
		mux.Handle("/ws", s.WebSocketHandler())
		s.wsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		log.Printf("Listening (websocket) on %s", ln.Addr())
	}

	if gc.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.Metrics.Handler())
		s.metricsSrv = &http.Server{
			Addr:              net.JoinHostPort(gc.Bind, fmt.Sprint(gc.MetricsPort)),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return nil
}

// Addr returns the cleartext listener's address, or nil if it is disabled.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the accept loops and the event loop until ctx is canceled,
// then shuts down and waits for every goroutine it started.
func (s *Server) Serve(ctx context.Context) error {
	log.Printf("%s starting (%s)", s.Conf.MudName, VersionString())

	if s.Texts != nil {
		if err := s.Texts.Watch(ctx); err != nil {
			log.Printf("WARNING: Could not watch text directory %s: %v", s.Conf.TextDir, err)
		}
	}

	for _, ln := range []net.Listener{s.listener, s.tlsListener} {
		if ln == nil {
			continue
		}
		s.wg.Add(1)
		go s.acceptLoop(ln)
	}
	if s.wsServer != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.wsServer.Serve(s.wsListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("WebSocket server error: %v", err)
			}
		}()
	}
	if s.metricsSrv != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			log.Printf("Metrics listening on %s", s.metricsSrv.Addr)
			if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	s.run(ctx)
	s.wg.Wait()
	s.drain()
	log.Printf("Server stopped")
	return nil
}

// Start listens and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Do runs fn on the event loop and waits for it. It returns false if the
// server has stopped.
func (s *Server) Do(fn func()) bool {
	ran := make(chan struct{})
	if !s.post(event{kind: evFunc, fn: func() { fn(); close(ran) }}) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-s.done:
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}

// run is the event loop. Every mutation of connection and game state
// happens here.
func (s *Server) run(ctx context.Context) {
	ticker := time.NewTicker(s.Conf.ProcessTick())
	defer ticker.Stop()
	world := time.NewTimer(s.Sched.NextWorldTick())
	defer world.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case ev := <-s.events:
			s.handle(ev)
		case <-ticker.C:
			s.Sched.ProcessTick()
		case <-world.C:
			s.Sched.WorldTick()
			world.Reset(s.Sched.NextWorldTick())
		}
	}
}

func (s *Server) handle(ev event) {
	switch ev.kind {
	case evAccept:
		d := s.Conns.Accept(ev.conn, ev.transport)
		if d.IsClosed() {
			return
		}
		s.wg.Add(1)
		go s.readLoop(d, ev.conn)
	case evData:
		if !ev.d.IsClosed() {
			ev.d.feed(ev.data)
		}
	case evEOF:
		if !ev.d.IsClosed() {
			if ev.err != nil && !errors.Is(ev.err, net.ErrClosed) {
				log.Printf("[%d] Read error: %v", ev.d.id, ev.err)
			}
			ev.d.Close()
		}
	case evFunc:
		ev.fn()
	}
}

// post hands ev to the event loop. It fails once shutdown has begun.
func (s *Server) post(ev event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// acceptLoop accepts connections on ln until it is closed.
func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Accept error: %v", err)
			continue
		}
		s.admit(conn, TransportTCP)
	}
}

// admit passes conn to the event loop unless the accept limiter refuses it.
func (s *Server) admit(conn net.Conn, t TransportType) {
	if !s.allow() {
		log.Printf("Refused connection from %s: accept rate exceeded", conn.RemoteAddr())
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		conn.Write([]byte(TooManyConnections))
		conn.Close()
		return
	}
	if !s.post(event{kind: evAccept, conn: conn, transport: t}) {
		conn.Close()
	}
}

func (s *Server) allow() bool {
	return s.limiter == nil || s.limiter.Allow()
}

// readLoop copies bytes from conn to the event loop until the connection
// fails or is closed.
func (s *Server) readLoop(d *Descriptor, conn net.Conn) {
	defer s.wg.Done()
	buf := make([]byte, readBufSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !s.post(event{kind: evData, d: d, data: data}) {
				return
			}
		}
		if err != nil {
			s.post(event{kind: evEOF, d: d, err: err})
			return
		}
	}
}

// shutdown stops accepting, says goodbye to every connection and closes
// it. Runs on the event loop.
func (s *Server) shutdown() {
	s.stopOnce.Do(func() {
		log.Printf("Shutting down: closing %d connections", s.Conns.Count())
		close(s.done)
		s.closeListeners()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, srv := range []*http.Server{s.wsServer, s.metricsSrv} {
			if srv != nil {
				srv.Shutdown(ctx)
			}
		}

		s.Conns.Shutdown(ShutdownMessage)
	})
}

func (s *Server) closeListeners() {
	for _, ln := range []net.Listener{s.listener, s.tlsListener, s.wsListener} {
		if ln != nil {
			ln.Close()
		}
	}
}

// drain closes connections accepted but never handed to the loop.
func (s *Server) drain() {
	for {
		select {
		case ev := <-s.events:
			if ev.kind == evAccept {
				ev.conn.Close()
			}
		default:
			return
		}
	}
}
