package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gonzalop/ftransfer/internal/protocol"
	"github.com/gonzalop/ftransfer/internal/ratelimit"
	"github.com/gonzalop/ftransfer/internal/transport"
)

// Server is the command interpreter.
//
// It accepts control connections and runs one session per connection. By
// default only one session is live at a time: the next control connection is
// not accepted until the previous one has been closed.
//
// Lifecycle:
//  1. Create server with NewServer()
//  2. Start with ListenAndServe() or Serve()
//  3. Call Shutdown() from another goroutine to stop it
//
// Basic example:
//
//	driver, _ := server.NewFSDriver(".")
//	s, err := server.NewServer(":30021", server.WithDriver(driver))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(s.ListenAndServe())
type Server struct {
	// addr is the TCP address to listen on (e.g., ":30021").
	addr string

	// driver provides each session's view of the filesystem.
	driver Driver

	// logger is the logger instance.
	logger *slog.Logger

	// dataPort is the port on the requester's host that data connections
	// are opened to.
	dataPort int

	// dialer opens data connections.
	dialer *net.Dialer

	// maxLineLength bounds a command line.
	maxLineLength int

	// bufferSize is the chunk size for file payloads.
	bufferSize int

	// maxSessions is the number of control sessions served at once.
	maxSessions int

	// maxIdleTime closes a session that sends nothing for this long.
	// Zero waits forever.
	maxIdleTime time.Duration

	// limiter throttles data-channel writes. Nil means unlimited.
	limiter *ratelimit.Limiter

	// metricsCollector is optional.
	metricsCollector MetricsCollector

	// welcomeMessage is sent when a session starts.
	welcomeMessage string

	// Shutdown handling
	mu         sync.Mutex
	listener   net.Listener
	sessions   map[*session]struct{}
	inShutdown atomic.Bool
	baseCtx    context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// ErrServerClosed is returned by Serve and ListenAndServe after Shutdown.
var ErrServerClosed = errors.New("ftransfer: Server closed")

// NewServer creates a new server with the given address and options.
// The driver must be provided via the WithDriver option.
//
// Default values:
//   - Logger: slog.Default()
//   - Data port: 30020
//   - Max sessions: 1
//   - Max line length: 4096
//   - Idle timeout: none
//   - Bandwidth: unlimited
func NewServer(addr string, options ...Option) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:           addr,
		logger:         slog.Default(),
		dataPort:       protocol.DefaultDataPort,
		dialer:         &net.Dialer{},
		maxLineLength:  protocol.MaxLineLength,
		bufferSize:     protocol.FileBufferSize,
		maxSessions:    1,
		welcomeMessage: protocol.Greeting,
		sessions:       make(map[*session]struct{}),
		baseCtx:        ctx,
		cancel:         cancel,
	}

	for _, opt := range options {
		if err := opt(s); err != nil {
			cancel()
			return nil, err
		}
	}

	if s.driver == nil {
		cancel()
		return nil, fmt.Errorf("driver is required (use WithDriver option)")
	}

	return s, nil
}

// ListenAndServe listens on the configured address and calls Serve.
// It blocks until the server stops or an error occurs.
func (s *Server) ListenAndServe() error {
	ln, err := transport.Listen(s.baseCtx, s.addr)
	if err != nil {
		return err
	}

	s.logger.Info("server_started", "addr", ln.Addr().String(), "data_port", s.dataPort)
	return s.Serve(ln)
}

// Serve accepts control connections on l until Shutdown is called or l
// fails. Sessions beyond the configured maximum wait in the listen backlog.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.inShutdown.Load() {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	l = transport.LimitListener(l, s.maxSessions)
	s.listener = l
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.listener == l {
			s.listener = nil
		}
		s.mu.Unlock()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.inShutdown.Load() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Error("accept error", "error", err)
			continue
		}

		s.mu.Lock()
		if s.inShutdown.Load() {
			s.mu.Unlock()
			conn.Close()
			return ErrServerClosed
		}
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// Shutdown stops accepting connections, tells every live session that the
// server is going away, closes their connections and waits for them to end.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	s.inShutdown.Store(true)
	s.cancel()
	ln := s.listener
	s.listener = nil
	sessions := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}

	for _, sess := range sessions {
		sess.shutdown()
	}

	s.wg.Wait()
	return err
}

// handleConnection runs one session on conn.
func (s *Server) handleConnection(conn net.Conn) {
	sess := newSession(s, conn)
	if !s.trackSession(sess, true) {
		s.recordConnection(false, "shutting_down")
		conn.Close()
		return
	}
	defer s.trackSession(sess, false)

	s.recordConnection(true, "accepted")
	sess.serve()
}

// trackSession returns false if we're shutting down.
func (s *Server) trackSession(sess *session, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !add {
		delete(s.sessions, sess)
		return true
	}
	if s.inShutdown.Load() {
		return false
	}
	s.sessions[sess] = struct{}{}
	return true
}

func (s *Server) recordConnection(accepted bool, reason string) {
	if s.metricsCollector != nil {
		s.metricsCollector.RecordConnection(accepted, reason)
	}
}
