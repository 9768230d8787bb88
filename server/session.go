package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gonzalop/ftransfer/internal/datachan"
	"github.com/gonzalop/ftransfer/internal/protocol"
)

var (
	errCommandTooLong   = errors.New("command too long")
	errInvalidCommand   = errors.New("invalid command")
	errDataChannelBusy  = errors.New("a data connection is already open")
	errControlWriteFail = errors.New("control connection write failed")
)

// sessionState tracks where a session is in its command cycle.
type sessionState int

const (
	stateAwaitingCommand sessionState = iota
	stateDataHandshake
	stateTransfer
	stateClosed
)

func (st sessionState) String() string {
	switch st {
	case stateAwaitingCommand:
		return "awaiting_command"
	case stateDataHandshake:
		return "data_handshake"
	case stateTransfer:
		return "transfer"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// session is one control connection.
type session struct {
	server *Server
	conn   net.Conn
	reader *bufio.Reader

	// ctx is cancelled when the session ends or the server shuts down.
	ctx    context.Context
	cancel context.CancelFunc

	sessionID string

	// peerAddr is captured at accept time; data connections go to its IP.
	peerAddr net.Addr
	remoteIP string

	fs    ClientContext
	state sessionState

	mu        sync.Mutex // protects writes to conn, dataConn and writeErr
	dataConn  net.Conn
	writeErr  error
	closeOnce sync.Once
}

// newSession creates a new session.
func newSession(server *Server, conn net.Conn) *session {
	ctx, cancel := context.WithCancel(server.baseCtx)

	peer := conn.RemoteAddr()
	remoteIP := ""
	if ip := datachan.PeerIP(peer); ip != nil {
		remoteIP = ip.String()
	}

	return &session{
		server:    server,
		conn:      conn,
		reader:    bufio.NewReaderSize(conn, 512),
		ctx:       ctx,
		cancel:    cancel,
		sessionID: uuid.NewString(),
		peerAddr:  peer,
		remoteIP:  remoteIP,
		state:     stateAwaitingCommand,
	}
}

// serve runs the command loop until the requester exits, the connection
// fails or the server shuts down. Failures end this session only.
func (s *session) serve() {
	defer s.close()

	s.server.logger.Info("session_started",
		"session_id", s.sessionID,
		"remote_ip", s.remoteIP,
	)

	fsCtx, err := s.server.driver.NewContext()
	if err != nil {
		s.server.logger.Error("session context error",
			"session_id", s.sessionID,
			"error", err,
		)
		return
	}
	s.fs = fsCtx

	if err := s.reply(s.server.welcomeMessage); err != nil {
		return
	}

	for s.state != stateClosed {
		line, err := s.readCommand()
		if err != nil {
			s.handleReadError(err)
			return
		}

		s.handleCommand(line)

		if s.writeFailed() {
			return
		}
		if s.state != stateClosed {
			s.state = stateAwaitingCommand
		}
	}
}

// readCommand sends the prompt and reads one line, byte by byte, up to a CR
// or LF. A line that is empty is not returned: the prompt is sent again and
// reading resumes.
func (s *session) readCommand() (string, error) {
	if err := s.reply(protocol.Prompt); err != nil {
		return "", err
	}

	if s.server.maxIdleTime > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.server.maxIdleTime))
		defer func() { _ = s.conn.SetReadDeadline(time.Time{}) }()
	}

	var line []byte
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			return string(line), err
		}

		if b == '\r' || b == '\n' {
			if b == '\r' {
				s.skipBufferedLF()
			}
			if len(line) == 0 {
				if err := s.reply(protocol.Prompt); err != nil {
					return "", err
				}
				continue
			}
			return string(line), nil
		}

		if len(line) >= s.server.maxLineLength {
			return "", errCommandTooLong
		}
		line = append(line, b)
	}
}

// skipBufferedLF consumes the LF of a CRLF pair when it has already arrived.
func (s *session) skipBufferedLF() {
	if s.reader.Buffered() == 0 {
		return
	}
	if next, err := s.reader.Peek(1); err == nil && next[0] == '\n' {
		_, _ = s.reader.ReadByte()
	}
}

func (s *session) handleReadError(err error) {
	switch {
	case errors.Is(err, errCommandTooLong):
		s.server.logger.Warn("protocol error",
			"session_id", s.sessionID,
			"remote_ip", s.remoteIP,
			"error", err,
			"limit", s.server.maxLineLength,
		)
		_ = s.reply(protocol.MsgCommandTooLong)
	case errors.Is(err, io.EOF):
		s.server.logger.Info("connection closed by client",
			"session_id", s.sessionID,
			"remote_ip", s.remoteIP,
		)
	case s.ctx.Err() != nil, errors.Is(err, net.ErrClosed):
		s.server.logger.Debug("session interrupted",
			"session_id", s.sessionID,
			"error", err,
		)
	default:
		s.server.logger.Warn("read error",
			"session_id", s.sessionID,
			"remote_ip", s.remoteIP,
			"error", err,
		)
	}
}

// handleCommand classifies and dispatches one command line.
func (s *session) handleCommand(line string) {
	cmd := protocol.Parse(line)

	s.server.logger.Debug("command received",
		"session_id", s.sessionID,
		"remote_ip", s.remoteIP,
		"cmd", cmd.Kind.String(),
		"arg", cmd.Arg,
	)

	start := time.Now()
	err := commandHandlers[cmd.Kind](s, cmd.Arg)
	duration := time.Since(start)

	if err != nil {
		level := s.server.logger.Debug
		if !errors.Is(err, errInvalidCommand) {
			level = s.server.logger.Warn
		}
		level("command failed",
			"session_id", s.sessionID,
			"remote_ip", s.remoteIP,
			"cmd", cmd.Kind.String(),
			"arg", cmd.Arg,
			"error", err,
		)
	}

	if s.server.metricsCollector != nil {
		s.server.metricsCollector.RecordCommand(cmd.Kind.String(), err == nil, duration)
	}
}

func (s *session) handleInvalid(_ string) error {
	if err := s.reply(protocol.MsgInvalidCommand); err != nil {
		return err
	}
	return errInvalidCommand
}

func (s *session) handleExit(_ string) error {
	s.state = stateClosed
	s.server.logger.Info("session_exit",
		"session_id", s.sessionID,
		"remote_ip", s.remoteIP,
	)
	return nil
}

// openDataConn connects to the data port on the requester's host. Only one
// data connection may be open per session.
func (s *session) openDataConn() (net.Conn, error) {
	s.mu.Lock()
	busy := s.dataConn != nil
	s.mu.Unlock()
	if busy {
		return nil, errDataChannelBusy
	}

	s.state = stateDataHandshake
	s.server.logger.Debug("dialing data connection",
		"session_id", s.sessionID,
		"remote_ip", s.remoteIP,
		"data_port", s.server.dataPort,
	)

	conn, err := datachan.DialBack(s.ctx, s.server.dialer, s.peerAddr, s.server.dataPort)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.dataConn = conn
	s.mu.Unlock()
	s.state = stateTransfer
	return conn, nil
}

// closeDataConn closes the data connection; closing signals end of payload.
func (s *session) closeDataConn() {
	s.mu.Lock()
	conn := s.dataConn
	s.dataConn = nil
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// reply writes msg verbatim on the control connection.
func (s *session) reply(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}
	if _, err := io.WriteString(s.conn, msg); err != nil {
		s.writeErr = errors.Join(errControlWriteFail, err)
		return s.writeErr
	}
	return nil
}

func (s *session) writeFailed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeErr != nil
}

// shutdown is called by Server.Shutdown from another goroutine.
func (s *session) shutdown() {
	_ = s.conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := s.reply(protocol.MsgServerClosed); err == nil {
		s.server.logger.Info("session_shutdown",
			"session_id", s.sessionID,
			"remote_ip", s.remoteIP,
		)
	}
	s.cancel()
	s.closeDataConn()
	s.conn.Close()
}

// close closes the session and underlying connection.
func (s *session) close() {
	s.closeOnce.Do(func() {
		s.state = stateClosed
		s.cancel()
		s.closeDataConn()
		if s.fs != nil {
			s.fs.Close()
		}
		s.conn.Close()

		s.server.logger.Info("session_closed",
			"session_id", s.sessionID,
			"remote_ip", s.remoteIP,
		)
	})
}
