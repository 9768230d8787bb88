package ftransfer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gonzalop/ftransfer/internal/datachan"
	"github.com/gonzalop/ftransfer/internal/protocol"
)

// Client is the requester side of a control session.
//
// A Client runs one command at a time; concurrent calls are serialised.
type Client struct {
	// conn is the control connection
	conn net.Conn

	// reader is a buffered reader for the control channel
	reader *bufio.Reader

	// peerIP is the interpreter's address, captured at connect time.
	// Data connections from any other address are rejected.
	peerIP net.IP

	// greeting is the first message, without the prompt
	greeting string

	// logger is used for debug logging
	logger *slog.Logger

	// dialer is used for the control connection
	dialer *net.Dialer

	// timeout bounds control connection I/O. Zero waits forever.
	timeout time.Duration

	// dataListenAddr is bound for each transfer, e.g. ":30020"
	dataListenAddr string

	// acceptTimeout bounds the wait for a data connection. Zero waits forever.
	acceptTimeout time.Duration

	maxMessageLength int
	bufferSize       int
	downloadDir      string
	confirmer        Confirmer
	progress         func(int64)

	// mu serialises commands
	mu        sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// Dial connects to an interpreter and reads its greeting. The address is
// "host:port"; a bare host uses the default control port 30021.
//
// Example:
//
//	client, err := ftransfer.Dial(ctx, "files.example.com")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
//
//	fmt.Print(client.Greeting())
func Dial(ctx context.Context, addr string, options ...Option) (*Client, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, strconv.Itoa(protocol.DefaultControlPort))
	}

	c := &Client{
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		dialer:           &net.Dialer{},
		dataListenAddr:   net.JoinHostPort("", strconv.Itoa(protocol.DefaultDataPort)),
		maxMessageLength: protocol.MaxLineLength,
		bufferSize:       protocol.FileBufferSize,
	}

	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if c.timeout > 0 {
		c.dialer.Timeout = c.timeout
	}

	c.logger.Debug("connecting", "addr", addr)
	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c.peerIP = datachan.PeerIP(conn.RemoteAddr())
	if c.timeout > 0 {
		conn = &deadlineConn{Conn: conn, timeout: c.timeout}
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)

	greeting, err := c.readReply(ctx, "")
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to read greeting: %w", err)
	}
	c.greeting = greeting

	c.logger.Debug("connected", "addr", addr, "peer_ip", c.peerIP.String())
	return c, nil
}

// Greeting returns the message the interpreter sent on connect, without the
// prompt.
func (c *Client) Greeting() string {
	return c.greeting
}

// Exec sends a command that needs no data connection (pwd, cd, an unknown
// command, an empty line) and returns the interpreter's reply without the
// prompt. "exit" is handled as Quit. Use List and Get for data commands.
func (c *Client) Exec(ctx context.Context, line string) (string, error) {
	cmd := protocol.Parse(line)
	switch {
	case cmd.Kind == protocol.Exit:
		return "", c.Quit()
	case cmd.Kind.NeedsDataChannel():
		return "", fmt.Errorf("ftransfer: %q needs a data connection, use %s", trimNewline(line), dataMethod(cmd.Kind))
	}
	return c.roundTrip(ctx, line)
}

func dataMethod(k protocol.Kind) string {
	if k == protocol.Get {
		return "Get"
	}
	return "List"
}

// CurrentDir returns the session's remote working directory.
func (c *Client) CurrentDir(ctx context.Context) (string, error) {
	reply, err := c.roundTrip(ctx, "pwd")
	if err != nil {
		return "", err
	}
	return parseWorkingDir("pwd", reply)
}

// ChangeDir changes the session's remote working directory and returns the
// new one. Failures are returned as *CommandError.
func (c *Client) ChangeDir(ctx context.Context, path string) (string, error) {
	line := "cd " + path
	reply, err := c.roundTrip(ctx, line)
	if err != nil {
		return "", err
	}
	return parseWorkingDir(line, reply)
}

func parseWorkingDir(line, reply string) (string, error) {
	dir, ok := strings.CutPrefix(reply, protocol.MsgWorkingDirPrefix)
	if !ok {
		return "", &CommandError{Command: line, Message: reply}
	}
	return trimNewline(dir), nil
}

// Quit ends the session by sending "exit" and closes the connection.
// It is safe to call more than once.
func (c *Client) Quit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil
	}
	err := c.writeLine("exit")
	if cerr := c.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close closes the control connection without telling the interpreter.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.conn.Close()
	})
	return err
}

// Closed reports whether the control connection is gone.
func (c *Client) Closed() bool {
	return c.closed.Load()
}

// fail closes the client after a control connection error.
func (c *Client) fail() {
	_ = c.Close()
}
