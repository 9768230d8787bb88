package ftransfer

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"
)

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithTimeout bounds every read and write on the control connection, and
// the initial connect. Zero, the default, waits forever.
//
// The reply to list and get arrives only after the whole payload, so the
// timeout must exceed the longest transfer.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout < 0 {
			return fmt.Errorf("invalid timeout: %v", timeout)
		}
		c.timeout = timeout
		return nil
	}
}

// WithLogger enables debug logging using the provided logger.
// Requests, replies and rejected data connections are logged.
//
// Example:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	}))
//	client, _ := ftransfer.Dial(ctx, "files.example.com:30021", ftransfer.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithDialer sets a custom net.Dialer for the control connection.
func WithDialer(dialer *net.Dialer) Option {
	return func(c *Client) error {
		c.dialer = dialer
		return nil
	}
}

// WithDataPort sets the port the client listens on for data connections.
// It must match the interpreter's data port. The default is 30020.
func WithDataPort(port int) Option {
	return func(c *Client) error {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid data port: %d", port)
		}
		c.dataListenAddr = net.JoinHostPort("", strconv.Itoa(port))
		return nil
	}
}

// WithDataListenAddr sets the full local address the data listener binds,
// for example "127.0.0.1:30020". It overrides WithDataPort.
func WithDataListenAddr(addr string) Option {
	return func(c *Client) error {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("invalid data listen address: %w", err)
		}
		c.dataListenAddr = addr
		return nil
	}
}

// WithAcceptTimeout gives up waiting for a data connection after the given
// duration. Zero, the default, waits until the interpreter connects or the
// context is cancelled.
func WithAcceptTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.acceptTimeout = timeout
		return nil
	}
}

// WithConfirmer sets who is asked before a download overwrites an existing
// file. Without one, existing files are never overwritten.
func WithConfirmer(confirmer Confirmer) Option {
	return func(c *Client) error {
		c.confirmer = confirmer
		return nil
	}
}

// WithDownloadDir sets the directory downloaded files are written to.
// The default is the process working directory.
func WithDownloadDir(dir string) Option {
	return func(c *Client) error {
		c.downloadDir = dir
		return nil
	}
}

// WithMaxMessageLength bounds a single interpreter message, prompt
// included. The default is 4096 bytes.
func WithMaxMessageLength(n int) Option {
	return func(c *Client) error {
		if n < 2 {
			return fmt.Errorf("invalid max message length: %d", n)
		}
		c.maxMessageLength = n
		return nil
	}
}

// WithBufferSize sets the chunk size used when receiving files.
func WithBufferSize(n int) Option {
	return func(c *Client) error {
		if n <= 0 {
			return fmt.Errorf("invalid buffer size: %d", n)
		}
		c.bufferSize = n
		return nil
	}
}

// WithProgress registers a callback that is told the running byte count
// while a file is written.
//
// Example:
//
//	client, _ := ftransfer.Dial(ctx, addr, ftransfer.WithProgress(func(n int64) {
//	    fmt.Printf("\r%d bytes", n)
//	}))
func WithProgress(callback func(bytesTransferred int64)) Option {
	return func(c *Client) error {
		c.progress = callback
		return nil
	}
}
