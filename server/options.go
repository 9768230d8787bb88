package server

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gonzalop/ftransfer/internal/ratelimit"
)

// Option is a functional option for configuring a server.
type Option func(*Server) error

// WithDriver sets the backend that gives each session its view of the
// filesystem. This option is required and can only be set once.
//
// Example:
//
//	driver, _ := server.NewFSDriver("/srv/files")
//	s, _ := server.NewServer(":30021", server.WithDriver(driver))
func WithDriver(driver Driver) Option {
	return func(s *Server) error {
		if s.driver != nil {
			return fmt.Errorf("driver already set")
		}
		s.driver = driver
		return nil
	}
}

// WithLogger sets a custom logger for the server.
// If not specified, slog.Default() is used.
//
// Example with debug logging:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	}))
//	s, _ := server.NewServer(":30021",
//	    server.WithDriver(driver),
//	    server.WithLogger(logger),
//	)
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithDataPort sets the port on the requester's host that data connections
// are opened to. It must match the port the requester listens on.
func WithDataPort(port int) Option {
	return func(s *Server) error {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid data port: %d", port)
		}
		s.dataPort = port
		return nil
	}
}

// WithDialer sets the dialer used for data connections, for example to pin
// a source address.
func WithDialer(dialer *net.Dialer) Option {
	return func(s *Server) error {
		s.dialer = dialer
		return nil
	}
}

// WithMaxLineLength bounds the length of a command line. Longer lines end
// the session with a protocol error.
func WithMaxLineLength(n int) Option {
	return func(s *Server) error {
		if n <= 0 {
			return fmt.Errorf("invalid max line length: %d", n)
		}
		s.maxLineLength = n
		return nil
	}
}

// WithBufferSize sets the chunk size used when streaming files.
func WithBufferSize(n int) Option {
	return func(s *Server) error {
		if n <= 0 {
			return fmt.Errorf("invalid buffer size: %d", n)
		}
		s.bufferSize = n
		return nil
	}
}

// WithMaxSessions sets how many control sessions may be live at once.
// The default of 1 serves sessions strictly one after another.
//
// Every session's data connections go to the same well-known port on the
// requester's host, so two concurrent sessions from one host would compete
// for it.
func WithMaxSessions(n int) Option {
	return func(s *Server) error {
		if n < 1 {
			return fmt.Errorf("max sessions must be at least 1, got %d", n)
		}
		s.maxSessions = n
		return nil
	}
}

// WithMaxIdleTime closes sessions that send no command for the given
// duration. Zero, the default, waits forever.
func WithMaxIdleTime(duration time.Duration) Option {
	return func(s *Server) error {
		s.maxIdleTime = duration
		return nil
	}
}

// WithBandwidthLimit caps the combined data-channel throughput of all sessions,
// in bytes per second. Zero disables the limit.
//
// Example:
//
//	s, _ := server.NewServer(":30021",
//	    server.WithDriver(driver),
//	    server.WithBandwidthLimit(1024*1024), // 1 MiB/s
//	)
func WithBandwidthLimit(bytesPerSecond int64) Option {
	return func(s *Server) error {
		if bytesPerSecond < 0 {
			return fmt.Errorf("invalid bandwidth limit: %d", bytesPerSecond)
		}
		s.limiter = ratelimit.New(bytesPerSecond)
		return nil
	}
}

// WithMetricsCollector sets a collector that is told about commands,
// transfers and accepted connections.
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(s *Server) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithWelcomeMessage replaces the greeting sent when a session starts.
// The prompt is always sent after it.
func WithWelcomeMessage(msg string) Option {
	return func(s *Server) error {
		s.welcomeMessage = msg
		return nil
	}
}
