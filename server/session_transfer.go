package server

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/gonzalop/ftransfer/internal/protocol"
	"github.com/gonzalop/ftransfer/internal/ratelimit"
)

// handleList writes the working directory's entry names to a fresh data
// connection, each followed by two spaces, then a single newline.
func (s *session) handleList(_ string) error {
	conn, err := s.openDataConn()
	if err != nil {
		if rerr := s.reply(protocol.MsgDataConnFailed); rerr != nil {
			return rerr
		}
		return err
	}
	defer s.closeDataConn()

	start := time.Now()
	names, err := s.fs.ListDir()
	if err != nil {
		if rerr := s.reply(protocol.MsgListFailed); rerr != nil {
			return rerr
		}
		return err
	}

	cw := &countingWriter{w: ratelimit.NewWriter(s.ctx, conn, s.server.limiter)}
	bw := bufio.NewWriterSize(cw, s.server.bufferSize)
	for _, name := range names {
		if _, err := bw.WriteString(name + protocol.ListSeparator); err != nil {
			return fmt.Errorf("write listing: %w", err)
		}
	}
	if err := bw.WriteByte('\n'); err != nil {
		return fmt.Errorf("write listing: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write listing: %w", err)
	}

	s.logTransfer("list", "", cw.n, time.Since(start))
	return nil
}

// handleGet streams the named file to a fresh data connection. The data
// connection is opened first; when the file cannot be opened the connection
// is closed with no bytes written.
func (s *session) handleGet(name string) error {
	conn, err := s.openDataConn()
	if err != nil {
		if rerr := s.reply(protocol.MsgDataConnFailed); rerr != nil {
			return rerr
		}
		return err
	}
	defer s.closeDataConn()

	f, err := s.fs.OpenFile(name)
	if err != nil {
		if rerr := s.reply(openErrorMessage(err)); rerr != nil {
			return rerr
		}
		return err
	}
	defer f.Close()

	start := time.Now()
	w := ratelimit.NewWriter(s.ctx, conn, s.server.limiter)
	src := &fileReader{r: f}
	buf := make([]byte, s.server.bufferSize)
	n, err := io.CopyBuffer(onlyWriter{w}, src, buf)
	duration := time.Since(start)
	if src.err != nil {
		// The requester cannot tell a short file from a truncated one, so
		// the payload is ended before the failure is reported.
		s.closeDataConn()
		if rerr := s.reply(protocol.MsgReadFileFailed); rerr != nil {
			return rerr
		}
		return fmt.Errorf("read %q after %d bytes: %w", name, n, src.err)
	}
	if err != nil {
		// The requester may close the data connection on purpose, for
		// example after declining an overwrite.
		return fmt.Errorf("send %q after %d bytes: %w", name, n, err)
	}

	s.logTransfer("get", name, n, duration)
	return nil
}

func (s *session) logTransfer(operation, path string, bytes int64, duration time.Duration) {
	throughputMBps := float64(0)
	if duration.Seconds() > 0 {
		throughputMBps = float64(bytes) / duration.Seconds() / 1024 / 1024
	}

	s.server.logger.Info("transfer_complete",
		"session_id", s.sessionID,
		"remote_ip", s.remoteIP,
		"operation", operation,
		"path", path,
		"bytes", bytes,
		"duration_ms", duration.Milliseconds(),
		"throughput_mbps", fmt.Sprintf("%.2f", throughputMBps),
	)

	if s.server.metricsCollector != nil {
		s.server.metricsCollector.RecordTransfer(operation, bytes, duration)
	}
}

// fileReader remembers the first read error other than io.EOF. It also
// hides WriterTo, and onlyWriter hides ReaderFrom, so io.CopyBuffer moves
// the file in chunks of the configured size.
type fileReader struct {
	r   io.Reader
	err error
}

func (f *fileReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if err != nil && err != io.EOF && f.err == nil {
		f.err = err
	}
	return n, err
}

type onlyWriter struct {
	io.Writer
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
