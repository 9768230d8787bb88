package ftransfer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gonzalop/ftransfer/internal/protocol"
)

// readMessage reads one interpreter message: every byte up to and including
// the prompt. The prompt has no line ending, so the reader cannot stop at a
// newline.
//
// If the connection ends first, the partial text is returned together with
// ErrConnectionClosed. A message longer than limit returns *ProtocolError.
func readMessage(r *bufio.Reader, limit int) (string, error) {
	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return sb.String(), ErrConnectionClosed
			}
			return sb.String(), err
		}
		if sb.Len() >= limit {
			return sb.String(), &ProtocolError{Response: sb.String(), Limit: limit}
		}
		sb.WriteByte(b)
		if strings.HasSuffix(sb.String(), protocol.Prompt) {
			return sb.String(), nil
		}
	}
}

// stripPrompt removes the trailing prompt from a message.
func stripPrompt(msg string) string {
	return strings.TrimSuffix(msg, protocol.Prompt)
}

func trimNewline(s string) string {
	return strings.TrimRight(s, "\r\n")
}

// writeLine sends one request line. The caller holds c.mu.
func (c *Client) writeLine(line string) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	line = trimNewline(line) + "\n"
	c.logger.Debug("request", "line", trimNewline(line))

	if _, err := io.WriteString(c.conn, line); err != nil {
		c.fail()
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

// readReply reads the reply to line and returns it without the prompt.
// The caller holds c.mu. Cancelling ctx closes the client, which interrupts
// the read; a half-read reply cannot be resynchronised anyway.
func (c *Client) readReply(ctx context.Context, line string) (string, error) {
	stop := context.AfterFunc(ctx, c.fail)
	defer stop()

	msg, err := readMessage(c.reader, c.maxMessageLength)
	if err != nil {
		c.fail()
		var pe *ProtocolError
		switch {
		case errors.As(err, &pe):
			pe.Command = trimNewline(line)
			return stripPrompt(msg), pe
		case ctx.Err() != nil:
			return msg, ctx.Err()
		case errors.Is(err, ErrConnectionClosed):
			return msg, err
		}
		return msg, fmt.Errorf("failed to read reply: %w", err)
	}

	reply := stripPrompt(msg)
	c.logger.Debug("reply", "line", trimNewline(line), "message", trimNewline(reply))
	return reply, nil
}

// roundTrip sends line and waits for the interpreter's next prompt.
func (c *Client) roundTrip(ctx context.Context, line string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writeLine(line); err != nil {
		return "", err
	}
	return c.readReply(ctx, line)
}
