package ftransfer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gonzalop/ftransfer/internal/protocol"
)

// Console reads request lines and overwrite confirmations from one input
// stream. Reads can be abandoned through their context, since a terminal
// read cannot be interrupted.
type Console struct {
	out   io.Writer
	lines chan string
	errc  chan error
	done  chan struct{}
	once  sync.Once
}

// NewConsole starts reading lines from in. Prompts and messages go to out.
// Call Close when done.
func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{
		out:   out,
		lines: make(chan string),
		errc:  make(chan error, 1),
		done:  make(chan struct{}),
	}
	go c.readLoop(bufio.NewReader(in))
	return c
}

func (c *Console) readLoop(r *bufio.Reader) {
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			// A final line without a newline still counts.
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r") + "\n"
			select {
			case c.lines <- line:
			case <-c.done:
				return
			}
		}
		if err != nil {
			c.errc <- err
			close(c.lines)
			return
		}
	}
}

// ReadLine returns the next input line, newline included. At the end of
// input it returns io.EOF.
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-c.lines:
		if !ok {
			err := <-c.errc
			c.errc <- err
			return "", err
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Confirm writes prompt and waits for yes, y, no or n. Anything else is
// rejected and the prompt repeated. The end of input counts as no.
func (c *Console) Confirm(ctx context.Context, prompt string) (bool, error) {
	fmt.Fprint(c.out, prompt)
	for {
		line, err := c.ReadLine(ctx)
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		if answer, ok := parseYesNo(line); ok {
			return answer, nil
		}
		fmt.Fprint(c.out, protocol.MsgInvalidYesNoInput)
		fmt.Fprint(c.out, prompt)
	}
}

// parseYesNo accepts "yes", "y", "no" or "n" at the start of line, followed
// by a space or the newline.
func parseYesNo(line string) (answer, ok bool) {
	for _, word := range []string{"yes", "y"} {
		if strings.HasPrefix(line, word+"\n") || strings.HasPrefix(line, word+" ") {
			return true, true
		}
	}
	for _, word := range []string{"no", "n"} {
		if strings.HasPrefix(line, word+"\n") || strings.HasPrefix(line, word+" ") {
			return false, true
		}
	}
	return false, false
}

// Close stops the background reader.
func (c *Console) Close() {
	c.once.Do(func() { close(c.done) })
}
