package ftransfer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gonzalop/ftransfer/internal/protocol"
)

// Run drives an interactive session: it prints the greeting and prompt,
// sends every line read from in, and prints the interpreter's replies and
// listings to out. Files are saved as described for Get; the overwrite
// question is asked on in and out unless a Confirmer was configured.
//
// Run returns after "exit", at the end of in, when ctx is cancelled, or
// when the interpreter closes the connection. In the first three cases
// "exit" is sent to the interpreter first.
func (c *Client) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	console := NewConsole(in, out)
	defer console.Close()

	c.mu.Lock()
	if c.confirmer == nil {
		c.confirmer = console
	}
	c.mu.Unlock()

	fmt.Fprint(out, c.greeting+protocol.Prompt)

	for {
		line, err := console.ReadLine(ctx)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprint(out, "\nClosing connection to server...\n")
			}
			qerr := c.Quit()
			fmt.Fprintln(out, "Connection closed")
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return qerr
			}
			return err
		}

		done, err := c.runLine(ctx, line, out)
		if done || c.Closed() {
			fmt.Fprintln(out, "Connection closed")
			if errors.Is(err, ErrConnectionClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		fmt.Fprint(out, protocol.Prompt)
	}
}

// runLine executes one console line. done reports that the session ended.
// Errors the interpreter already explained in its reply are not returned.
func (c *Client) runLine(ctx context.Context, line string, out io.Writer) (done bool, err error) {
	cmd := protocol.Parse(line)

	switch cmd.Kind {
	case protocol.Exit:
		return true, c.Quit()

	case protocol.List:
		res, err := c.List(ctx, out)
		if res != nil {
			fmt.Fprint(out, res.Reply)
		}
		return false, ignoreCommandError(err)

	case protocol.Get:
		res, err := c.Get(ctx, cmd.Arg)
		if res != nil {
			switch res.Status {
			case TransferComplete:
				fmt.Fprintf(out, "File received: %s\n", cmd.Arg)
			case TransferDeclined:
				fmt.Fprintf(out, "File not received: %s\n", cmd.Arg)
			}
			fmt.Fprint(out, res.Reply)
		}
		return false, ignoreCommandError(err)
	}

	reply, err := c.roundTrip(ctx, line)
	fmt.Fprint(out, reply)
	return false, err
}

func ignoreCommandError(err error) error {
	var ce *CommandError
	if errors.As(err, &ce) {
		return nil
	}
	return err
}
