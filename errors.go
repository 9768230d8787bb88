package ftransfer

import (
	"errors"
	"fmt"
)

// ErrConnectionClosed is returned when the interpreter closes the control
// connection, or when the client has already been closed.
var ErrConnectionClosed = errors.New("ftransfer: connection closed")

// ProtocolError reports a control message that broke the framing rules,
// such as a message longer than the configured limit. The control
// connection is closed when one is returned.
type ProtocolError struct {
	// Command is the request line that was sent, if any.
	Command string

	// Response is the text received before the violation.
	Response string

	// Limit is the maximum message length in effect.
	Limit int
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("ftransfer: message exceeds %d bytes without a prompt", e.Limit)
	}
	return fmt.Sprintf("ftransfer: reply to %q exceeds %d bytes without a prompt", e.Command, e.Limit)
}

// CommandError is a failure reported by the interpreter on the control
// channel, for example "Error: invalid directory".
type CommandError struct {
	// Command is the request line that was sent.
	Command string

	// Message is the interpreter's reply without the prompt.
	Message string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("ftransfer: %s failed: %s", e.Command, trimNewline(e.Message))
}

// DataChannelError wraps a failure on the data connection or on the local
// file it feeds. The control session is still usable after one.
type DataChannelError struct {
	// Op is the step that failed: "listen", "accept", "create", "write"...
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DataChannelError) Error() string {
	return fmt.Sprintf("ftransfer: data %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *DataChannelError) Unwrap() error {
	return e.Err
}
