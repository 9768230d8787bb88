package ftransfer

import (
	"context"
	"net"

	"github.com/gonzalop/ftransfer/internal/datachan"
	"github.com/gonzalop/ftransfer/internal/protocol"
)

// receiveFunc consumes one data connection.
type receiveFunc func(ctx context.Context, conn net.Conn) *TransferResult

// transfer runs a list or get request.
//
// The data port is bound before the request line is sent, so the
// interpreter's connect always finds a listener. The data connection is
// then accepted and consumed while the control reply is read: a large
// payload would otherwise fill the socket buffers before the interpreter
// can send its next prompt.
//
// The interpreter always dials before replying, except when the dial
// itself fails. In that case no connection will come and the accept is
// abandoned.
func (c *Client) transfer(ctx context.Context, line string, receive receiveFunc) (*TransferResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}

	ln, err := datachan.Listen(ctx, c.dataListenAddr)
	if err != nil {
		return nil, &DataChannelError{Op: "listen", Err: err}
	}

	// dataCtx ends with the transfer; acceptCtx only bounds the wait for
	// the interpreter to connect.
	dataCtx, abort := context.WithCancel(ctx)
	defer abort()
	acceptCtx := dataCtx
	if c.acceptTimeout > 0 {
		var cancel context.CancelFunc
		acceptCtx, cancel = context.WithTimeout(dataCtx, c.acceptTimeout)
		defer cancel()
	}

	if err := c.writeLine(line); err != nil {
		ln.Close()
		return nil, err
	}

	done := make(chan *TransferResult, 1)
	go func() {
		conn, err := datachan.AcceptFrom(acceptCtx, ln, c.peerIP, c.logger)
		if err != nil {
			done <- &TransferResult{Status: TransferNoData, Err: &DataChannelError{Op: "accept", Err: err}}
			return
		}
		defer conn.Close()
		stop := context.AfterFunc(dataCtx, func() { conn.Close() })
		defer stop()
		c.logger.Debug("data connection accepted", "remote", conn.RemoteAddr().String())
		done <- receive(dataCtx, conn)
	}()

	reply, rerr := c.readReply(ctx, line)
	if rerr != nil || reply == protocol.MsgDataConnFailed {
		abort()
	}

	res := <-done
	res.Reply = reply

	switch {
	case rerr != nil:
		return res, rerr
	case reply != "":
		// Successful transfers get a bare prompt; any text is a failure.
		cerr := &CommandError{Command: trimNewline(line), Message: reply}
		switch {
		case reply == protocol.MsgDataConnFailed:
			res.Status = TransferNoData
			res.Err = nil
		case res.Status == TransferComplete:
			// The payload ended early on the interpreter's side.
			res.Status = TransferFailed
			res.Err = cerr
		}
		return res, cerr
	case res.Err != nil:
		return res, res.Err
	}
	return res, nil
}
