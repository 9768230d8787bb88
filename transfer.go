package ftransfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"

	"github.com/gonzalop/ftransfer/internal/protocol"
)

// TransferStatus is the outcome of a list or get.
type TransferStatus int

const (
	// TransferComplete means the payload was received in full.
	TransferComplete TransferStatus = iota

	// TransferNoData means the data connection closed before any byte
	// arrived, or never opened. No local file was touched.
	TransferNoData

	// TransferFailed means a local I/O error or a broken data connection
	// aborted the transfer.
	TransferFailed

	// TransferDeclined means the local file exists and overwriting it was
	// refused. The file is untouched.
	TransferDeclined
)

func (s TransferStatus) String() string {
	switch s {
	case TransferComplete:
		return "complete"
	case TransferNoData:
		return "no data"
	case TransferFailed:
		return "failed"
	case TransferDeclined:
		return "declined"
	}
	return fmt.Sprintf("TransferStatus(%d)", int(s))
}

// TransferResult describes one list or get.
type TransferResult struct {
	Status TransferStatus

	// Bytes is the number of payload bytes received.
	Bytes int64

	// Path is the local file written or declined. Empty for listings.
	Path string

	// Reply is the interpreter's control message for the request, without
	// the prompt. It is empty when the transfer succeeded.
	Reply string

	// Err is the local or data-channel error behind TransferFailed.
	Err error
}

// Confirmer is asked before a download overwrites an existing file.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// List asks for the remote working directory's listing and copies it to w
// as it arrives. Entry names are each followed by two spaces and the
// listing ends with a newline.
//
// A failure reported by the interpreter is returned as *CommandError with
// the reply also in the result.
func (c *Client) List(ctx context.Context, w io.Writer) (*TransferResult, error) {
	return c.transfer(ctx, "list", func(_ context.Context, conn net.Conn) *TransferResult {
		buf := make([]byte, c.bufferSize)
		n, err := io.CopyBuffer(onlyWriter{w}, conn, buf)
		res := &TransferResult{Status: TransferComplete, Bytes: n}
		switch {
		case err != nil:
			res.Status = TransferFailed
			res.Err = &DataChannelError{Op: "read", Err: err}
		case n == 0:
			res.Status = TransferNoData
		}
		return res
	})
}

// Get downloads the named remote file into the download directory, under
// the name's last element.
//
// The local file is created only once the first payload bytes arrive, so a
// missing remote file leaves nothing behind. If the local file exists the
// Confirmer is asked before anything is written; without a Confirmer the
// download is declined.
func (c *Client) Get(ctx context.Context, name string) (*TransferResult, error) {
	return c.transfer(ctx, "get "+name, func(ctx context.Context, conn net.Conn) *TransferResult {
		return c.receiveFile(ctx, conn, name)
	})
}

func (c *Client) receiveFile(ctx context.Context, conn net.Conn, name string) *TransferResult {
	buf := make([]byte, c.bufferSize)

	first, err := readChunk(conn, buf)
	if first == 0 {
		if errors.Is(err, io.EOF) {
			return &TransferResult{Status: TransferNoData}
		}
		return failed(&TransferResult{}, "read", err)
	}

	res := &TransferResult{Path: c.localPath(name)}
	if res.Path == "" {
		return failed(res, "create", fmt.Errorf("invalid file name %q", name))
	}

	f, err := os.OpenFile(res.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o660)
	if errors.Is(err, fs.ErrExist) {
		ok, cerr := c.confirmOverwrite(ctx)
		if cerr != nil {
			return failed(res, "confirm", cerr)
		}
		if !ok {
			c.logger.Debug("overwrite declined", "path", res.Path)
			res.Status = TransferDeclined
			return res
		}
		f, err = os.OpenFile(res.Path, os.O_WRONLY|os.O_TRUNC, 0o660)
	}
	if err != nil {
		return failed(res, "create", err)
	}

	var w io.Writer = f
	if c.progress != nil {
		w = &ProgressWriter{Writer: f, Callback: c.progress}
	}

	n, err := w.Write(buf[:first])
	res.Bytes = int64(n)
	if err != nil {
		f.Close()
		return failed(res, "write", err)
	}

	rest, err := io.CopyBuffer(onlyWriter{w}, conn, buf)
	res.Bytes += rest
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return failed(res, "write", err)
	}

	res.Status = TransferComplete
	c.logger.Debug("file received", "path", res.Path, "bytes", res.Bytes)
	return res
}

// readChunk reads until at least one byte or an error arrives.
func readChunk(r io.Reader, buf []byte) (int, error) {
	for {
		n, err := r.Read(buf)
		if n > 0 || err != nil {
			return n, err
		}
	}
}

// localPath maps a remote name to a path in the download directory.
func (c *Client) localPath(name string) string {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return ""
	}
	return filepath.Join(c.downloadDir, base)
}

func (c *Client) confirmOverwrite(ctx context.Context) (bool, error) {
	if c.confirmer == nil {
		return false, nil
	}
	return c.confirmer.Confirm(ctx, protocol.MsgOverwritePrompt)
}

func failed(res *TransferResult, op string, err error) *TransferResult {
	res.Status = TransferFailed
	res.Err = &DataChannelError{Op: op, Err: err}
	return res
}

// onlyWriter hides ReaderFrom so io.CopyBuffer reads in chunks of the
// configured size.
type onlyWriter struct {
	io.Writer
}
