package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gonzalop/ftransfer/internal/protocol"
	"github.com/gonzalop/ftransfer/internal/transport"
)

func fatalIfErr(t *testing.T, err error, format string, args ...interface{}) {
	t.Helper()
	if err != nil {
		t.Fatalf(format+": %v", append(args, err)...)
	}
}

// freePort returns a TCP port on the loopback interface that was free a
// moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	fatalIfErr(t, err, "listen for free port")
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testServer is a running server on the loopback interface.
type testServer struct {
	*Server
	addr     string
	dataPort int
	done     chan error
}

// startServer serves rootDir on a random port. Data connections go to a
// separate random port, returned in dataPort.
func startServer(t *testing.T, rootDir string, opts ...Option) *testServer {
	t.Helper()

	driver, err := NewFSDriver(rootDir)
	fatalIfErr(t, err, "NewFSDriver")
	return startServerWithDriver(t, driver, opts...)
}

func startServerWithDriver(t *testing.T, driver Driver, opts ...Option) *testServer {
	t.Helper()

	dataPort := freePort(t)
	all := append([]Option{
		WithDriver(driver),
		WithDataPort(dataPort),
		WithLogger(discardLogger()),
	}, opts...)

	s, err := NewServer("127.0.0.1:0", all...)
	fatalIfErr(t, err, "NewServer")

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	fatalIfErr(t, err, "listen")

	ts := &testServer{
		Server:   s,
		addr:     ln.Addr().String(),
		dataPort: dataPort,
		done:     make(chan error, 1),
	}
	go func() {
		ts.done <- s.Serve(ln)
	}()
	t.Cleanup(func() {
		_ = s.Shutdown()
	})
	return ts
}

// rawRequester speaks the control protocol by hand.
type rawRequester struct {
	t        *testing.T
	conn     net.Conn
	r        *bufio.Reader
	dataPort int
}

func dialRaw(t *testing.T, ts *testServer) *rawRequester {
	t.Helper()
	conn, err := net.DialTimeout("tcp4", ts.addr, 5*time.Second)
	fatalIfErr(t, err, "dial control")
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))
	return &rawRequester{t: t, conn: conn, r: bufio.NewReader(conn), dataPort: ts.dataPort}
}

// readPrompt reads until the prompt and returns what came before it.
func (rr *rawRequester) readPrompt() string {
	rr.t.Helper()
	var buf []byte
	for {
		b, err := rr.r.ReadByte()
		if err != nil {
			rr.t.Fatalf("read until prompt (got %q): %v", buf, err)
		}
		buf = append(buf, b)
		if bytes.HasSuffix(buf, []byte(protocol.Prompt)) {
			return string(buf[:len(buf)-len(protocol.Prompt)])
		}
	}
}

// readRest reads the control connection until the interpreter closes it.
func (rr *rawRequester) readRest() string {
	rr.t.Helper()
	rest, err := io.ReadAll(rr.r)
	if err != nil && !strings.Contains(err.Error(), "reset") {
		rr.t.Fatalf("read rest: %v", err)
	}
	return string(rest)
}

func (rr *rawRequester) send(line string) {
	rr.t.Helper()
	_, err := io.WriteString(rr.conn, line)
	fatalIfErr(rr.t, err, "send %q", line)
}

// transfer sends a list or get line with the data port already bound and
// returns the data payload and the control reply that precedes the prompt.
func (rr *rawRequester) transfer(line string) (payload []byte, reply string) {
	rr.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ln, err := transport.Listen(ctx, net.JoinHostPort("127.0.0.1", strconv.Itoa(rr.dataPort)))
	fatalIfErr(rr.t, err, "listen on data port")
	defer ln.Close()

	rr.send(line)

	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			ch <- result{err: err}
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(10 * time.Second))
		data, err := io.ReadAll(conn)
		ch <- result{data: data, err: err}
	}()

	reply = rr.readPrompt()

	select {
	case res := <-ch:
		fatalIfErr(rr.t, res.err, "data connection for %q", line)
		payload = res.data
	case <-ctx.Done():
		rr.t.Fatalf("no data connection for %q", line)
	}
	return payload, reply
}

var errDiskRead = errors.New("input/output error")

// failingReadDriver serves the local filesystem, but every opened file
// fails to read after its first after bytes.
type failingReadDriver struct {
	*FSDriver
	after int64
}

func (d *failingReadDriver) NewContext() (ClientContext, error) {
	ctx, err := d.FSDriver.NewContext()
	if err != nil {
		return nil, err
	}
	return &failingReadContext{ClientContext: ctx, after: d.after}, nil
}

type failingReadContext struct {
	ClientContext
	after int64
}

func (c *failingReadContext) OpenFile(name string) (io.ReadCloser, error) {
	f, err := c.ClientContext.OpenFile(name)
	if err != nil {
		return nil, err
	}
	return struct {
		io.Reader
		io.Closer
	}{io.MultiReader(io.LimitReader(f, c.after), errReader{}), f}, nil
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errDiskRead
}
