package datachan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/nettest"
)

// addrConn overrides the remote address of a piped connection.
type addrConn struct {
	net.Conn
	remote net.Addr
	closed chan struct{}
	once   sync.Once
}

func (c *addrConn) RemoteAddr() net.Addr { return c.remote }

func (c *addrConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return c.Conn.Close()
}

// queueListener hands out pre-built connections in order, then blocks until
// closed.
type queueListener struct {
	conns  chan net.Conn
	done   chan struct{}
	once   sync.Once
	closes int
	mu     sync.Mutex
}

func newQueueListener(conns ...net.Conn) *queueListener {
	l := &queueListener{conns: make(chan net.Conn, len(conns)), done: make(chan struct{})}
	for _, c := range conns {
		l.conns <- c
	}
	return l
}

func (l *queueListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *queueListener) Close() error {
	l.mu.Lock()
	l.closes++
	l.mu.Unlock()
	l.once.Do(func() { close(l.done) })
	return nil
}

func (l *queueListener) Addr() net.Addr { return &net.TCPAddr{IP: net.IPv4zero, Port: 30020} }

func fakeConn(ip string) (*addrConn, net.Conn) {
	local, remote := net.Pipe()
	return &addrConn{
		Conn:   local,
		remote: &net.TCPAddr{IP: net.ParseIP(ip), Port: 40000},
		closed: make(chan struct{}),
	}, remote
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAcceptFrom_RejectsOtherHosts(t *testing.T) {
	t.Parallel()
	stranger, strangerPeer := fakeConn("10.0.0.99")
	defer strangerPeer.Close()
	other, otherPeer := fakeConn("192.168.1.7")
	defer otherPeer.Close()
	good, goodPeer := fakeConn("10.0.0.1")
	defer goodPeer.Close()

	ln := newQueueListener(stranger, other, good)
	conn, err := AcceptFrom(context.Background(), ln, net.ParseIP("10.0.0.1"), discardLogger())
	if err != nil {
		t.Fatalf("AcceptFrom failed: %v", err)
	}
	defer conn.Close()

	if conn != net.Conn(good) {
		t.Fatalf("accepted %v, want the connection from 10.0.0.1", conn.RemoteAddr())
	}
	for _, c := range []*addrConn{stranger, other} {
		select {
		case <-c.closed:
		default:
			t.Errorf("connection from %v was not closed", c.RemoteAddr())
		}
	}
	if ln.closes == 0 {
		t.Error("listener was not closed after a match")
	}
}

func TestAcceptFrom_KeepsWaitingAfterRejection(t *testing.T) {
	t.Parallel()
	stranger, strangerPeer := fakeConn("10.0.0.99")
	defer strangerPeer.Close()

	ln := newQueueListener(stranger)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := AcceptFrom(ctx, ln, net.ParseIP("10.0.0.1"), discardLogger())
		errCh <- err
	}()

	<-stranger.closed
	select {
	case err := <-errCh:
		t.Fatalf("AcceptFrom returned after a rejection: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AcceptFrom did not return after cancellation")
	}
}

func TestAcceptFrom_IPv4MappedMatches(t *testing.T) {
	t.Parallel()
	c, peer := fakeConn("::ffff:10.0.0.1")
	defer peer.Close()

	conn, err := AcceptFrom(context.Background(), newQueueListener(c), net.ParseIP("10.0.0.1").To4(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()
}

func TestAcceptFrom_NoPeer(t *testing.T) {
	t.Parallel()
	ln := newQueueListener()
	if _, err := AcceptFrom(context.Background(), ln, nil, nil); !errors.Is(err, ErrNoPeerIP) {
		t.Errorf("expected ErrNoPeerIP, got %v", err)
	}
}

func TestDialBack(t *testing.T) {
	t.Parallel()
	ln, err := nettest.NewLocalListener("tcp4")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	// The control address port is irrelevant; only the IP is reused.
	control := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1}

	go func() {
		c, err := DialBack(context.Background(), nil, control, port)
		if err != nil {
			return
		}
		_, _ = c.Write([]byte("payload"))
		c.Close()
	}()

	conn, err := AcceptFrom(context.Background(), ln, net.ParseIP("127.0.0.1"), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	got, err := io.ReadAll(conn)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Errorf("got %q, want %q", got, "payload")
	}
}

func TestDialBack_Refused(t *testing.T) {
	t.Parallel()
	ln, err := nettest.NewLocalListener("tcp4")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	control := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1}
	if _, err := DialBack(context.Background(), nil, control, port); err == nil {
		t.Fatal("expected connection refused on port " + strconv.Itoa(port))
	}
}

func TestPeerIP(t *testing.T) {
	t.Parallel()
	tests := []struct {
		addr net.Addr
		want string
	}{
		{&net.TCPAddr{IP: net.ParseIP("192.0.2.1"), Port: 21}, "192.0.2.1"},
		{&net.UDPAddr{IP: net.ParseIP("2001:db8::1"), Port: 21}, "2001:db8::1"},
		{pipeAddr{}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		got := PeerIP(tt.addr)
		if tt.want == "" {
			if got != nil {
				t.Errorf("PeerIP(%v) = %v, want nil", tt.addr, got)
			}
			continue
		}
		if !got.Equal(net.ParseIP(tt.want)) {
			t.Errorf("PeerIP(%v) = %v, want %s", tt.addr, got, tt.want)
		}
	}
}

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }
