// Package datachan implements the rendezvous that opens one data connection
// per transfer.
//
// The requester listens on the well-known data port and the interpreter
// connects back to the address of the requester it already holds a control
// connection with. The only check that a data connection belongs to a
// session is that both connections come from the same IP address. That check
// is advisory: any process on the peer host can satisfy it.
package datachan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/gonzalop/ftransfer/internal/transport"
)

// ErrNoPeerIP is returned when an address carries no usable IP.
var ErrNoPeerIP = errors.New("datachan: address has no IP")

// PeerIP extracts the IP from a connection address.
func PeerIP(addr net.Addr) net.IP {
	if addr == nil {
		return nil
	}
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	return net.ParseIP(host)
}

// SameHost reports whether addr carries the IP expected.
func SameHost(addr net.Addr, expected net.IP) bool {
	ip := PeerIP(addr)
	return ip != nil && expected != nil && ip.Equal(expected)
}

// Listen binds the data port for one transfer. addr is typically ":30020".
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	return transport.Listen(ctx, addr)
}

// AcceptFrom accepts connections on ln until one arrives from peer. Others
// are closed and logged, and the loop keeps waiting. ln is closed before
// returning. Cancelling ctx unblocks the wait.
func AcceptFrom(ctx context.Context, ln net.Listener, peer net.IP, logger *slog.Logger) (net.Conn, error) {
	if peer == nil {
		ln.Close()
		return nil, ErrNoPeerIP
	}
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		if SameHost(conn.RemoteAddr(), peer) {
			return conn, nil
		}

		if logger != nil {
			logger.Warn("data_connection_rejected",
				"remote_addr", conn.RemoteAddr().String(),
				"expected_ip", peer.String(),
			)
		}
		conn.Close()
	}
}

// DialBack connects to the data port on the host at the other end of the
// control connection. Only the port of control is replaced.
func DialBack(ctx context.Context, dialer *net.Dialer, control net.Addr, port int) (net.Conn, error) {
	ip := PeerIP(control)
	if ip == nil {
		return nil, ErrNoPeerIP
	}
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	addr := net.JoinHostPort(ip.String(), strconv.Itoa(port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to data port %s: %w", addr, err)
	}
	return conn, nil
}
