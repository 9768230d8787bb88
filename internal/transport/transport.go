// Package transport wraps socket setup for the fixed, well-known ports used by
// both peers.
//
// The data port is bound and released once per transfer, so listeners are
// created with address reuse enabled where the platform supports it; otherwise
// a second transfer within the TIME_WAIT window would fail to bind.
package transport

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/netutil"
)

// Listen opens a TCP listener on addr with address reuse enabled.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}

// LimitListener returns a listener that accepts at most n simultaneous
// connections. Accept blocks until a previously accepted connection is closed.
// n <= 0 returns l unchanged.
func LimitListener(l net.Listener, n int) net.Listener {
	if n <= 0 {
		return l
	}
	return netutil.LimitListener(l, n)
}
