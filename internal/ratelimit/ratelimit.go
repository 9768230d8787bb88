// Package ratelimit throttles data-channel writes to a fixed number of bytes
// per second.
package ratelimit

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// maxChunkSize caps a single wait so throttled writes stay responsive to
// cancellation.
const maxChunkSize = 16 * 1024

// Limiter limits throughput in bytes per second. A nil *Limiter does not limit.
type Limiter struct {
	lim *rate.Limiter
}

// New returns a limiter allowing bytesPerSecond on average, with a burst of
// one chunk. It returns nil when bytesPerSecond <= 0.
func New(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	burst := maxChunkSize
	if bytesPerSecond < int64(burst) {
		burst = int(bytesPerSecond)
	}
	return &Limiter{lim: rate.NewLimiter(rate.Limit(bytesPerSecond), burst)}
}

type writer struct {
	ctx     context.Context
	w       io.Writer
	limiter *Limiter
}

// NewWriter wraps w so that writes wait for the limiter. Waits end early with
// ctx's error when ctx is cancelled. A nil limiter returns w unchanged.
func NewWriter(ctx context.Context, w io.Writer, limiter *Limiter) io.Writer {
	if limiter == nil {
		return w
	}
	return &writer{ctx: ctx, w: w, limiter: limiter}
}

func (w *writer) Write(p []byte) (int, error) {
	burst := w.limiter.lim.Burst()
	total := 0
	for total < len(p) {
		n := len(p) - total
		if n > burst {
			n = burst
		}
		if err := w.limiter.lim.WaitN(w.ctx, n); err != nil {
			return total, err
		}
		written, err := w.w.Write(p[total : total+n])
		total += written
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
