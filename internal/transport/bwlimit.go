package transport

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Conn so that the moving average of bytes written does
// not exceed the configured bytes-per-second limit (§4.8 "Rate limiting").
// Reads are not limited: rsync's --bwlimit governs the sender's egress, and
// the receiver's peer is naturally throttled by the sender's pace.
type RateLimited struct {
	Conn
	limiter *rate.Limiter
}

// NewRateLimited wraps conn with a token-bucket limiter of bytesPerSec. A
// limit of 0 disables limiting (Write passes straight through).
func NewRateLimited(conn Conn, bytesPerSec int) *RateLimited {
	if bytesPerSec <= 0 {
		return &RateLimited{Conn: conn}
	}
	// Burst equal to one second's worth keeps the limiter from
	// pathologically fragmenting large writes into 1-byte waits.
	lim := rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec)
	return &RateLimited{Conn: conn, limiter: lim}
}

func (r *RateLimited) Write(p []byte) (int, error) {
	if r.limiter == nil {
		return r.Conn.Write(p)
	}
	written := 0
	for len(p) > 0 {
		chunk := p
		if len(chunk) > r.limiter.Burst() {
			chunk = chunk[:r.limiter.Burst()]
		}
		if err := r.limiter.WaitN(context.Background(), len(chunk)); err != nil {
			return written, err
		}
		n, err := r.Conn.Write(chunk)
		written += n
		if err != nil {
			return written, err
		}
		p = p[len(chunk):]
	}
	return written, nil
}

var _ io.Writer = (*RateLimited)(nil)
