package limitio

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// Reader limits the rate of reading from the source. With no rate limit
// set it is a plain passthrough.
type Reader struct {
	source  io.Reader
	limiter *rate.Limiter
}

func NewReader(r io.Reader) *Reader {
	return &Reader{
		source: r,
	}
}

// SetRateLimit caps the reading rate (bytes/sec).
func (s *Reader) SetRateLimit(bytesPerSec float64, burst int) {
	s.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

func (s *Reader) Read(p []byte) (int, error) {
	if s.limiter == nil {
		return s.source.Read(p)
	}
	// a full burst pays for the data about to arrive
	if err := s.limiter.WaitN(context.Background(), s.limiter.Burst()); err != nil {
		return 0, err
	}
	n, err := s.source.Read(p)
	if err != nil {
		return n, err
	}
	// then wait out the time owed for the rest of it
	if err := await(s.limiter, n-s.limiter.Burst()); err != nil {
		return n, err
	}
	return n, nil
}
