package limitio

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// Writer limits the rate of writing to the destination. With no rate
// limit set it is a plain passthrough.
type Writer struct {
	w       io.Writer
	limiter *rate.Limiter
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w: w,
	}
}

// SetRateLimit caps the writing rate (bytes/sec).
func (s *Writer) SetRateLimit(bytesPerSec float64, burst int) {
	s.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

func (s *Writer) Write(p []byte) (int, error) {
	if s.limiter == nil {
		return s.w.Write(p)
	}
	// a full burst pays for the data about to go out
	if err := s.limiter.WaitN(context.Background(), s.limiter.Burst()); err != nil {
		return 0, err
	}
	n, err := s.w.Write(p)
	if err != nil {
		return n, err
	}
	// then wait out the time owed for the rest of it
	if err := await(s.limiter, n-s.limiter.Burst()); err != nil {
		return n, err
	}
	return n, nil
}
