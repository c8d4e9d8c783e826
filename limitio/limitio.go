// Package limitio caps the transfer rate of a Reader or a Writer with a
// token bucket.
package limitio

import (
	"context"

	"golang.org/x/time/rate"
)

// await blocks until the limiter releases n more tokens, claimed in burst
// sized chunks.
func await(limiter *rate.Limiter, n int) error {
	for n > 0 {
		chunk := n
		if chunk > limiter.Burst() {
			chunk = limiter.Burst()
		}
		if err := limiter.WaitN(context.Background(), chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
