package limitio_test

import (
	"bytes"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/creativeprojects/imapfetch/limitio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const burst = 1024 // 1KB of burst

var (
	sizes  = []int{64 * 1024, 256 * 1024, 1024 * 1024}
	limits = []float64{500 * 1024, 1024 * 1024, 10 * 1024 * 1024}
)

func TestReadRate(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("skipping test in short mode.")
	}

	for _, limit := range limits {
		for _, size := range sizes {
			limit, size := limit, size
			t.Run(fmt.Sprintf("Read %dKiB at %.0fKiB per second", size/1024, limit/1024), func(t *testing.T) {
				t.Parallel()
				reader := limitio.NewReader(bytes.NewReader(bytes.Repeat([]byte{'x'}, size)))
				reader.SetRateLimit(limit, burst)
				start := time.Now()
				n, err := io.Copy(io.Discard, reader)
				require.NoError(t, err)
				elapsed := time.Since(start)
				realRate := float64(n) / elapsed.Seconds()
				assert.InDelta(t, 100, realRate/limit*100, 2) // 2% error margin
				t.Logf("read %d bytes in %s: %.0f bytes/sec for a limit of %.0f", n, elapsed, realRate, limit)
			})
		}
	}
}

func TestWriteRate(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("skipping test in short mode.")
	}

	for _, limit := range limits {
		for _, size := range sizes {
			limit, size := limit, size
			t.Run(fmt.Sprintf("Write %dKiB at %.0fKiB per second", size/1024, limit/1024), func(t *testing.T) {
				t.Parallel()
				writer := limitio.NewWriter(io.Discard)
				writer.SetRateLimit(limit, burst)
				start := time.Now()
				n, err := io.Copy(writer, bytes.NewReader(bytes.Repeat([]byte{'x'}, size)))
				require.NoError(t, err)
				elapsed := time.Since(start)
				realRate := float64(n) / elapsed.Seconds()
				assert.InDelta(t, 100, realRate/limit*100, 2) // 2% error margin
				t.Logf("wrote %d bytes in %s: %.0f bytes/sec for a limit of %.0f", n, elapsed, realRate, limit)
			})
		}
	}
}
