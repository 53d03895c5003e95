package proton

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestVerifier_AcceptsMatchingDigest checks random payloads of assorted
// sizes against their own digest, including sizes straddling the chunk
// boundary and uppercase reference digests.
func TestVerifier_AcceptsMatchingDigest(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))

	sizes := []int{0, 1, 511, chunkSize - 1, chunkSize, chunkSize + 1, 3*chunkSize + 17}
	for _, size := range sizes {
		payload := make([]byte, size)
		_, _ = rng.Read(payload)

		expected := sha512Hex(payload)
		require.NoError(t, VerifyStream(bytes.NewReader(payload), expected), "size %d", size)
		require.NoError(t, VerifyStream(bytes.NewReader(payload), strings.ToUpper(expected)), "size %d upper", size)
	}
}

// TestVerifier_RejectsDifferingDigest corrupts the reference digest in
// random positions and expects ErrDigestMismatch every time.
func TestVerifier_RejectsDifferingDigest(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(2))

	for round := 0; round < 32; round++ {
		payload := make([]byte, 1+rng.Intn(4*chunkSize))
		_, _ = rng.Read(payload)

		corrupted := []byte(sha512Hex(payload))

		pos := rng.Intn(len(corrupted))
		if corrupted[pos] == 'f' {
			corrupted[pos] = '0'
		} else {
			corrupted[pos] = 'f'
		}

		err := VerifyStream(bytes.NewReader(payload), string(corrupted))
		require.ErrorIs(t, err, ErrDigestMismatch, "round %d", round)
	}
}

// TestVerifier_IncrementalWrites ensures chunked writes accumulate into the
// same digest as a single write.
func TestVerifier_IncrementalWrites(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("proton"), 10_000)

	v := NewVerifier(sha512Hex(payload))
	slicesChunk(payload, 1024)(func(chunk []byte) bool {
		_, err := v.Write(chunk)
		require.NoError(t, err)
		return true
	})

	require.NoError(t, v.Verify())
}

// slicesChunk yields fixed-size windows over b.
func slicesChunk(b []byte, size int) func(func([]byte) bool) {
	return func(yield func([]byte) bool) {
		for start := 0; start < len(b); start += size {
			end := min(start+size, len(b))
			if !yield(b[start:end]) {
				return
			}
		}
	}
}
