package proton

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// chunkSize is the unit in which downloads are streamed and hashed.
const chunkSize = 64 * 1024

// Verifier computes a streaming SHA-512 digest over the bytes written to it
// and compares the result against an expected hex digest. It never buffers
// the payload.
type Verifier struct {
	expected string
	hash     hash.Hash
}

// NewVerifier returns a Verifier for the expected hex digest.
func NewVerifier(expected string) *Verifier {
	return &Verifier{
		expected: strings.TrimSpace(expected),
		hash:     sha512.New(),
	}
}

// Write feeds payload bytes into the digest. It never fails.
func (v *Verifier) Write(p []byte) (int, error) {
	return v.hash.Write(p)
}

// Verify compares the computed digest against the expected one,
// failing with ErrDigestMismatch on any difference.
func (v *Verifier) Verify() error {
	computed := hex.EncodeToString(v.hash.Sum(nil))
	if !strings.EqualFold(computed, v.expected) {
		return fmt.Errorf("%w: have %s, want %s", ErrDigestMismatch, computed, v.expected)
	}

	return nil
}

// VerifyStream digests r in fixed-size chunks and checks it against
// expected. Used for archives downloaded by an external helper, where the
// bytes did not pass through a Verifier on the way to disk.
func VerifyStream(r io.Reader, expected string) error {
	v := NewVerifier(expected)

	// Wrapping r hides io.WriterTo so the copy really proceeds chunkwise.
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(v, struct{ io.Reader }{r}, buf); err != nil {
		return fmt.Errorf("digest stream: %w", err)
	}

	return v.Verify()
}
