package services

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"raffle/internal/models"
)

// Selector picks one candidate at random from a list.
// Rand must be a cryptographically secure source; nil means crypto/rand.
type Selector struct {
	Rand io.Reader
}

// SelectWinner picks one candidate using crypto/rand.
func SelectWinner[T any](candidates []T) (T, error) {
	return Pick(Selector{}, candidates)
}

// Pick draws 4 bytes from the selector's source, reads them as a
// little-endian 32-bit value, clears the sign bit and reduces it modulo
// len(candidates).
//
// 2^31 is not a multiple of most candidate counts, so lower indexes are
// very slightly more likely. The bias is below 1e-6 for any count under
// a thousand and is kept so that a given byte sequence always selects
// the same index.
func Pick[T any](s Selector, candidates []T) (T, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, models.ErrEmptyInput
	}

	src := s.Rand
	if src == nil {
		src = rand.Reader
	}

	var buf [4]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return zero, fmt.Errorf("read random bytes: %w", err)
	}
	value := binary.LittleEndian.Uint32(buf[:]) & 0x7fffffff

	return candidates[value%uint32(len(candidates))], nil
}
