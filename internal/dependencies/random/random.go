package random

import (
	"crypto/rand"
	"math/big"
	mathrand "math/rand/v2"
)

// Alphanumeric is the alphabet used for generated guest-name suffixes.
// Look-alike characters are left out.
const Alphanumeric = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Random provides random number generation that can be mocked for testing
type Random interface {
	// Intn returns a random int in [0, n), or 0 when n <= 0
	Intn(n int) int

	// String generates a random string of the given length from the given alphabet
	String(length int, alphabet string) string
}

// Choice picks a uniformly random element of items through r. It reports
// false for an empty slice.
func Choice[T any](r Random, items []T) (T, bool) {
	if len(items) == 0 {
		var zero T
		return zero, false
	}
	return items[r.Intn(len(items))], true
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Intn returns a cryptographically random int in [0, n). If the system
// source fails it falls back to the runtime generator rather than biasing
// every result to zero.
func (r *CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	result, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return mathrand.IntN(n)
	}
	return int(result.Int64())
}

// String generates a random string of the given length from the given alphabet
func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || len(alphabet) == 0 {
		return ""
	}
	symbols := []byte(alphabet)
	result := make([]byte, length)
	for i := range result {
		result[i], _ = Choice(Random(r), symbols)
	}
	return string(result)
}
