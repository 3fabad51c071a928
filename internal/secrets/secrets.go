// Package secrets generates tenant codes, tenant passwords and reset codes from
// an injected random source.
package secrets

import (
	crand "crypto/rand"
	"fmt"
	"io"
	"math/big"
	"math/rand/v2"
	"strings"
	"sync"
)

const (
	lowercase = "abcdefghijklmnopqrstuvwxyz"
	uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits    = "0123456789"
	special   = "!@#$%^&*"

	TenantCodeLength     = 6
	TenantPasswordLength = 8
	ResetCodeLength      = 6
)

// Source draws uniform choices from a byte stream.
type Source struct {
	mu sync.Mutex
	r  io.Reader
}

// New returns a Source backed by crypto/rand.
func New() *Source {
	return &Source{r: crand.Reader}
}

// NewSeeded returns a deterministic Source for tests.
func NewSeeded(seed uint64) *Source {
	var key [32]byte
	for i := range 4 {
		for j := range 8 {
			key[i*8+j] = byte(seed >> (8 * j))
		}
	}
	return &Source{r: rand.NewChaCha8(key)}
}

// Intn returns a uniform integer in [0, n).
func (s *Source) Intn(n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := crand.Int(s.r, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random source: %w", err)
	}
	return int(v.Int64()), nil
}

func (s *Source) pick(alphabet string) (byte, error) {
	i, err := s.Intn(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

// Digits returns n random decimal digits. Leading zeros are kept.
func (s *Source) Digits(n int) (string, error) {
	var b strings.Builder
	for range n {
		c, err := s.pick(digits)
		if err != nil {
			return "", err
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

// TenantCode returns a 6-digit login code. Uniqueness is the caller's concern.
func (s *Source) TenantCode() (string, error) {
	return s.Digits(TenantCodeLength)
}

// ResetCode returns a 6-digit password reset code.
func (s *Source) ResetCode() (string, error) {
	return s.Digits(ResetCodeLength)
}

// TenantPassword returns an 8-character password holding at least one
// lowercase letter, uppercase letter, digit and one of !@#$%^&*.
func (s *Source) TenantPassword() (string, error) {
	classes := []string{lowercase, uppercase, digits, special}
	all := strings.Join(classes, "")

	out := make([]byte, 0, TenantPasswordLength)
	for _, class := range classes {
		c, err := s.pick(class)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < TenantPasswordLength {
		c, err := s.pick(all)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	// Fisher-Yates so the guaranteed classes are not always in front.
	for i := len(out) - 1; i > 0; i-- {
		j, err := s.Intn(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}
