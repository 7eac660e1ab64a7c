package credential

import (
	"fmt"
	"strings"

	"github.com/frahmantamala/todolist/internal"
)

const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

// Hasher turns plaintext passwords into salted one-way hashes. Verify never
// errors: any mismatch, including a malformed stored hash, is false.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, stored string) bool
}

// Rehasher is implemented by hashers that can tell when a stored hash should
// be replaced after the next successful login.
type Rehasher interface {
	NeedsRehash(stored string) bool
}

// MultiHasher hashes with the primary algorithm and verifies against whichever
// algorithm produced the stored hash, so rows written before a hasher change
// keep working.
type MultiHasher struct {
	primary Hasher
	argon2  *Argon2
	bcrypt  *Bcrypt
}

func NewMultiHasher(primary string, argon2 *Argon2, bcrypt *Bcrypt) (*MultiHasher, error) {
	m := &MultiHasher{argon2: argon2, bcrypt: bcrypt}
	switch primary {
	case AlgorithmArgon2id:
		if argon2 == nil {
			return nil, fmt.Errorf("argon2id selected but not configured")
		}
		m.primary = argon2
	case AlgorithmBcrypt:
		if bcrypt == nil {
			return nil, fmt.Errorf("bcrypt selected but not configured")
		}
		m.primary = bcrypt
	default:
		return nil, fmt.Errorf("unknown password hasher %q", primary)
	}
	return m, nil
}

// NewFromConfig builds the hasher selected by the security config.
func NewFromConfig(cfg internal.SecurityConfig) (*MultiHasher, error) {
	a, err := NewArgon2(Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Time:        cfg.Argon2.Time,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("argon2 config: %w", err)
	}
	return NewMultiHasher(cfg.PasswordHasher, a, NewBcrypt(cfg.BCryptCost))
}

func (m *MultiHasher) Hash(plain string) (string, error) {
	return m.primary.Hash(plain)
}

func (m *MultiHasher) Verify(plain, stored string) bool {
	switch algorithmOf(stored) {
	case AlgorithmArgon2id:
		return m.argon2 != nil && m.argon2.Verify(plain, stored)
	case AlgorithmBcrypt:
		return m.bcrypt != nil && m.bcrypt.Verify(plain, stored)
	default:
		return false
	}
}

// NeedsRehash reports true when stored came from another algorithm than the
// primary or from weaker parameters than the primary's.
func (m *MultiHasher) NeedsRehash(stored string) bool {
	switch primary := m.primary.(type) {
	case *Argon2:
		return algorithmOf(stored) != AlgorithmArgon2id || primary.NeedsRehash(stored)
	case *Bcrypt:
		return algorithmOf(stored) != AlgorithmBcrypt || primary.NeedsRehash(stored)
	default:
		return false
	}
}

func algorithmOf(stored string) string {
	switch {
	case strings.HasPrefix(stored, "$"+AlgorithmArgon2id+"$"):
		return AlgorithmArgon2id
	case strings.HasPrefix(stored, "$2a$"), strings.HasPrefix(stored, "$2b$"), strings.HasPrefix(stored, "$2y$"):
		return AlgorithmBcrypt
	default:
		return ""
	}
}
