package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost matches the ten salt rounds accounts were historically hashed with.
const BcryptCost = 10

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var ErrUnknownHashFormat = errors.New("unknown password hash format")

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports a mismatch as false with a nil error.
	Verify(plaintext, hash string) (bool, error)
}

// Hasher writes new hashes with one algorithm and verifies both bcrypt and
// argon2id hashes, so switching algorithms keeps existing accounts working.
type Hasher struct {
	algorithm string
	params    *argon2id.Params
}

func NewBcryptHasher() *Hasher {
	return &Hasher{algorithm: "bcrypt"}
}

func NewArgon2idHasher(params *argon2id.Params) *Hasher {
	if params == nil {
		params = argon2id.DefaultParams
	}
	return &Hasher{algorithm: "argon2id", params: params}
}

// NewHasher picks the algorithm by its configured name.
func NewHasher(algorithm string) (*Hasher, error) {
	switch algorithm {
	case "", "bcrypt":
		return NewBcryptHasher(), nil
	case "argon2id":
		return NewArgon2idHasher(nil), nil
	default:
		return nil, fmt.Errorf("unsupported password hasher %q", algorithm)
	}
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	if h.algorithm == "argon2id" {
		hash, err := argon2id.CreateHash(plaintext, h.params)
		if err != nil {
			return "", fmt.Errorf("argon2id hash: %w", err)
		}
		return hash, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hash), nil
}

func (h *Hasher) Verify(plaintext, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		ok, err := argon2id.ComparePasswordAndHash(plaintext, hash)
		if err != nil {
			return false, fmt.Errorf("argon2id compare: %w", err)
		}
		return ok, nil
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("bcrypt compare: %w", err)
		}
		return true, nil
	default:
		return false, ErrUnknownHashFormat
	}
}
