// Package password hashes and verifies account passwords.
//
// New hashes use the configured algorithm. Verify reads the algorithm
// from the stored encoding, so hashes written under a previous setting
// keep working after the configuration changes.
package password

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Algorithm selects the hash function for new hashes
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// DefaultBcryptCost is the work factor for new bcrypt hashes (2^12 rounds)
const DefaultBcryptCost = 12

var (
	ErrEmptyPassword     = errors.New("password must not be empty")
	ErrEmptyHash         = errors.New("stored password hash is empty")
	ErrUnknownHashFormat = errors.New("unrecognised password hash format")
)

// Config holds hashing parameters
type Config struct {
	Algorithm  Algorithm
	BcryptCost int
	Argon2     Argon2Params
}

// DefaultConfig returns bcrypt at DefaultBcryptCost
func DefaultConfig() Config {
	return Config{
		Algorithm:  AlgorithmBcrypt,
		BcryptCost: DefaultBcryptCost,
		Argon2:     DefaultArgon2Params(),
	}
}

// Hasher hashes and verifies passwords
type Hasher struct {
	cfg Config
}

// New creates a Hasher after validating cfg
func New(cfg Config) (*Hasher, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmBcrypt
	}

	switch cfg.Algorithm {
	case AlgorithmBcrypt:
		if cfg.BcryptCost == 0 {
			cfg.BcryptCost = DefaultBcryptCost
		}
		if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
	case AlgorithmArgon2id:
		if err := cfg.Argon2.validate(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", cfg.Algorithm)
	}

	return &Hasher{cfg: cfg}, nil
}

// Hash returns a salted one-way hash of plaintext
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}

	if h.cfg.Algorithm == AlgorithmArgon2id {
		return hashArgon2id(plaintext, h.cfg.Argon2)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hashed. A mismatch is (false, nil);
// an empty or malformed hash is an error, never a match.
func (h *Hasher) Verify(plaintext, hashed string) (bool, error) {
	if hashed == "" {
		return false, ErrEmptyHash
	}

	switch {
	case strings.HasPrefix(hashed, "$"+string(AlgorithmArgon2id)+"$"):
		return verifyArgon2id(plaintext, hashed)
	case strings.HasPrefix(hashed, "$2"):
		err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext))
		if err == nil {
			return true, nil
		}
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("bcrypt: %w", err)
	default:
		return false, ErrUnknownHashFormat
	}
}
