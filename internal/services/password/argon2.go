package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minArgon2Memory uint32 = 8 * 1024
	minArgon2Salt   uint32 = 16
	minArgon2Key    uint32 = 16
)

// Argon2Params are the argon2id cost parameters. Memory is in KiB.
type Argon2Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params follows the RFC 9106 second recommended option
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (p Argon2Params) validate() error {
	if p.Memory < minArgon2Memory {
		return fmt.Errorf("argon2 memory must be >= %d KiB", minArgon2Memory)
	}
	if p.Time < 1 {
		return errors.New("argon2 time must be >= 1")
	}
	if p.Parallelism < 1 {
		return errors.New("argon2 parallelism must be >= 1")
	}
	if p.SaltLength < minArgon2Salt {
		return fmt.Errorf("argon2 salt length must be >= %d", minArgon2Salt)
	}
	if p.KeyLength < minArgon2Key {
		return fmt.Errorf("argon2 key length must be >= %d", minArgon2Key)
	}
	return nil
}

// hashArgon2id encodes as $argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
func hashArgon2id(plaintext string, p Argon2Params) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plaintext), salt, p.Time, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		AlgorithmArgon2id,
		argon2.Version,
		p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func verifyArgon2id(plaintext, encoded string) (bool, error) {
	p, salt, key, err := decodeArgon2id(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(plaintext), salt, p.Time, p.Memory, p.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

func decodeArgon2id(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != string(AlgorithmArgon2id) {
		return p, nil, nil, ErrUnknownHashFormat
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: unsupported argon2 version", ErrUnknownHashFormat)
	}

	var parallelism uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("%w: bad argon2 parameters", ErrUnknownHashFormat)
	}
	if parallelism == 0 || parallelism > 255 || p.Time == 0 || p.Memory == 0 {
		return p, nil, nil, fmt.Errorf("%w: bad argon2 parameters", ErrUnknownHashFormat)
	}
	p.Parallelism = uint8(parallelism)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, fmt.Errorf("%w: bad argon2 salt", ErrUnknownHashFormat)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: bad argon2 hash", ErrUnknownHashFormat)
	}

	return p, salt, key, nil
}
