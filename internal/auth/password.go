// Package auth implements the credential primitives: password hashing and
// signed bearer tokens.  Nothing in this package touches storage.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2Params controls the cost of Argon2id hashing.  The zero value is
// not usable; start from DefaultArgon2Params.
type Argon2Params struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultArgon2Params mirrors the argon2-cffi defaults.
var DefaultArgon2Params = Argon2Params{
	Memory:  64 * 1024,
	Time:    3,
	Threads: 4,
	SaltLen: 16,
	KeyLen:  32,
}

var b64 = base64.RawStdEncoding

// Validate rejects parameters that would make hashing panic or produce
// hashes Verify refuses to decode.
func (p Argon2Params) Validate() error {
	switch {
	case p.Time == 0 || p.Time > maxArgon2Time:
		return fmt.Errorf("argon2 time must be 1-%d, got %d", maxArgon2Time, p.Time)
	case p.Threads == 0:
		return errors.New("argon2 threads must be at least 1")
	case p.Memory < 8*uint32(p.Threads) || p.Memory > maxArgon2Memory:
		return fmt.Errorf("argon2 memory must be %d-%d KiB, got %d", 8*uint32(p.Threads), maxArgon2Memory, p.Memory)
	case p.SaltLen == 0 || p.KeyLen == 0:
		return errors.New("argon2 salt and key lengths must be positive")
	}
	return nil
}

// PasswordHasher hashes passwords with Argon2id and verifies both Argon2id
// and legacy bcrypt hashes.
type PasswordHasher struct {
	params Argon2Params
}

// NewPasswordHasher returns a hasher using p for new hashes.
func NewPasswordHasher(p Argon2Params) *PasswordHasher {
	return &PasswordHasher{params: p}
}

// Hash returns the PHC-encoded Argon2id hash of plain, e.g.
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(plain), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Time, h.params.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify reports whether plain matches hash.  A malformed or unknown hash
// format yields false.
func (h *PasswordHasher) Verify(plain, hash string) bool {
	if isBcrypt(hash) {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
	}
	p, salt, key, err := decodeArgon2id(hash)
	if err != nil {
		return false
	}
	other := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, other) == 1
}

// NeedsRehash reports whether hash was produced by a different algorithm
// or with different parameters than the hasher currently uses.
func (h *PasswordHasher) NeedsRehash(hash string) bool {
	if isBcrypt(hash) {
		return true
	}
	p, _, key, err := decodeArgon2id(hash)
	if err != nil {
		return true
	}
	return p.Memory != h.params.Memory || p.Time != h.params.Time ||
		p.Threads != h.params.Threads || uint32(len(key)) != h.params.KeyLen
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

var errMalformedHash = errors.New("malformed argon2id hash")

// Upper bounds accepted when decoding a stored hash.
const (
	maxArgon2Memory = 1024 * 1024 // 1 GiB
	maxArgon2Time   = 64
)

func decodeArgon2id(hash string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, errMalformedHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, errMalformedHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, errMalformedHash
	}
	if p.Memory == 0 || p.Time == 0 || p.Threads == 0 || p.Memory > maxArgon2Memory || p.Time > maxArgon2Time {
		return p, nil, nil, errMalformedHash
	}
	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, errMalformedHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, errMalformedHash
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}
