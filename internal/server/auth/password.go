package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/sstoianov/liblend/internal/common"
)

const saltLength = 16

// idKey is a seam for argon2.IDKey so tests can count or stub the
// expensive computation.
var idKey = argon2.IDKey

// HasherParams are the argon2id cost parameters, configured once at
// startup and shared read-only.
type HasherParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
}

// DefaultHasherParams are the cost parameters used unless configured
// otherwise: 64 MiB, 3 passes, 4 lanes, 32-byte output.
func DefaultHasherParams() HasherParams {
	return HasherParams{Memory: 64 * 1024, Iterations: 3, Parallelism: 4, KeyLength: 32}
}

// Hasher derives and verifies password hashes. The server key is mixed
// into every hash via an HMAC pre-hash, so a leaked hash database alone
// is not enough for an offline brute-force.
type Hasher struct {
	key    []byte
	params HasherParams
}

func NewHasher(key []byte, params HasherParams) *Hasher {
	return &Hasher{key: key, params: params}
}

// Hash derives an argon2id hash of the password under a fresh random
// salt and returns it in PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	digest := h.derive(password, salt, h.params, h.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// Verify checks password against the stored PHC hash.
//
// A nil hash means the account does not exist. That branch still runs
// one full hash computation before failing, so "no such account" and
// "wrong password" answer in the same time; the result is discarded.
// Both branches return common.ErrInvalidCredentials. A malformed stored
// hash is an internal error, not a credential error.
func (h *Hasher) Verify(password string, hash *string) error {
	if hash == nil {
		salt := make([]byte, saltLength)
		_, _ = rand.Read(salt)
		_ = h.derive(password, salt, h.params, h.params.KeyLength)
		return common.ErrInvalidCredentials
	}

	salt, stored, params, err := decodePHC(*hash)
	if err != nil {
		return fmt.Errorf("parse password hash: %w", err)
	}

	candidate := h.derive(password, salt, params, uint32(len(stored)))
	if subtle.ConstantTimeCompare(stored, candidate) != 1 {
		return common.ErrInvalidCredentials
	}
	return nil
}

// derive peppers the password with the server key and runs argon2id over
// the result.
func (h *Hasher) derive(password string, salt []byte, params HasherParams, keyLen uint32) []byte {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(password))
	return idKey(mac.Sum(nil), salt, params.Iterations, params.Memory, params.Parallelism, keyLen)
}

// decodePHC splits an argon2id PHC string into salt, digest and cost
// parameters.
func decodePHC(encoded string) (salt, digest []byte, params HasherParams, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, nil, params, fmt.Errorf("invalid PHC hash format")
	}
	if parts[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, params, fmt.Errorf("parse version: %w", err)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return nil, nil, params, fmt.Errorf("parse parameters: %w", err)
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decode salt: %w", err)
	}
	digest, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decode hash: %w", err)
	}
	return salt, digest, params, nil
}
