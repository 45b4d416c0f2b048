// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Params controls password hashing cost. Hashes produced with other
// params still verify and are flagged for rehash.
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

var passwordParams = DefaultArgon2Params

// SetPasswordParams replaces the hashing cost used by HashPassword. Call
// once at startup, before any request is served.
func SetPasswordParams(p Argon2Params) {
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
		return
	}
	if p.KeyLen == 0 {
		p.KeyLen = DefaultArgon2Params.KeyLen
	}
	if p.SaltLen == 0 {
		p.SaltLen = DefaultArgon2Params.SaltLen
	}
	passwordParams = p
}

func HashPassword(password string) (string, error) {
	p := passwordParams

	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func VerifyPassword(password, encodedHash string) (bool, error) {
	params, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	otherHash := argon2.IDKey(
		[]byte(password),
		salt,
		params.Time,
		params.Memory,
		params.Threads,
		params.KeyLen,
	)

	return subtle.ConstantTimeCompare(hash, otherHash) == 1, nil
}

// VerifyPasswordTimingSafe always runs one argon2 derivation, even when the
// account does not exist, so response time does not reveal registered
// emails. A non-empty newHash means the stored hash should be upgraded.
func VerifyPasswordTimingSafe(
	password string,
	encodedHash *string,
) (valid bool, newHash string, err error) {
	if encodedHash == nil || *encodedHash == "" {
		//nolint:errcheck // result intentionally discarded
		_, _ = VerifyPassword(password, dummyHash)
		return false, "", nil
	}

	valid, err = VerifyPassword(password, *encodedHash)
	if err != nil || !valid {
		return false, "", err
	}

	if needsRehash(*encodedHash) {
		if rehashed, hashErr := HashPassword(password); hashErr == nil {
			newHash = rehashed
		}
	}

	return true, newHash, nil
}

var dummyHash = mustHash("eventhub-timing-equalizer")

func mustHash(password string) string {
	hash, err := HashPassword(password)
	if err != nil {
		panic(fmt.Sprintf("security: generate dummy hash: %v", err))
	}
	return hash
}

func decodeHash(encodedHash string) (*Argon2Params, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, nil, fmt.Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return nil, nil, nil, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, nil, fmt.Errorf("incompatible version: %d", version)
	}

	params := &Argon2Params{}
	if _, err := fmt.Sscanf(
		parts[3],
		"m=%d,t=%d,p=%d",
		&params.Memory,
		&params.Time,
		&params.Threads,
	); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode salt: %w", err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode hash: %w", err)
	}

	//nolint:gosec // G115: argon2 key lengths are small
	params.KeyLen = uint32(len(hash))
	params.SaltLen = len(salt)

	return params, salt, hash, nil
}

func needsRehash(encodedHash string) bool {
	params, _, _, err := decodeHash(encodedHash)
	if err != nil {
		return true
	}

	p := passwordParams
	return params.Memory != p.Memory ||
		params.Time != p.Time ||
		params.Threads != p.Threads ||
		params.KeyLen != p.KeyLen
}

func GenerateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

const base36Upper = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandomBase36 returns n characters drawn uniformly from [0-9A-Z].
func RandomBase36(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)

	limit := big.NewInt(int64(len(base36Upper)))
	for range n {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate random index: %w", err)
		}
		sb.WriteByte(base36Upper[idx.Int64()])
	}

	return sb.String(), nil
}
