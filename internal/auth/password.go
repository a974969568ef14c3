package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned by Hasher.Verify when the password does
// not match the stored digest.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// Hasher turns plaintext passwords into stored digests and checks them.
// Call sites depend only on this interface, so the scheme can change
// without touching them.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(hash, plaintext string) error
}

// Supported values for the password scheme setting.
const (
	SchemeSHA256 = "sha256"
	SchemeBcrypt = "bcrypt"
)

// NewHasher returns the Hasher for scheme. bcryptCost is ignored for sha256;
// zero selects bcrypt's default cost.
func NewHasher(scheme string, bcryptCost int) (Hasher, error) {
	switch scheme {
	case SchemeSHA256, "":
		return SHA256Hasher{}, nil
	case SchemeBcrypt:
		if bcryptCost != 0 && (bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost) {
			return nil, fmt.Errorf("auth: bcrypt cost %d out of range [%d, %d]", bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
		}
		return NewBcryptHasher(bcryptCost), nil
	default:
		return nil, fmt.Errorf("auth: unknown password scheme %q", scheme)
	}
}

// SHA256Hasher stores base64(SHA-256(password)): unsalted and single-round.
// It exists so accounts created by earlier deployments keep working; new
// deployments should select bcrypt.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(plaintext string) (string, error) {
	sum := sha256.Sum256([]byte(plaintext))
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

func (h SHA256Hasher) Verify(hash, plaintext string) error {
	want, _ := h.Hash(plaintext)
	if subtle.ConstantTimeCompare([]byte(hash), []byte(want)) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

const defaultCost = 12

// BcryptHasher hashes with bcrypt. Verify still accepts legacy SHA-256
// digests, so switching the scheme does not lock out existing accounts;
// their digest is replaced the next time they change password.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = defaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (p *BcryptHasher) Hash(plaintext string) (string, error) {
	// bcrypt only looks at the first 72 bytes; refuse rather than truncate.
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

func (p *BcryptHasher) Verify(hash, plaintext string) error {
	if !strings.HasPrefix(hash, "$2") {
		return SHA256Hasher{}.Verify(hash, plaintext)
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
