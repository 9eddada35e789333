package auth

// PASSWORD HASHING:
// Email/password accounts store a bcrypt hash. bcrypt salts every hash,
// embeds the salt and cost in its output, and is slow on purpose:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (2^12 rounds)
//	 version

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password length limits. bcrypt silently truncates anything past 72 bytes,
// so longer passwords are rejected instead.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// defaultCost is the bcrypt work factor for production (~250ms per hash).
const defaultCost = 12

// ErrPasswordMismatch is returned by Verify for a wrong password.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService hashes and verifies passwords. The cost is a field so
// tests can use bcrypt.MinCost.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom cost.
// Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// CheckLength reports whether plaintext fits the password length limits.
func CheckLength(plaintext string) error {
	switch {
	case len(plaintext) < MinPasswordLength:
		return fmt.Errorf("auth: password must be at least %d bytes", MinPasswordLength)
	case len(plaintext) > MaxPasswordLength:
		return fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordLength)
	}
	return nil
}

// Hash returns the bcrypt hash of plaintext.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if err := CheckLength(plaintext); err != nil {
		return "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrPasswordMismatch
// when it doesn't. The comparison is constant time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
