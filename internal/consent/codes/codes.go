// Package codes generates and checks the one-time codes sent to parents.
package codes

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	dErrors "guardian/pkg/domain-errors"
)

// Length is the number of decimal digits in a code.
const Length = 6

var upper = big.NewInt(1_000_000)

// Generate returns a uniformly random code, zero-padded to Length digits.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("could not generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", Length, n.Int64()), nil
}

// Hash returns the bcrypt hash that is stored in place of the code.
func Hash(code string) ([]byte, error) {
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "code cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("could not hash code: %w", err)
	}
	return hashed, nil
}

// Verify checks a submitted code against a stored hash. A mismatch returns
// CodeVerificationInvalid.
func Verify(code string, hash []byte) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(code)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeVerificationInvalid, "verification code does not match")
		}
		return fmt.Errorf("could not verify code: %w", err)
	}
	return nil
}
