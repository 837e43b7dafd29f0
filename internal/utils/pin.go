package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPIN hashes a plaintext PIN using bcrypt.
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckPINHash compares a plaintext PIN with a bcrypt hash.
func CheckPINHash(pin, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}

// ValidPINFormat reports whether a PIN is 4 to 6 ASCII digits.
func ValidPINFormat(pin string) bool {
	if len(pin) < 4 || len(pin) > 6 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
