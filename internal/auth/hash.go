package auth

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

const saltLength = 16

// DeriveVerifier hashes a password with argon2id over the given salt.
func DeriveVerifier(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

func NewSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

func VerifyPassword(password, salt, verifier []byte) bool {
	derived := DeriveVerifier(password, salt)
	return subtle.ConstantTimeCompare(derived, verifier) == 1
}
