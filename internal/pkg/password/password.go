package password

import "golang.org/x/crypto/bcrypt"

// Hasher is the credential store contract: plaintext never leaves this
// package unhashed, and hashes are opaque to callers.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// Bcrypt implements Hasher with golang.org/x/crypto/bcrypt at default cost.
type Bcrypt struct{}

func (Bcrypt) Hash(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (Bcrypt) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
