// Package password implements one-way credential hashing for local accounts.
package password

import "golang.org/x/crypto/bcrypt"

// Cost is the bcrypt work factor. It matches the factor used by the previous
// generation of the API so existing stored hashes keep verifying.
const Cost = 10

// Hash derives a salted bcrypt hash from plain. The salt and cost factor are
// embedded in the output, so nothing needs to be stored alongside it.
func Hash(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether plain matches hashed. The comparison is constant
// time and never reveals where a mismatch occurred.
func Verify(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
