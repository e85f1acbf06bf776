// Package access derives and checks the shared-secret token the remote
// store expects in the Authorization header.
package access

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Salt is fixed: both ends derive the same token from the same secret.
	salt       = "rosterkeeper.v1"
	iterations = 4096
	keyLen     = 32
)

type Access struct {
	token string
}

// NewAccess derives the access token from the shared secret. An empty
// secret yields an empty token and requests go out unauthenticated.
func NewAccess(secret string) *Access {
	if secret == "" {
		return &Access{}
	}
	key := pbkdf2.Key([]byte(secret), []byte(salt), iterations, keyLen, sha256.New)
	return &Access{token: hex.EncodeToString(key)}
}

// Token returns the derived token, empty when no secret was configured.
func (a *Access) Token() string {
	return a.token
}

// Verify compares a presented token against the derived one in constant time.
func (a *Access) Verify(token string) bool {
	return subtle.ConstantTimeCompare([]byte(a.token), []byte(token)) == 1
}
