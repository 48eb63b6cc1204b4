package services

import (
	"crypto/subtle"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// IssueSecret mints a fresh capability secret. Only its digest is stored;
// the secret itself is handed to the creator once.
func IssueSecret() (secret string, digest []byte, err error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", nil, fmt.Errorf("generate secret: %w", err)
	}
	secret = id.String()
	return secret, Digest(secret), nil
}

// Digest is the at-rest form of a secret.
func Digest(secret string) []byte {
	sum := sha3.Sum256([]byte(secret))
	return sum[:]
}

// Authorize checks a presented secret against a stored digest. An empty
// secret never authorizes.
func Authorize(digest []byte, presented string) error {
	if presented == "" || len(digest) == 0 {
		return ErrForbidden
	}
	if subtle.ConstantTimeCompare(digest, Digest(presented)) != 1 {
		return ErrForbidden
	}
	return nil
}
