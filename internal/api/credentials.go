package api

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	projectIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	projectIDLength   = 45
)

// NewProjectID samples a 45-character credential uniformly from the
// alphanumeric alphabet.
func NewProjectID() (string, error) {
	alphabetSize := big.NewInt(int64(len(projectIDAlphabet)))

	buf := make([]byte, projectIDLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to sample project id: %w", err)
		}
		buf[i] = projectIDAlphabet[n.Int64()]
	}
	return string(buf), nil
}
