package password

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const secretAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789-_"

// GenerateSecret returns a random n-character password drawn from a URL-safe
// alphabet without look-alike characters.
func GenerateSecret(n int) (string, error) {
	if n < 8 {
		return "", errors.New("secret length must be >= 8")
	}

	limit := big.NewInt(int64(len(secretAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = secretAlphabet[idx.Int64()]
	}
	return string(out), nil
}
