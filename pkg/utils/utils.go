package utils

import (
	"crypto/rand"
	"math/big"
)

const randomAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// GenerateRandomString returns a random string of the given length
// drawn from an unambiguous alphanumeric alphabet, suitable for
// system-generated temporary passwords.
func GenerateRandomString(length int) string {
	result := make([]byte, length)
	max := big.NewInt(int64(len(randomAlphabet)))
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform's entropy
			// source is unavailable; nothing sensible to return then.
			panic(err)
		}
		result[i] = randomAlphabet[n.Int64()]
	}
	return string(result)
}
