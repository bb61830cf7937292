// Package txid generates tagged fixed-length random identifiers over a
// caller-supplied alphabet. Uniqueness is probabilistic, which is all the
// callers need.
package txid

import (
	"crypto/rand"
	"errors"
)

// DefaultAlphabet is uppercase alphanumerics without lookalike characters.
const DefaultAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// New returns tag + a random string of length n drawn from alphabet.
func New(tag, alphabet string, n int) (string, error) {
	if alphabet == "" {
		return "", errors.New("txid: empty alphabet")
	}
	if n <= 0 {
		return "", errors.New("txid: non-positive length")
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return tag + string(buf), nil
}
