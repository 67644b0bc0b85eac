package cryptox

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// CodeAlphabet is upper-case ASCII letters followed by digits.
const CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var ErrInvalidCodeParams = errors.New("cryptox: invalid code length or alphabet")

// GenerateCode returns length characters drawn uniformly and independently
// from alphabet. rand.Int samples without modulo bias.
func GenerateCode(length int, alphabet string) (string, error) {
	if length <= 0 || len(alphabet) < 2 {
		return "", ErrInvalidCodeParams
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
