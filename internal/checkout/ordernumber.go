package checkout

import (
	"crypto/rand"
	"math/big"
)

// orderNumberAlphabet omits characters that are easy to misread (0/O, 1/I).
const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const orderNumberLength = 8

// NewOrderNumber returns a short human-friendly reference. It is not unique
// by construction; the order id remains the key.
func NewOrderNumber() string {
	b := make([]byte, orderNumberLength)
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		b[i] = orderNumberAlphabet[n.Int64()]
	}
	return string(b)
}
