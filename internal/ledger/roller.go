package ledger

import (
	"crypto/rand"
	"math/big"
)

// Roller produces one uniform draw in [1,100]. The draw is the ledger's
// own fair mechanism; oracle predictions never influence it.
type Roller interface {
	Roll() int
}

// CryptoRoller draws from crypto/rand.
type CryptoRoller struct{}

func (CryptoRoller) Roll() int {
	n, err := rand.Int(rand.Reader, big.NewInt(100))
	if err != nil {
		// crypto/rand failing means the platform RNG is broken;
		// there is no meaningful recovery for a fairness primitive.
		panic("ledger: crypto/rand unavailable: " + err.Error())
	}
	return int(n.Int64()) + 1
}

// FixedRoller always returns the same value. Test use only.
type FixedRoller int

func (r FixedRoller) Roll() int { return int(r) }
