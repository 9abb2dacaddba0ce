package ledger

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Direction is a wager prediction: will the next draw land above or below
// the midpoint.
type Direction string

const (
	High Direction = "HIGH"
	Low  Direction = "LOW"
)

// Classify maps a drawn value in [1,100] to its direction. Values above
// 50 are HIGH, everything else is LOW.
func Classify(v int) Direction {
	if v > 50 {
		return High
	}
	return Low
}

// Outcome is one settled draw, as recorded in history.
type Outcome struct {
	Seq        int64 `json:"seq"`
	DrawnValue int   `json:"drawn_value"`
}

// Settlement is the result of one settled wager.
type Settlement struct {
	DrawnValue int             `json:"drawn_value"`
	Won        bool            `json:"won"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

var (
	// ErrInsufficientFunds means the stake exceeded the balance at
	// evaluation time. Nothing was mutated.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrInvalidStake means the stake was zero or negative.
	ErrInvalidStake = errors.New("ledger: stake must be positive")
)
