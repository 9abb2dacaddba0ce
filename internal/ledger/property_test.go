package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"testing/quick"

	"github.com/shopspring/decimal"
)

// Conservation: for any sequence of settled wagers the final balance is
// the initial balance plus the sum of deltas, where each delta is +stake
// iff the recorded draw's classification matched the prediction.
func TestProperty_Conservation(t *testing.T) {
	property := func(draws []uint8, predictHigh []bool, stakes []uint8) bool {
		n := len(draws)
		if n == 0 || len(predictHigh) < n || len(stakes) < n {
			return true
		}
		if n > 30 {
			n = 30
		}

		roller := &seqRoller{vals: make([]int, n)}
		for i := 0; i < n; i++ {
			roller.vals[i] = 1 + int(draws[i])%100
		}

		ctx := context.Background()
		s, err := Open(Config{
			DBPath:         filepath.Join(t.TempDir(), "prop.db"),
			InitialBalance: decimal.NewFromInt(100000),
			Roller:         roller,
		})
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer s.Close()

		expected := decimal.NewFromInt(100000)
		for i := 0; i < n; i++ {
			stake := decimal.NewFromInt(1 + int64(stakes[i])%50)
			predicted := Low
			if predictHigh[i] {
				predicted = High
			}
			settlement, err := s.SettleWager(ctx, stake, predicted)
			if err != nil {
				t.Logf("settle %d: %v", i, err)
				return false
			}
			if settlement.DrawnValue != roller.vals[i] {
				t.Logf("draw %d = %d, want %d", i, settlement.DrawnValue, roller.vals[i])
				return false
			}
			if Classify(settlement.DrawnValue) == predicted {
				expected = expected.Add(stake)
			} else {
				expected = expected.Sub(stake)
			}
		}

		final, err := s.Balance(ctx)
		if err != nil {
			t.Logf("balance: %v", err)
			return false
		}
		if !final.Equal(expected) {
			t.Logf("final=%s expected=%s", final, expected)
			return false
		}

		// History reflects insertion order exactly, newest first.
		recent, err := s.RecentOutcomes(ctx, n)
		if err != nil {
			t.Logf("recent: %v", err)
			return false
		}
		if len(recent) != n {
			return false
		}
		for i := 0; i < n; i++ {
			if recent[i] != roller.vals[n-1-i] {
				t.Logf("history out of order at %d: %v", i, recent)
				return false
			}
		}
		return true
	}

	if err := quick.Check(property, &quick.Config{MaxCount: 25}); err != nil {
		t.Errorf("conservation property failed: %v", err)
	}
}
