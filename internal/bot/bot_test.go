package bot

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/betbot/signalbot/internal/bridge"
	"github.com/betbot/signalbot/internal/chat"
	"github.com/betbot/signalbot/internal/ledger"
	"github.com/betbot/signalbot/pkg/persistence"
)

type fakeTransport struct {
	in   chan chat.Update
	mu   sync.Mutex
	sent []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan chat.Update, 16)}
}

func (f *fakeTransport) Updates() <-chan chat.Update { return f.in }

func (f *fakeTransport) Send(_ context.Context, _ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeTransport) contains(substr string) bool {
	for _, m := range f.messages() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

type fakeOracle struct {
	dir ledger.Direction
	err error
}

func (o fakeOracle) Predict(context.Context, []int) (ledger.Direction, error) {
	return o.dir, o.err
}

type identityRates struct{}

func (identityRates) USDToCAD(_ context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	return amount, nil
}

func newTestBot(t *testing.T, roller ledger.Roller, ora fakeOracle) (*Bot, *fakeTransport, *ledger.Store) {
	t.Helper()
	return newTestBotBalance(t, roller, ora, decimal.Decimal{})
}

func newTestBotBalance(t *testing.T, roller ledger.Roller, ora fakeOracle, initial decimal.Decimal) (*Bot, *fakeTransport, *ledger.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := ledger.Open(ledger.Config{
		DBPath:         filepath.Join(dir, "ledger.db"),
		InitialBalance: initial,
		Roller:         roller,
	})
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	transport := newFakeTransport()
	b := New(Options{
		Ledger:        store,
		Bridge:        bridge.New(),
		Oracle:        ora,
		Rates:         identityRates{},
		Transport:     transport,
		Persist:       persistence.NewJSONFileService(filepath.Join(dir, "state")),
		OracleTimeout: time.Second,
	})
	b.signalDelay = func() time.Duration { return time.Millisecond }
	return b, transport, store
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestHandleBet_WinningCall(t *testing.T) {
	b, transport, _ := newTestBot(t, ledger.FixedRoller(73), fakeOracle{dir: ledger.High})

	b.handleUpdate(context.Background(), chat.Update{ChatID: 1, Text: "/bet high"})

	if !transport.contains("WON") {
		t.Fatalf("no win reply in %v", transport.messages())
	}
	if !transport.contains("1010") {
		t.Fatalf("new balance missing from reply: %v", transport.messages())
	}
}

func TestHandleBet_InsufficientFunds(t *testing.T) {
	b, transport, store := newTestBotBalance(t, ledger.FixedRoller(73), fakeOracle{dir: ledger.High}, decimal.NewFromInt(5))

	b.handleUpdate(context.Background(), chat.Update{ChatID: 1, Text: "/bet low"})

	if !transport.contains("broke") {
		t.Fatalf("expected a broke reply, got %v", transport.messages())
	}
	balance, err := store.Balance(context.Background())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("refused wager mutated balance: %s", balance)
	}
}

func TestSignal_AutoMode_SettlesWithOraclePrediction(t *testing.T) {
	b, transport, _ := newTestBot(t, ledger.FixedRoller(73), fakeOracle{dir: ledger.High})

	b.handleUpdate(context.Background(), chat.Update{ChatID: 7, Text: "/signal"})

	if !waitFor(t, 2*time.Second, func() bool { return transport.contains("WON") }) {
		t.Fatalf("auto signal never settled: %v", transport.messages())
	}
	if !transport.contains("Signal found") {
		t.Fatalf("signal notification missing: %v", transport.messages())
	}
}

func TestSignal_OracleDown_FallsBackAndStillSettles(t *testing.T) {
	// Empty history: the fallback leans HIGH, and 73 draws HIGH.
	b, transport, _ := newTestBot(t, ledger.FixedRoller(73), fakeOracle{err: errors.New("oracle down")})

	b.handleUpdate(context.Background(), chat.Update{ChatID: 7, Text: "/signal"})

	if !waitFor(t, 2*time.Second, func() bool { return transport.contains("WON") }) {
		t.Fatalf("fallback prediction did not settle: %v", transport.messages())
	}
}

func TestSignal_CompletedTaskLeavesNoPendingEntry(t *testing.T) {
	b, transport, _ := newTestBot(t, ledger.FixedRoller(73), fakeOracle{dir: ledger.High})

	b.handleUpdate(context.Background(), chat.Update{ChatID: 7, Text: "/signal"})

	if !waitFor(t, 2*time.Second, func() bool { return transport.contains("WON") }) {
		t.Fatalf("auto signal never settled: %v", transport.messages())
	}
	if !waitFor(t, time.Second, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.pending) == 0
	}) {
		t.Fatalf("finished signal task still tracked as pending")
	}
}

func TestSignal_ResetCancelsPendingTask(t *testing.T) {
	b, transport, _ := newTestBot(t, ledger.FixedRoller(73), fakeOracle{dir: ledger.High})
	b.signalDelay = func() time.Duration { return 250 * time.Millisecond }

	ctx := context.Background()
	b.handleUpdate(ctx, chat.Update{ChatID: 7, Text: "/signal"})
	b.handleUpdate(ctx, chat.Update{ChatID: 7, Text: "/reset"})

	time.Sleep(500 * time.Millisecond)
	if transport.contains("Signal found") {
		t.Fatalf("stale signal fired after reset: %v", transport.messages())
	}
	if !transport.contains("Account reset") {
		t.Fatalf("reset reply missing: %v", transport.messages())
	}
}

func TestSignal_ManualMode_AsksForBet(t *testing.T) {
	b, transport, _ := newTestBot(t, ledger.FixedRoller(73), fakeOracle{dir: ledger.High})

	ctx := context.Background()
	b.handleUpdate(ctx, chat.Update{ChatID: 3, Text: "/config mode=manual"})
	b.handleUpdate(ctx, chat.Update{ChatID: 3, Text: "/signal"})

	if !waitFor(t, 2*time.Second, func() bool { return transport.contains("/bet high or /bet low") }) {
		t.Fatalf("manual mode did not prompt for a bet: %v", transport.messages())
	}
	if transport.contains("WON") || transport.contains("LOST") {
		t.Fatalf("manual mode settled on its own: %v", transport.messages())
	}
}

func TestSignal_AssistedMode_BridgeNotBound(t *testing.T) {
	b, transport, _ := newTestBot(t, ledger.FixedRoller(73), fakeOracle{dir: ledger.High})

	ctx := context.Background()
	b.handleUpdate(ctx, chat.Update{ChatID: 4, Text: "/config mode=assisted"})
	b.handleUpdate(ctx, chat.Update{ChatID: 4, Text: "/signal"})

	if !waitFor(t, 2*time.Second, func() bool { return transport.contains("Launch the session first") }) {
		t.Fatalf("unbound bridge not surfaced: %v", transport.messages())
	}
}

func TestWagerConfig_ApplyArgs(t *testing.T) {
	cfg := DefaultWagerConfig()
	if err := cfg.applyArgs([]string{"asset=eth", "stake=25.5", "risk=high", "mode=manual"}); err != nil {
		t.Fatalf("applyArgs: %v", err)
	}
	if cfg.Asset != "ETH" || cfg.Risk != "high" || cfg.Mode != ModeManual {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.Stake.Equal(decimal.NewFromFloat(25.5)) {
		t.Fatalf("stake = %s, want 25.5", cfg.Stake)
	}

	if err := cfg.applyArgs([]string{"stake=-1"}); err == nil {
		t.Fatalf("negative stake accepted")
	}
	if err := cfg.applyArgs([]string{"mode=yolo"}); err == nil {
		t.Fatalf("unknown mode accepted")
	}
	if err := cfg.applyArgs([]string{"garbage"}); err == nil {
		t.Fatalf("non key=value argument accepted")
	}
}

func TestWagerConfig_PersistsAcrossLoads(t *testing.T) {
	b, transport, _ := newTestBot(t, ledger.FixedRoller(73), fakeOracle{dir: ledger.High})

	ctx := context.Background()
	b.handleUpdate(ctx, chat.Update{ChatID: 9, Text: "/config stake=42 risk=low"})
	if !transport.contains("stake=42") {
		t.Fatalf("config save not confirmed: %v", transport.messages())
	}

	cfg := b.loadWagerConfig(9)
	if !cfg.Stake.Equal(decimal.NewFromInt(42)) || cfg.Risk != "low" {
		t.Fatalf("reloaded config = %+v", cfg)
	}
}
