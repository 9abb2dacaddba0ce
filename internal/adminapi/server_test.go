package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/betbot/signalbot/internal/ledger"
)

func newTestServer(t *testing.T) (*httptest.Server, *ledger.Store) {
	t.Helper()
	store, err := ledger.Open(ledger.Config{
		DBPath: filepath.Join(t.TempDir(), "ledger.db"),
		Roller: ledger.FixedRoller(73),
	})
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	s := New("127.0.0.1:0", store)
	srv := httptest.NewServer(s.srv.Handler)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestBalanceAndOutcomes(t *testing.T) {
	srv, store := newTestServer(t)

	if _, err := store.SettleWager(context.Background(), decimal.NewFromInt(10), ledger.High); err != nil {
		t.Fatalf("settle: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/balance")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	defer resp.Body.Close()
	var bal struct {
		Balance string `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&bal); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bal.Balance != "1010" {
		t.Fatalf("balance = %s, want 1010", bal.Balance)
	}

	resp2, err := http.Get(srv.URL + "/api/outcomes?limit=5")
	if err != nil {
		t.Fatalf("get outcomes: %v", err)
	}
	defer resp2.Body.Close()
	var out struct {
		Outcomes []int `json:"outcomes"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Outcomes) != 1 || out.Outcomes[0] != 73 {
		t.Fatalf("outcomes = %v, want [73]", out.Outcomes)
	}
}

func TestOutcomes_BadLimit(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/outcomes?limit=nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestReset(t *testing.T) {
	srv, store := newTestServer(t)

	if _, err := store.SettleWager(context.Background(), decimal.NewFromInt(10), ledger.Low); err != nil {
		t.Fatalf("settle: %v", err)
	}

	resp, err := http.Post(srv.URL+"/api/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("post reset: %v", err)
	}
	defer resp.Body.Close()
	var bal struct {
		Balance string `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&bal); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bal.Balance != "1000" {
		t.Fatalf("balance after reset = %s, want 1000", bal.Balance)
	}
}
