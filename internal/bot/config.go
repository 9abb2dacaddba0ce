package bot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/betbot/signalbot/pkg/persistence"
)

// WagerConfig is the per-chat wager setup. It survives restarts through
// the persistence store, keyed by chat ID.
type WagerConfig struct {
	Asset string          `json:"asset"`
	Stake decimal.Decimal `json:"stake"`
	Risk  string          `json:"risk"`
	Mode  string          `json:"mode"`
}

const (
	ModeAuto     = "auto"     // settle immediately after a signal fires
	ModeManual   = "manual"   // announce the signal, wait for /bet
	ModeAssisted = "assisted" // type the action into the remote session
)

func DefaultWagerConfig() WagerConfig {
	return WagerConfig{
		Asset: "BTC",
		Stake: decimal.NewFromInt(10),
		Risk:  "medium",
		Mode:  ModeAuto,
	}
}

func (c *WagerConfig) Validate() error {
	if !c.Stake.IsPositive() {
		return fmt.Errorf("stake must be positive, got %s", c.Stake)
	}
	switch c.Risk {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("risk must be low, medium or high, got %q", c.Risk)
	}
	switch c.Mode {
	case ModeAuto, ModeManual, ModeAssisted:
	default:
		return fmt.Errorf("mode must be auto, manual or assisted, got %q", c.Mode)
	}
	if strings.TrimSpace(c.Asset) == "" {
		return fmt.Errorf("asset must not be empty")
	}
	return nil
}

// applyArgs mutates the config from "key=value" command arguments.
func (c *WagerConfig) applyArgs(args []string) error {
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", arg)
		}
		v = strings.TrimSpace(v)
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "asset":
			c.Asset = strings.ToUpper(v)
		case "stake":
			stake, err := decimal.NewFromString(v)
			if err != nil {
				return fmt.Errorf("bad stake %q", v)
			}
			c.Stake = stake
		case "risk":
			c.Risk = strings.ToLower(v)
		case "mode":
			c.Mode = strings.ToLower(v)
		default:
			return fmt.Errorf("unknown setting %q", k)
		}
	}
	return c.Validate()
}

func (b *Bot) loadWagerConfig(chatID int64) WagerConfig {
	cfg := DefaultWagerConfig()
	store := b.persist.NewStore("wager", fmt.Sprintf("%d", chatID), "config")
	if err := store.Load(&cfg); err != nil && err != persistence.ErrNotExists {
		log.Warnf("load wager config chat=%d: %v", chatID, err)
	}
	return cfg
}

func (b *Bot) saveWagerConfig(chatID int64, cfg WagerConfig) {
	store := b.persist.NewStore("wager", fmt.Sprintf("%d", chatID), "config")
	if err := store.Save(cfg); err != nil {
		log.Warnf("save wager config chat=%d: %v", chatID, err)
	}
}
