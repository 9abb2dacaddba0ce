package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/betbot/signalbot/internal/chat"
	"github.com/betbot/signalbot/internal/ledger"
)

func (b *Bot) handleUpdate(ctx context.Context, u chat.Update) {
	reqID := uuid.NewString()[:8]
	l := log.WithField("req", reqID).WithField("chat", u.ChatID)

	fields := strings.Fields(strings.TrimSpace(u.Text))
	if len(fields) == 0 {
		return
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	l.Infof("command %s %v", cmd, args)

	switch cmd {
	case "/start":
		cfg := b.loadWagerConfig(u.ChatID)
		b.reply(ctx, u.ChatID, fmt.Sprintf(
			"Ready. Current setup: %s stake %s risk %s mode %s.\nUse /signal to hunt for a signal, /config to change the setup.",
			cfg.Asset, cfg.Stake, cfg.Risk, cfg.Mode))

	case "/config":
		b.handleConfig(ctx, u.ChatID, args)

	case "/balance":
		b.handleBalance(ctx, u.ChatID)

	case "/history":
		b.handleHistory(ctx, u.ChatID)

	case "/reset":
		b.handleReset(ctx, u.ChatID)

	case "/signal":
		b.handleSignal(ctx, u.ChatID, reqID)

	case "/bet":
		b.handleBet(ctx, u.ChatID, args)

	default:
		b.reply(ctx, u.ChatID, "Unknown command. Try /signal, /bet high, /balance, /history, /config or /reset.")
	}
}

func (b *Bot) handleConfig(ctx context.Context, chatID int64, args []string) {
	cfg := b.loadWagerConfig(chatID)
	if len(args) == 0 {
		b.reply(ctx, chatID, fmt.Sprintf("asset=%s stake=%s risk=%s mode=%s",
			cfg.Asset, cfg.Stake, cfg.Risk, cfg.Mode))
		return
	}
	if err := cfg.applyArgs(args); err != nil {
		b.reply(ctx, chatID, "Bad setting: "+err.Error())
		return
	}
	b.saveWagerConfig(chatID, cfg)
	b.reply(ctx, chatID, fmt.Sprintf("Saved: asset=%s stake=%s risk=%s mode=%s",
		cfg.Asset, cfg.Stake, cfg.Risk, cfg.Mode))
}

func (b *Bot) handleBalance(ctx context.Context, chatID int64) {
	balance, err := b.ledger.Balance(ctx)
	if err != nil {
		log.Errorf("balance read chat=%d: %v", chatID, err)
		b.reply(ctx, chatID, "Could not read the balance, try again.")
		return
	}
	cad, _ := b.rates.USDToCAD(ctx, balance)
	b.reply(ctx, chatID, fmt.Sprintf("Balance: %s USD (~%s CAD)", balance, cad.Round(2)))
}

func (b *Bot) handleHistory(ctx context.Context, chatID int64) {
	recent, err := b.ledger.RecentOutcomes(ctx, 10)
	if err != nil {
		log.Errorf("history read chat=%d: %v", chatID, err)
		b.reply(ctx, chatID, "Could not read the history, try again.")
		return
	}
	if len(recent) == 0 {
		b.reply(ctx, chatID, "No draws yet.")
		return
	}
	parts := make([]string, len(recent))
	for i, v := range recent {
		parts[i] = fmt.Sprintf("%d(%s)", v, ledger.Classify(v))
	}
	b.reply(ctx, chatID, "Last draws, newest first: "+strings.Join(parts, " "))
}

func (b *Bot) handleReset(ctx context.Context, chatID int64) {
	b.cancelPendingSignal(chatID)
	if err := b.ledger.ResetAccount(ctx); err != nil {
		log.Errorf("reset chat=%d: %v", chatID, err)
		b.reply(ctx, chatID, "Reset failed, try again.")
		return
	}
	balance, err := b.ledger.Balance(ctx)
	if err != nil {
		log.Errorf("balance after reset chat=%d: %v", chatID, err)
		b.reply(ctx, chatID, "Account reset.")
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("Account reset. Balance: %s USD", balance))
}

func (b *Bot) handleBet(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		b.reply(ctx, chatID, "Usage: /bet high or /bet low")
		return
	}
	var predicted ledger.Direction
	switch strings.ToLower(args[0]) {
	case "high":
		predicted = ledger.High
	case "low":
		predicted = ledger.Low
	default:
		b.reply(ctx, chatID, "Usage: /bet high or /bet low")
		return
	}
	cfg := b.loadWagerConfig(chatID)
	b.settleAndReply(ctx, chatID, cfg, predicted)
}
