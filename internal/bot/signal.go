package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/betbot/signalbot/internal/bridge"
	"github.com/betbot/signalbot/internal/ledger"
	"github.com/betbot/signalbot/internal/oracle"
)

// Delay before the fake "signal found" message, uniform in this range.
const (
	signalDelayMin = 2 * time.Second
	signalDelayMax = 6 * time.Second
)

func randomSignalDelay() time.Duration {
	return signalDelayMin + time.Duration(rand.Int63n(int64(signalDelayMax-signalDelayMin)))
}

// handleSignal schedules a delayed signal notification as an explicit
// task with its own cancel, tracked per chat. A newer /signal or a
// /reset cancels the pending one instead of firing stale into the chat.
func (b *Bot) handleSignal(ctx context.Context, chatID int64, reqID string) {
	cfg := b.loadWagerConfig(chatID)

	sctx, cancel := context.WithCancel(ctx)
	task := &signalTask{cancel: cancel}
	b.trackSignal(chatID, task)

	delay := b.signalDelay()
	b.reply(ctx, chatID, fmt.Sprintf("Scanning %s...", cfg.Asset))

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.untrackSignal(chatID, task)
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-sctx.Done():
			log.WithField("req", reqID).Infof("signal task cancelled chat=%d", chatID)
			return
		case <-timer.C:
		}

		b.reply(sctx, chatID, fmt.Sprintf("Signal found on %s!", cfg.Asset))

		switch cfg.Mode {
		case ModeManual:
			b.reply(sctx, chatID, "Place your call with /bet high or /bet low.")
		case ModeAssisted:
			b.assistedBet(sctx, chatID, cfg)
		default: // ModeAuto
			b.settleAndReply(sctx, chatID, cfg, b.predict(sctx, chatID))
		}
	}()
}

// predict asks the oracle under a timeout, strictly before any ledger
// transaction; unavailable or slow oracles degrade to the deterministic
// fallback and never block other settlements.
func (b *Bot) predict(ctx context.Context, chatID int64) ledger.Direction {
	recent, err := b.ledger.RecentOutcomes(ctx, 10)
	if err != nil {
		log.Warnf("recent outcomes chat=%d: %v", chatID, err)
		recent = nil
	}

	octx, cancel := context.WithTimeout(ctx, b.oracleTimeout)
	defer cancel()
	predicted, err := b.oracle.Predict(octx, recent)
	if err != nil {
		predicted = oracle.Fallback(recent)
		log.Warnf("oracle unavailable chat=%d, defaulting to %s: %v", chatID, predicted, err)
	}
	return predicted
}

// assistedBet types the call into the remote interactive session instead
// of settling directly. The bridge only gates on liveness; it does not
// hand out exclusive access.
func (b *Bot) assistedBet(ctx context.Context, chatID int64, cfg WagerConfig) {
	primary, _, err := b.bridge.Acquire()
	if err != nil {
		switch {
		case errors.Is(err, bridge.ErrNotBound):
			b.reply(ctx, chatID, "No live session yet. Launch the session first, then retry /signal.")
		case errors.Is(err, bridge.ErrDead):
			b.reply(ctx, chatID, "The session died. Resecure it, then retry /signal.")
		default:
			b.reply(ctx, chatID, "Session unavailable: "+err.Error())
		}
		return
	}

	predicted := b.predict(ctx, chatID)
	sender, ok := primary.(interface {
		Send(ctx context.Context, chatID int64, text string) error
	})
	if !ok {
		log.Errorf("bridge primary handle cannot send, chat=%d", chatID)
		b.reply(ctx, chatID, "Session handle does not support typing. Resecure it.")
		return
	}
	if err := sender.Send(ctx, chatID, fmt.Sprintf("/bet %s", predicted)); err != nil {
		log.Warnf("assisted typing chat=%d: %v", chatID, err)
		b.reply(ctx, chatID, "Could not type into the session, settle manually with /bet.")
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("Typed /bet %s into the session for you.", predicted))
}

// settleAndReply runs the settlement and renders the result. The oracle
// has already answered (or defaulted) by the time the ledger transaction
// starts.
func (b *Bot) settleAndReply(ctx context.Context, chatID int64, cfg WagerConfig, predicted ledger.Direction) {
	settlement, err := b.ledger.SettleWager(ctx, cfg.Stake, predicted)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			b.reply(ctx, chatID, fmt.Sprintf(
				"You are broke: stake %s exceeds your balance. /reset to start over.", cfg.Stake))
		case errors.Is(err, ledger.ErrInvalidStake):
			b.reply(ctx, chatID, "Stake must be positive. Fix it with /config stake=...")
		default:
			// A failed durable write must not be reported as success.
			log.Errorf("settle failed chat=%d stake=%s: %v", chatID, cfg.Stake, err)
			b.reply(ctx, chatID, "Settlement failed, nothing was applied. Try again.")
		}
		return
	}

	verdict := "LOST"
	if settlement.Won {
		verdict = "WON"
	}
	cad, _ := b.rates.USDToCAD(ctx, settlement.NewBalance)
	b.reply(ctx, chatID, fmt.Sprintf(
		"Draw: %d (%s). You called %s and %s %s.\nBalance: %s USD (~%s CAD)",
		settlement.DrawnValue, ledger.Classify(settlement.DrawnValue),
		predicted, verdict, cfg.Stake, settlement.NewBalance, cad.Round(2)))
}
