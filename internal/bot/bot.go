// Package bot is the request orchestrator: it routes chat commands,
// schedules fake "signal found" notifications, asks the oracle for a
// prediction and settles wagers against the ledger. Every failure is
// recovered here and turned into a single user-visible reply.
package bot

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/signalbot/internal/bridge"
	"github.com/betbot/signalbot/internal/chat"
	"github.com/betbot/signalbot/internal/ledger"
	"github.com/betbot/signalbot/internal/oracle"
	"github.com/betbot/signalbot/internal/rates"
	"github.com/betbot/signalbot/pkg/persistence"
)

var log = logrus.WithField("component", "bot")

type Options struct {
	Ledger        *ledger.Store
	Bridge        *bridge.Bridge
	Oracle        oracle.Predictor
	Rates         rates.Converter
	Transport     chat.Transport
	Persist       persistence.Service
	OracleTimeout time.Duration
}

type Bot struct {
	ledger        *ledger.Store
	bridge        *bridge.Bridge
	oracle        oracle.Predictor
	rates         rates.Converter
	transport     chat.Transport
	persist       persistence.Service
	oracleTimeout time.Duration

	mu      sync.Mutex
	pending map[int64]*signalTask // in-flight signal task per chat

	signalDelay func() time.Duration

	wg sync.WaitGroup
}

func New(opts Options) *Bot {
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = 5 * time.Second
	}
	return &Bot{
		ledger:        opts.Ledger,
		bridge:        opts.Bridge,
		oracle:        opts.Oracle,
		rates:         opts.Rates,
		transport:     opts.Transport,
		persist:       opts.Persist,
		oracleTimeout: opts.OracleTimeout,
		pending:       make(map[int64]*signalTask),
		signalDelay:   randomSignalDelay,
	}
}

// Run consumes transport updates until the channel closes or ctx is
// cancelled. Each update is handled on its own goroutine; the ledger,
// not the orchestrator, provides mutual exclusion for settlements.
func (b *Bot) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			b.wg.Wait()
			return ctx.Err()
		case u, ok := <-b.transport.Updates():
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.wg.Add(1)
			go func(u chat.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, u)
			}(u)
		}
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.transport.Send(ctx, chatID, text); err != nil {
		log.Warnf("reply chat=%d failed: %v", chatID, err)
	}
}

// signalTask is one scheduled signal notification and its cancel.
type signalTask struct {
	cancel context.CancelFunc
}

// cancelPendingSignal cancels the chat's scheduled signal task, if any,
// so a superseded request never fires a stale message.
func (b *Bot) cancelPendingSignal(chatID int64) {
	b.mu.Lock()
	task := b.pending[chatID]
	delete(b.pending, chatID)
	b.mu.Unlock()
	if task != nil {
		task.cancel()
	}
}

func (b *Bot) trackSignal(chatID int64, task *signalTask) {
	b.mu.Lock()
	if prev := b.pending[chatID]; prev != nil {
		prev.cancel()
	}
	b.pending[chatID] = task
	b.mu.Unlock()
}

// untrackSignal drops the chat's entry once its task finishes, unless a
// newer task already replaced it.
func (b *Bot) untrackSignal(chatID int64, task *signalTask) {
	b.mu.Lock()
	if b.pending[chatID] == task {
		delete(b.pending, chatID)
	}
	b.mu.Unlock()
}
