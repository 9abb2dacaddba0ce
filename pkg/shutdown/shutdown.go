// Package shutdown runs registered cleanup callbacks concurrently with a
// deadline when the process is asked to stop.
package shutdown

import (
	"context"
	"sync"

	"github.com/betbot/signalbot/pkg/logger"
)

type Handler func(ctx context.Context)

type Manager struct {
	callbacks []Handler
	mu        sync.Mutex
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) OnShutdown(handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, handler)
}

// Shutdown blocks until every callback returns or ctx expires. Pass a
// context with a timeout.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	callbacks := m.callbacks
	m.mu.Unlock()

	if len(callbacks) == 0 {
		return
	}
	logger.Infof("shutting down, %d callbacks", len(callbacks))

	var wg sync.WaitGroup
	wg.Add(len(callbacks))
	for _, cb := range callbacks {
		go func(h Handler) {
			defer wg.Done()
			h(ctx)
		}(cb)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all shutdown callbacks finished")
	case <-ctx.Done():
		logger.Warnf("shutdown timed out: %v", ctx.Err())
	}
}
