// Package bridge holds the process-wide handle pair for the remote
// interactive session. It gates consumers behind a lazy liveness check
// but does not serialize their use of the handles; a resource that only
// supports one operation at a time is the consumer's problem.
package bridge

import (
	"errors"
	"sync"
)

// Session is the primary handle: the long-lived remote interactive
// resource. Alive reports whether the underlying resource is still
// usable; it is probed at Acquire time only.
type Session interface {
	Alive() bool
}

var (
	// ErrNotBound means Register has never been called.
	ErrNotBound = errors.New("bridge: not bound, launch the session first")

	// ErrDead means the bound session probed as closed. It stays
	// reported as dead until a fresh Register replaces it.
	ErrDead = errors.New("bridge: session is dead, resecure it first")
)

// Bridge is Unbound until the first Register call. There is no unbind
// path; a later Register simply replaces both handles.
type Bridge struct {
	mu        sync.RWMutex
	primary   Session
	secondary any
	bound     bool
}

func New() *Bridge { return &Bridge{} }

// Register binds both handles. Last write wins.
func (b *Bridge) Register(primary Session, secondary any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.primary = primary
	b.secondary = secondary
	b.bound = true
}

// Acquire returns both handles unchanged, or fails if the bridge was
// never bound or the primary handle probes as dead. Callers get shared,
// not exclusive, access.
func (b *Bridge) Acquire() (Session, any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.bound {
		return nil, nil, ErrNotBound
	}
	if !b.primary.Alive() {
		return nil, nil, ErrDead
	}
	return b.primary, b.secondary, nil
}
