package app

import (
	"context"
	"sync"
	"time"
)

// ShutdownManager coordinates graceful process exit (§5): components
// call WhenShuttingDown to learn when to stop accepting new work, and
// WaitFor to register a future the manager must wait on before the
// process is allowed to exit. Grounded on
// crdtserver/main.go's Start/Close shutdown shape, generalized from a
// single signal.Notify-then-Close sequence into a reusable primitive
// other components register against.
type ShutdownManager struct {
	mu       sync.Mutex
	initiate chan struct{}
	once     sync.Once
	pending  sync.WaitGroup
}

// NewShutdownManager builds a manager that has not yet been told to
// shut down.
func NewShutdownManager() *ShutdownManager {
	return &ShutdownManager{initiate: make(chan struct{})}
}

// Initiate begins shutdown, idempotently. Safe to call more than once
// and from any goroutine (e.g. both a SIGTERM handler and a
// traffic-signal hard-off).
func (m *ShutdownManager) Initiate() {
	m.once.Do(func() { close(m.initiate) })
}

// WhenShuttingDown returns a channel that closes once Initiate has been
// called.
func (m *ShutdownManager) WhenShuttingDown() <-chan struct{} {
	return m.initiate
}

// WaitFor registers a future (represented as a function run to
// completion) that must finish before Wait returns. Intended for
// "ask every connection to close" style drains.
func (m *ShutdownManager) WaitFor(future func(ctx context.Context)) {
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		future(context.Background())
	}()
}

// Wait blocks until every registered future has completed.
func (m *ShutdownManager) Wait() {
	m.pending.Wait()
}

// DrainUntilEmpty polls countOpen every interval until it reports zero,
// or ctx is done. Grounded on §5's "(3) existing connections are asked
// to close, iterating every 250ms until empty".
func DrainUntilEmpty(ctx context.Context, interval time.Duration, countOpen func() int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if countOpen() == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
