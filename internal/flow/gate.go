package flow

import (
	"context"
	"sync"
)

// gate serializes event processing for one user and lets a Cancel or
// Timeout interrupt that user's in-flight provider fetch without waiting
// for the event lock.
type gate struct {
	mu sync.Mutex // held while one event is processed

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// arm derives a cancelable context for a blocking operation and registers
// its cancel func so interrupt can reach it.
func (g *gate) arm(ctx context.Context) (context.Context, context.CancelFunc) {
	child, cancel := context.WithCancel(ctx)
	g.cancelMu.Lock()
	g.cancel = cancel
	g.cancelMu.Unlock()

	return child, func() {
		g.cancelMu.Lock()
		if g.cancel != nil {
			g.cancel = nil
		}
		g.cancelMu.Unlock()
		cancel()
	}
}

// interrupt cancels the in-flight operation, if any.
func (g *gate) interrupt() {
	g.cancelMu.Lock()
	cancel := g.cancel
	g.cancel = nil
	g.cancelMu.Unlock()

	if cancel != nil {
		cancel()
	}
}

type gateTable struct {
	mu    sync.Mutex
	gates map[int64]*gate
}

func newGateTable() *gateTable {
	return &gateTable{gates: make(map[int64]*gate)}
}

func (t *gateTable) forUser(userID int64) *gate {
	t.mu.Lock()
	defer t.mu.Unlock()

	g, ok := t.gates[userID]
	if !ok {
		g = &gate{}
		t.gates[userID] = g
	}
	return g
}
