package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/DrSkyle/graphstep/pkg/algo"
)

type layout struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// StartLayout starts the spring layout process. It reports false when one
// is already running.
func (b *Bridge) StartLayout(ctx context.Context) bool {
	b.lay.mu.Lock()
	defer b.lay.mu.Unlock()
	if b.lay.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	b.lay.cancel, b.lay.done = cancel, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(b.cfg.LayoutInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.LayoutStep()
			}
		}
	}()
	b.logger.Debug("Layout started", "interval", b.cfg.LayoutInterval)
	return true
}

// StopLayout stops the layout process and waits for it to exit.
func (b *Bridge) StopLayout() bool {
	b.lay.mu.Lock()
	cancel, done := b.lay.cancel, b.lay.done
	b.lay.cancel, b.lay.done = nil, nil
	b.lay.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	<-done
	b.logger.Debug("Layout stopped")
	return true
}

func (b *Bridge) LayoutRunning() bool {
	b.lay.mu.Lock()
	defer b.lay.mu.Unlock()
	return b.lay.cancel != nil
}

// LayoutStep moves every node by one tick of spring forces and returns how
// many nodes moved.
func (b *Bridge) LayoutStep() int {
	offsets := algo.Spring(b.model.Nodes(), b.model.Connections(), b.cfg.Spring)
	moved := 0
	for _, n := range b.model.NodeIDs() {
		o, ok := offsets[n]
		if !ok {
			continue
		}
		if b.dispatch(Command{Kind: CmdMoveNode, Node: n, X: o.DX, Y: o.DY}) == nil {
			moved++
		}
	}
	return moved
}
