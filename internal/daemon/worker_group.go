package daemon

import (
	"context"
	"sync"
)

// WorkerGroup tracks daemon-owned goroutines. Once StopAndWait has been
// called no new worker starts, so Add never races with Wait.
type WorkerGroup struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	stopping bool
}

// Go starts fn unless the group is stopping.
func (g *WorkerGroup) Go(fn func()) bool {
	if fn == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopping {
		return false
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
	return true
}

// StopAndWait refuses new workers and waits for the running ones, bounded by ctx.
func (g *WorkerGroup) StopAndWait(ctx context.Context) error {
	g.mu.Lock()
	g.stopping = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
