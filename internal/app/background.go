package app

import (
	"context"
	"sync"
)

// background runs work started by HTTP requests on the Serve context so
// Serve can wait for it before the App is closed.
type background struct {
	mu     sync.Mutex
	ctx    context.Context
	wg     sync.WaitGroup
	closed bool
}

func (b *background) open(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctx = ctx
}

// Go starts task unless Serve is not running or is shutting down.
func (b *background) Go(task func(ctx context.Context)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.ctx == nil {
		return false
	}
	b.wg.Add(1)
	ctx := b.ctx
	go func() {
		defer b.wg.Done()
		task(ctx)
	}()
	return true
}

// closeAndWait refuses new tasks and blocks until running ones return.
func (b *background) closeAndWait() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}
