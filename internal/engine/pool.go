package engine

import "sync"

// pool bounds how many items run at once.
type pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func newPool(size int) *pool {
	if size < 1 {
		size = 1
	}
	return &pool{sem: make(chan struct{}, size)}
}

// submit runs fn once a slot is free. Items are never dropped: there is no
// mid-batch cancellation, so submit does not watch a context.
func (p *pool) submit(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sem <- struct{}{}
		defer func() { <-p.sem }()
		fn()
	}()
}

func (p *pool) wait() {
	p.wg.Wait()
}
