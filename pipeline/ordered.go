package pipeline

import (
	"context"
	"sync"
)

type result[T any] struct {
	val T
	err error
}

// Ordered applies fn to each value with up to workers concurrent calls and
// yields results in input order.
//
// Cancelling the pull context stops admission only. Calls already admitted
// run to completion on a context detached from cancellation, and their
// results are still yielded before the stream ends. A source error seen
// after cancellation ends the stream cleanly.
func Ordered[I, O any](p *Pipeline[I], workers int, fn func(context.Context, I) (O, error)) *Pipeline[O] {
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline[O]{create: func(ctx context.Context) Iterator[O] {
		admitCtx, cancel := context.WithCancel(ctx)
		it := &orderedIter[O]{
			pending: make(chan chan result[O], workers),
			cancel:  cancel,
		}
		source := p.create(admitCtx)
		it.closeSource = source.Close

		sem := make(chan struct{}, workers)
		workCtx := context.WithoutCancel(ctx)

		it.wg.Add(1)
		go func() {
			defer it.wg.Done()
			defer close(it.pending)
			for {
				select {
				case sem <- struct{}{}:
				case <-admitCtx.Done():
					return
				}
				val, ok, err := source.Next(admitCtx)
				if err != nil || !ok {
					<-sem
					if err != nil && admitCtx.Err() == nil {
						slot := make(chan result[O], 1)
						slot <- result[O]{err: err}
						it.pending <- slot
					}
					return
				}

				slot := make(chan result[O], 1)
				it.wg.Add(1)
				go func(v I) {
					defer it.wg.Done()
					defer func() { <-sem }()
					out, err := fn(workCtx, v)
					slot <- result[O]{val: out, err: err}
				}(val)

				it.pending <- slot
			}
		}()
		return it
	}}
}

type orderedIter[O any] struct {
	pending     chan chan result[O]
	cancel      context.CancelFunc
	closeSource func() error
	wg          sync.WaitGroup
	closeOnce   sync.Once
	closeErr    error
}

// Next blocks for the oldest admitted value. It does not watch ctx: the
// stream ends once admission has stopped and every admitted value was
// yielded.
func (it *orderedIter[O]) Next(context.Context) (O, bool, error) {
	slot, open := <-it.pending
	if !open {
		var zero O
		return zero, false, nil
	}
	r := <-slot
	if r.err != nil {
		var zero O
		return zero, false, r.err
	}
	return r.val, true, nil
}

// Close stops admission, waits for admitted calls to finish and closes the
// source.
func (it *orderedIter[O]) Close() error {
	it.closeOnce.Do(func() {
		it.cancel()
		go func() {
			for range it.pending {
			}
		}()
		it.wg.Wait()
		it.closeErr = it.closeSource()
	})
	return it.closeErr
}
