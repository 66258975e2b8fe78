package pipeline

import "context"

// Map transforms each value with fn. An fn error ends the stream.
func Map[I, O any](p *Pipeline[I], fn func(context.Context, I) (O, error)) *Pipeline[O] {
	return &Pipeline[O]{create: func(ctx context.Context) Iterator[O] {
		return &mapIter[I, O]{source: p.create(ctx), fn: fn}
	}}
}

// Filter keeps values matching keep.
func Filter[T any](p *Pipeline[T], keep func(T) bool) *Pipeline[T] {
	return &Pipeline[T]{create: func(ctx context.Context) Iterator[T] {
		return &filterIter[T]{source: p.create(ctx), keep: keep}
	}}
}

// Tap runs fn on each value as a side effect and passes the value on.
func Tap[T any](p *Pipeline[T], fn func(context.Context, T)) *Pipeline[T] {
	return Map(p, func(ctx context.Context, v T) (T, error) {
		fn(ctx, v)
		return v, nil
	})
}

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
}

func (it *mapIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	out, err := it.fn(ctx, val)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

type filterIter[T any] struct {
	source Iterator[T]
	keep   func(T) bool
}

func (it *filterIter[T]) Next(ctx context.Context) (T, bool, error) {
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return val, false, err
		}
		if it.keep(val) {
			return val, true, nil
		}
	}
}

func (it *filterIter[T]) Close() error { return it.source.Close() }
