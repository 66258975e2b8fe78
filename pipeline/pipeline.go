package pipeline

import "context"

// Iterator is pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value, or (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases resources held by the iterator.
	Close() error
}

// Pipeline is a lazy, pull-based stream. Each call to Iter creates fresh
// iterator state.
type Pipeline[T any] struct {
	create func(ctx context.Context) Iterator[T]
}

// From wraps an existing iterator.
func From[T any](iter Iterator[T]) *Pipeline[T] {
	return &Pipeline[T]{create: func(context.Context) Iterator[T] { return iter }}
}

// FromSlice streams the items of a slice.
func FromSlice[T any](items []T) *Pipeline[T] {
	return &Pipeline[T]{create: func(context.Context) Iterator[T] { return &sliceIter[T]{items: items} }}
}

// FromFunc streams values returned by next until it reports false or an
// error.
func FromFunc[T any](next func(ctx context.Context) (T, bool, error)) *Pipeline[T] {
	return &Pipeline[T]{create: func(context.Context) Iterator[T] { return funcIter[T](next) }}
}

// Iter returns the pipeline's iterator. The caller must Close it.
func (p *Pipeline[T]) Iter(ctx context.Context) Iterator[T] {
	return p.create(ctx)
}

// Drain pulls every value and passes it to sink, stopping at the first error.
func Drain[T any](ctx context.Context, p *Pipeline[T], sink func(context.Context, T) error) error {
	iter := p.create(ctx)
	defer iter.Close()
	for {
		val, ok, err := iter.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := sink(ctx, val); err != nil {
			return err
		}
	}
}

// ForEach is Drain with a sink that cannot fail.
func ForEach[T any](ctx context.Context, p *Pipeline[T], fn func(context.Context, T)) error {
	return Drain(ctx, p, func(ctx context.Context, v T) error {
		fn(ctx, v)
		return nil
	})
}

// Collect returns every value as a slice.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	var out []T
	err := Drain(ctx, p, func(_ context.Context, v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type funcIter[T any] func(ctx context.Context) (T, bool, error)

func (f funcIter[T]) Next(ctx context.Context) (T, bool, error) { return f(ctx) }
func (f funcIter[T]) Close() error                              { return nil }
