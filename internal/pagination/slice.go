package pagination

import "context"

// SliceSource adapts an in-memory, already ordered slice to Source.
type SliceSource[T any] []T

// FromSlice wraps items as a Source.
func FromSlice[T any](items []T) SliceSource[T] {
	return SliceSource[T](items)
}

func (s SliceSource[T]) Count(_ context.Context) (int64, error) {
	return int64(len(s)), nil
}

func (s SliceSource[T]) Slice(_ context.Context, offset, limit int) ([]T, error) {
	if offset >= len(s) {
		return []T{}, nil
	}
	end := offset + limit
	if end > len(s) {
		end = len(s)
	}
	return s[offset:end], nil
}
