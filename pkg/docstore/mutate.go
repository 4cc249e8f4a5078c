package docstore

import (
	"context"
	"errors"
)

// Action tells Mutate what to do with the document after fn ran.
type Action int

const (
	Keep Action = iota
	Write
	Remove
)

const maxAttempts = 8

// Mutate runs a read-modify-write against path. fn sees a freshly decoded
// copy of the document on every attempt and may change it in place; the
// result is committed with CompareAndSet/CompareAndDelete against the version
// that was read, and fn is re-run when another writer got there first.
func Mutate[T any](ctx context.Context, s Store, path string, fn func(doc *T, exists bool) (Action, error)) (T, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var doc T
		version, err := s.Get(ctx, path, &doc)
		exists := true
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				var zero T
				return zero, err
			}
			exists = false
			version = 0
		}

		action, err := fn(&doc, exists)
		if err != nil {
			return doc, err
		}

		switch action {
		case Keep:
			return doc, nil
		case Write:
			_, err = s.CompareAndSet(ctx, path, version, doc)
		case Remove:
			if !exists {
				return doc, nil
			}
			err = s.CompareAndDelete(ctx, path, version)
		}

		if errors.Is(err, ErrConflict) {
			if ctx.Err() != nil {
				return doc, ctx.Err()
			}
			continue
		}
		return doc, err
	}

	var zero T
	return zero, ErrContention
}

// GetOrCreate returns the document at path, creating it from def when absent.
// created reports whether this call wrote the default.
func GetOrCreate[T any](ctx context.Context, s Store, path string, def T) (doc T, created bool, err error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var current T
		_, err = s.Get(ctx, path, &current)
		if err == nil {
			return current, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return current, false, err
		}

		_, err = s.CompareAndSet(ctx, path, 0, def)
		if err == nil {
			return def, true, nil
		}
		if !errors.Is(err, ErrConflict) {
			return def, false, err
		}
	}
	return def, false, ErrContention
}
