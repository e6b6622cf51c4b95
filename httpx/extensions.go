package httpx

import (
	"context"
	"reflect"
)

// Extensions is a per-message store holding at most one value per type.
// The parser uses it to hand derived metadata, such as the declared body
// length, to later stages.
//
// Access goes through a Handle that owns the store's lock until Release.
// Holding two handles from the same store at once, even for different
// types, deadlocks; release one before acquiring the next.
type Extensions struct {
	sem chan struct{}
	m   map[reflect.Type]any
}

func NewExtensions() *Extensions {
	return &Extensions{sem: make(chan struct{}, 1), m: make(map[reflect.Type]any)}
}

func (e *Extensions) lock()   { e.sem <- struct{}{} }
func (e *Extensions) unlock() { <-e.sem }

func (e *Extensions) tryLock() bool {
	select {
	case e.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (e *Extensions) lockContext(ctx context.Context) error {
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle is exclusive access to one stored value. The store stays locked
// until Release.
type Handle[T any] struct {
	e *Extensions
	v *T
}

// Value points at the stored value. It must not be used after Release.
func (h *Handle[T]) Value() *T { return h.v }

// Get returns a copy of the stored value.
func (h *Handle[T]) Get() T { return *h.v }

// Set overwrites the stored value in place.
func (h *Handle[T]) Set(v T) { *h.v = v }

// Release unlocks the store. Calling it twice is a no-op.
func (h *Handle[T]) Release() {
	if h.e == nil {
		return
	}
	h.e.unlock()
	h.e = nil
}

func typeKey[T any]() reflect.Type { return reflect.TypeFor[T]() }

// Insert stores v as the single value of type T and returns the value it
// replaced, if any.
func Insert[T any](e *Extensions, v T) (prev T, replaced bool) {
	e.lock()
	defer e.unlock()
	k := typeKey[T]()
	if old, ok := e.m[k]; ok {
		prev, replaced = *old.(*T), true
	}
	e.m[k] = &v
	return prev, replaced
}

// Get locks the store and returns a handle to the T it holds. When no T is
// stored the lock is released and ok is false.
func Get[T any](e *Extensions) (*Handle[T], bool) {
	e.lock()
	return lookup[T](e)
}

// GetContext is Get that gives up when ctx is done while waiting for the lock.
func GetContext[T any](ctx context.Context, e *Extensions) (*Handle[T], bool, error) {
	if err := e.lockContext(ctx); err != nil {
		return nil, false, err
	}
	h, ok := lookup[T](e)
	return h, ok, nil
}

// TryGet is Get that fails instead of waiting when the store is locked.
// locked reports that case.
func TryGet[T any](e *Extensions) (h *Handle[T], ok bool, locked bool) {
	if !e.tryLock() {
		return nil, false, true
	}
	h, ok = lookup[T](e)
	return h, ok, false
}

// Contains reports whether a T is stored.
func Contains[T any](e *Extensions) bool {
	e.lock()
	defer e.unlock()
	_, ok := e.m[typeKey[T]()]
	return ok
}

// Remove deletes the stored T and returns it.
func Remove[T any](e *Extensions) (T, bool) {
	e.lock()
	defer e.unlock()
	k := typeKey[T]()
	old, ok := e.m[k]
	if !ok {
		var zero T
		return zero, false
	}
	delete(e.m, k)
	return *old.(*T), true
}

// Load copies out the stored T without handing out a handle.
func Load[T any](e *Extensions) (T, bool) {
	h, ok := Get[T](e)
	if !ok {
		var zero T
		return zero, false
	}
	defer h.Release()
	return h.Get(), true
}

// lookup expects the lock held; it keeps it only when returning a handle.
func lookup[T any](e *Extensions) (*Handle[T], bool) {
	v, ok := e.m[typeKey[T]()]
	if !ok {
		e.unlock()
		return nil, false
	}
	return &Handle[T]{e: e, v: v.(*T)}, true
}
