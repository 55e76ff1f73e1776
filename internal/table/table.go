// Package table implements an in-memory game-table cache: a per-tick
// cache over a document type T, tracking which ids were modified or
// deleted so that a single Save() call flushes exactly the rows that
// changed.
//
// Record order is insertion order (backed by an ordered map, the same
// library the MCP transport pulls in for tool-schema property ordering)
// so that Find/Filter results are deterministic across runs — useful
// when a test replays a tick and diffs the table's rows.
package table

import (
	"context"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Store is the persistence collaborator a Table flushes to. It mirrors
// the subset of the backing store contract a single table needs:
// batched insert/replace/delete inside the caller's transaction.
type Store[T any] interface {
	Insert(ctx context.Context, id string, row T) error
	Replace(ctx context.Context, id string, row T) error
	Delete(ctx context.Context, id string) error
}

// IsActive reports whether a document should be visible to
// Lookup/Find/Filter. Inactive (e.g. soft-deleted) documents behave as
// if absent.
type IsActive[T any] func(doc T) bool

// Table is a generic, single-transaction cache over documents of type T,
// keyed by string id. It is not safe for concurrent use: the contract is
// that exactly one in-flight transaction owns a Table.
type Table[T any] struct {
	store    Store[T]
	isActive IsActive[T]

	data     *orderedmap.OrderedMap[string, T]
	modified map[string]struct{}
	deleted  map[string]struct{}
}

// New creates a Table backed by store, seeded with the rows already
// loaded for this transaction (typically the result of a secondary-index
// query against the store).
func New[T any](store Store[T], isActive IsActive[T], seed map[string]T) *Table[T] {
	tb := &Table[T]{
		store:    store,
		isActive: isActive,
		data:     orderedmap.New[string, T](),
		modified: make(map[string]struct{}),
		deleted:  make(map[string]struct{}),
	}
	for id, row := range seed {
		tb.data.Set(id, row)
	}
	return tb
}

// Insert adds a new row under id, marking it modified so the first Save
// persists it.
func (tb *Table[T]) Insert(id string, row T) {
	tb.data.Set(id, row)
	tb.modified[id] = struct{}{}
	delete(tb.deleted, id)
}

// Delete marks id for removal on the next Save. The row remains
// invisible to Lookup/Find/Filter immediately.
func (tb *Table[T]) Delete(id string) {
	tb.data.Delete(id)
	tb.deleted[id] = struct{}{}
	delete(tb.modified, id)
}

// ErrNotFound is returned by Lookup when id is absent or inactive.
type ErrNotFound struct{ ID string }

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("table: id %q not found or inactive", e.ID)
}

// Lookup returns the current row for id. "Write observing" is
// implemented here as an explicit update function rather than a
// mutable-handle proxy: callers that need to mutate use Update, which
// is guaranteed to mark the id modified on every successful call.
func (tb *Table[T]) Lookup(id string) (T, error) {
	var zero T
	row, ok := tb.data.Get(id)
	if !ok || !tb.isActive(row) {
		return zero, ErrNotFound{ID: id}
	}
	return row, nil
}

// Update applies fn to the current row for id and stores the result,
// unconditionally marking id modified — this is the single mutation
// entry point: every successful mutation causes exactly one modified
// entry, and silent mutation is impossible.
func (tb *Table[T]) Update(id string, fn func(T) T) error {
	row, err := tb.Lookup(id)
	if err != nil {
		return err
	}
	tb.data.Set(id, fn(row))
	tb.modified[id] = struct{}{}
	return nil
}

// Find returns the first active row for which pred returns true, in
// insertion order.
func (tb *Table[T]) Find(pred func(id string, row T) bool) (string, T, bool) {
	for pair := tb.data.Oldest(); pair != nil; pair = pair.Next() {
		if !tb.isActive(pair.Value) {
			continue
		}
		if pred(pair.Key, pair.Value) {
			return pair.Key, pair.Value, true
		}
	}
	var zero T
	return "", zero, false
}

// Filter returns every active row for which pred returns true, in
// insertion order.
func (tb *Table[T]) Filter(pred func(id string, row T) bool) []T {
	var out []T
	for pair := tb.data.Oldest(); pair != nil; pair = pair.Next() {
		if !tb.isActive(pair.Value) {
			continue
		}
		if pred(pair.Key, pair.Value) {
			out = append(out, pair.Value)
		}
	}
	return out
}

// Modified reports whether any rows are pending a flush.
func (tb *Table[T]) Modified() bool {
	return len(tb.modified) > 0 || len(tb.deleted) > 0
}

// Save flushes deleted ids, then replaces modified ids with their
// current cached state, then clears both tracking sets. Save is
// idempotent: calling it twice in a row with no intervening mutation is
// a no-op the second time.
func (tb *Table[T]) Save(ctx context.Context) error {
	for id := range tb.deleted {
		if err := tb.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("table: delete %q: %w", id, err)
		}
	}
	for id := range tb.modified {
		row, ok := tb.data.Get(id)
		if !ok {
			continue // modified then deleted within the same transaction
		}
		if err := tb.store.Replace(ctx, id, row); err != nil {
			return fmt.Errorf("table: replace %q: %w", id, err)
		}
	}
	tb.deleted = make(map[string]struct{})
	tb.modified = make(map[string]struct{})
	return nil
}
