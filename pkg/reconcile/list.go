// Package reconcile keeps client-side mirrors of server lists. Every merge
// path inserts by id only when absent, and entries with a pending local edit
// are not overwritten by server copies until the edit is confirmed.
package reconcile

import (
	"sync"

	"github.com/samber/lo"
)

// List is an ordered, id-unique list safe for concurrent use
type List[T any] struct {
	mu      sync.RWMutex
	key     func(T) string
	items   []T
	pending map[string]int
}

// NewList creates an empty list keyed by key
func NewList[T any](key func(T) string) *List[T] {
	return &List[T]{key: key, pending: make(map[string]int)}
}

// Items returns a copy in list order
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]T(nil), l.items...)
}

// IDs returns the keys in list order
func (l *List[T]) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.Map(l.items, func(it T, _ int) string { return l.key(it) })
}

func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *List[T]) Get(id string) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexOf(id); i >= 0 {
		return l.items[i], true
	}
	var zero T
	return zero, false
}

func (l *List[T]) indexOf(id string) int {
	_, i, ok := lo.FindIndexOf(l.items, func(it T) bool { return l.key(it) == id })
	if !ok {
		return -1
	}
	return i
}

// Reset replaces the list with an initial page. Duplicates inside page are
// dropped and pending entries keep their local version.
func (l *List[T]) Reset(page []T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	old := l.items
	l.items = make([]T, 0, len(page))
	seen := make(map[string]bool, len(page))
	for _, it := range page {
		id := l.key(it)
		if seen[id] {
			continue
		}
		seen[id] = true
		if l.pending[id] > 0 {
			if local, _, ok := lo.FindIndexOf(old, func(o T) bool { return l.key(o) == id }); ok {
				it = local
			}
		}
		l.items = append(l.items, it)
	}
}

// Append adds the items of a later page that are not already present and
// returns how many were added.
func (l *List[T]) Append(page []T) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	added := 0
	for _, it := range page {
		if l.indexOf(l.key(it)) >= 0 {
			continue
		}
		l.items = append(l.items, it)
		added++
	}
	return added
}

// Prepend inserts item at the head if its id is absent
func (l *List[T]) Prepend(item T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.indexOf(l.key(item)) >= 0 {
		return false
	}
	l.items = append([]T{item}, l.items...)
	return true
}

// MergeHead folds a refetched first page into the list: new ids go in front
// in page order, known ids take the server copy unless they are pending. Ids
// inside the span the page covers that the page no longer lists are dropped,
// so deletions missed while offline disappear. It returns how many ids were
// added.
func (l *List[T]) MergeHead(page []T) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	byID := make(map[string]T, len(page))
	order := make([]string, 0, len(page))
	for _, it := range page {
		id := l.key(it)
		if _, dup := byID[id]; dup {
			continue
		}
		byID[id] = it
		order = append(order, id)
	}

	// the span ends at the last entry the page still lists
	span := -1
	for i, it := range l.items {
		if _, ok := byID[l.key(it)]; ok {
			span = i
		}
	}

	known := make(map[string]bool, len(l.items))
	kept := make([]T, 0, len(l.items)+len(order))
	for i, it := range l.items {
		id := l.key(it)
		server, listed := byID[id]
		if i < span && !listed && l.pending[id] == 0 {
			continue
		}
		if listed {
			known[id] = true
			if l.pending[id] == 0 {
				it = server
			}
		}
		kept = append(kept, it)
	}

	fresh := lo.FilterMap(order, func(id string, _ int) (T, bool) {
		return byID[id], !known[id]
	})
	l.items = append(fresh, kept...)
	return len(fresh)
}

// Upsert applies a server copy: replace when present and not pending,
// otherwise insert at the head.
func (l *List[T]) Upsert(item T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.key(item)
	if i := l.indexOf(id); i >= 0 {
		if l.pending[id] > 0 {
			return false
		}
		l.items[i] = item
		return true
	}
	l.items = append([]T{item}, l.items...)
	return true
}

// Update mutates the entry in place with a server-originated change. It is a
// no-op for unknown ids.
func (l *List[T]) Update(id string, fn func(*T)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return false
	}
	fn(&l.items[i])
	return true
}

func (l *List[T]) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	delete(l.pending, id)
	return true
}

// ApplyLocal applies an optimistic edit immediately and marks the entry
// pending until Confirm is called for it.
func (l *List[T]) ApplyLocal(id string, fn func(*T)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return false
	}
	fn(&l.items[i])
	l.pending[id]++
	return true
}

// Confirm settles one pending edit on id
func (l *List[T]) Confirm(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pending[id] <= 1 {
		delete(l.pending, id)
		return
	}
	l.pending[id]--
}

func (l *List[T]) Pending(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pending[id] > 0
}
