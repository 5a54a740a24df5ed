package workctx

import (
	"sync"
)

// List keeps one ordered slice per unit of work.
// The zero value is ready to use.
type List[T any] struct {
	buckets sync.Map // ID -> *listBucket[T]
}

type listBucket[T any] struct {
	mu    sync.Mutex
	items []T
}

func (l *List[T]) bucket(id ID, create bool) *listBucket[T] {
	if b, ok := l.buckets.Load(id); ok {
		return b.(*listBucket[T])
	}
	if !create {
		return nil
	}
	b, _ := l.buckets.LoadOrStore(id, &listBucket[T]{})
	return b.(*listBucket[T])
}

// Append adds items to the unit's list.
func (l *List[T]) Append(id ID, items ...T) {
	b := l.bucket(id, true)
	b.mu.Lock()
	b.items = append(b.items, items...)
	b.mu.Unlock()
}

// Items returns a copy of the unit's list.
func (l *List[T]) Items(id ID) []T {
	b := l.bucket(id, false)
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return nil
	}
	return append([]T(nil), b.items...)
}

// AllItems returns every unit's items. Order across units is unspecified.
func (l *List[T]) AllItems() []T {
	var out []T
	l.buckets.Range(func(_, v any) bool {
		b := v.(*listBucket[T])
		b.mu.Lock()
		out = append(out, b.items...)
		b.mu.Unlock()
		return true
	})
	return out
}

// Len returns the length of the unit's list.
func (l *List[T]) Len(id ID) int {
	b := l.bucket(id, false)
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Remove deletes the first item for which match returns true.
func (l *List[T]) Remove(id ID, match func(T) bool) bool {
	b := l.bucket(id, false)
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, it := range b.items {
		if match(it) {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// DeleteFunc removes every item for which del returns true and reports how
// many were removed.
func (l *List[T]) DeleteFunc(id ID, del func(T) bool) int {
	b := l.bucket(id, false)
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.items[:0]
	for _, it := range b.items {
		if !del(it) {
			kept = append(kept, it)
		}
	}
	n := len(b.items) - len(kept)
	clear(b.items[len(kept):])
	b.items = kept
	return n
}

// Take returns the unit's items and empties its list.
func (l *List[T]) Take(id ID) []T {
	b := l.bucket(id, false)
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.items
	b.items = nil
	return items
}

// Clear empties the unit's list.
func (l *List[T]) Clear(id ID) {
	l.buckets.Delete(id)
}

// ClearAll empties every unit's list.
func (l *List[T]) ClearAll() {
	l.buckets.Range(func(k, _ any) bool {
		l.buckets.Delete(k)
		return true
	})
}

// IsEmpty reports whether the unit's list is empty.
func (l *List[T]) IsEmpty(id ID) bool {
	return l.Len(id) == 0
}

// IsEmptyAll reports whether every unit's list is empty.
func (l *List[T]) IsEmptyAll() bool {
	empty := true
	l.buckets.Range(func(_, v any) bool {
		b := v.(*listBucket[T])
		b.mu.Lock()
		empty = len(b.items) == 0
		b.mu.Unlock()
		return empty
	})
	return empty
}

// IDs returns the units that currently hold items.
func (l *List[T]) IDs() []ID {
	var ids []ID
	l.buckets.Range(func(k, v any) bool {
		b := v.(*listBucket[T])
		b.mu.Lock()
		if len(b.items) > 0 {
			ids = append(ids, k.(ID))
		}
		b.mu.Unlock()
		return true
	})
	return ids
}

// Map keeps one map per unit of work.
// The zero value is ready to use.
type Map[K comparable, V any] struct {
	buckets sync.Map // ID -> *mapBucket[K, V]
}

type mapBucket[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]V
}

func (m *Map[K, V]) bucket(id ID, create bool) *mapBucket[K, V] {
	if b, ok := m.buckets.Load(id); ok {
		return b.(*mapBucket[K, V])
	}
	if !create {
		return nil
	}
	b, _ := m.buckets.LoadOrStore(id, &mapBucket[K, V]{m: make(map[K]V)})
	return b.(*mapBucket[K, V])
}

// Set stores v under k in the unit's map.
func (m *Map[K, V]) Set(id ID, k K, v V) {
	b := m.bucket(id, true)
	b.mu.Lock()
	b.m[k] = v
	b.mu.Unlock()
}

// Get returns the value stored under k in the unit's map.
func (m *Map[K, V]) Get(id ID, k K) (V, bool) {
	b := m.bucket(id, false)
	if b == nil {
		var zero V
		return zero, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.m[k]
	return v, ok
}

// Delete removes k from the unit's map.
func (m *Map[K, V]) Delete(id ID, k K) {
	b := m.bucket(id, false)
	if b == nil {
		return
	}
	b.mu.Lock()
	delete(b.m, k)
	b.mu.Unlock()
}

// Values returns a copy of the unit's map.
func (m *Map[K, V]) Values(id ID) map[K]V {
	out := make(map[K]V)
	b := m.bucket(id, false)
	if b == nil {
		return out
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range b.m {
		out[k] = v
	}
	return out
}

// AllValues merges every unit's map. When units share a key, which value
// wins is unspecified.
func (m *Map[K, V]) AllValues() map[K]V {
	out := make(map[K]V)
	m.buckets.Range(func(_, v any) bool {
		b := v.(*mapBucket[K, V])
		b.mu.Lock()
		for k, val := range b.m {
			out[k] = val
		}
		b.mu.Unlock()
		return true
	})
	return out
}

// Len returns the size of the unit's map.
func (m *Map[K, V]) Len(id ID) int {
	b := m.bucket(id, false)
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.m)
}

// Clear empties the unit's map.
func (m *Map[K, V]) Clear(id ID) {
	m.buckets.Delete(id)
}

// ClearAll empties every unit's map.
func (m *Map[K, V]) ClearAll() {
	m.buckets.Range(func(k, _ any) bool {
		m.buckets.Delete(k)
		return true
	})
}

// IsEmpty reports whether the unit's map is empty.
func (m *Map[K, V]) IsEmpty(id ID) bool {
	return m.Len(id) == 0
}

// IsEmptyAll reports whether every unit's map is empty.
func (m *Map[K, V]) IsEmptyAll() bool {
	empty := true
	m.buckets.Range(func(_, v any) bool {
		b := v.(*mapBucket[K, V])
		b.mu.Lock()
		empty = len(b.m) == 0
		b.mu.Unlock()
		return empty
	})
	return empty
}

// IDs returns the units whose map is not empty.
func (m *Map[K, V]) IDs() []ID {
	var ids []ID
	m.buckets.Range(func(k, v any) bool {
		b := v.(*mapBucket[K, V])
		b.mu.Lock()
		if len(b.m) > 0 {
			ids = append(ids, k.(ID))
		}
		b.mu.Unlock()
		return true
	})
	return ids
}
