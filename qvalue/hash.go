package qvalue

import (
	"sync"

	"github.com/qorerun/qcore/xsink"
)

// Hash is the heap variant for an insertion-ordered string-keyed map.
// Iteration order follows insertion order, not key sort order, matching
// the original QoreHashNode's linked-list-backed HashMember storage. Its
// mutation discipline mirrors List: copy-on-write-before-mutation via
// EnsureUnique, resolved the same way for the same reason in §9 — a
// hash iterator in flight when another Value holding the same node
// mutates it must keep observing the pre-mutation snapshot rather than
// a torn read.
type Hash struct {
	refCounted
	mu        sync.Mutex
	keys      []string
	values    map[string]Value
	iterCount int
}

// NewHash returns a fresh, singly-referenced, empty Hash node.
func NewHash() *Hash {
	return &Hash{refCounted: newRefCounted(), values: map[string]Value{}}
}

func (h *Hash) Kind() Kind      { return KindHash }
func (h *Hash) IsValue() bool   { return true }
func (h *Hash) NeedsEval() bool { return false }

// RealCopy deep-copies keys and values (bumping each value's Node
// reference) preserving insertion order.
func (h *Hash) RealCopy() Node {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := NewHash()
	cp.keys = make([]string, len(h.keys))
	copy(cp.keys, h.keys)
	for k, v := range h.values {
		cp.values[k] = v.Copy()
	}
	return cp
}

// EnsureUnique mirrors List.EnsureUnique.
func (h *Hash) EnsureUnique() *Hash {
	if h.RefCount() == 1 {
		return h
	}
	return h.RealCopy().(*Hash)
}

func (h *Hash) Deref(sink *xsink.Sink) bool {
	return h.deref(sink, func(s *xsink.Sink) {
		h.mu.Lock()
		values := h.values
		h.values = nil
		h.keys = nil
		h.mu.Unlock()
		for _, v := range values {
			v.Deref(s)
		}
	})
}

// Len reports the key count.
func (h *Hash) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.keys)
}

// Get returns the value for key and whether it was present. An absent
// key yields Nothing(), false — lookups never raise.
func (h *Hash) Get(key string) (Value, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.values[key]
	if !ok {
		return Nothing(), false
	}
	return v, true
}

// Set assigns key, appending it to the insertion order on first write.
// Callers must have already established uniqueness via EnsureUnique.
func (h *Hash) Set(key string, v Value) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.copySpineLocked()
	if _, exists := h.values[key]; !exists {
		h.keys = append(h.keys, key)
	}
	h.values[key] = v
}

// Delete removes key, returning the displaced Value (for the caller to
// Deref) and whether it was present. Callers must have already
// established uniqueness via EnsureUnique.
func (h *Hash) Delete(key string) (Value, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.values[key]
	if !ok {
		return Nothing(), false
	}
	h.copySpineLocked()
	delete(h.values, key)
	for i, k := range h.keys {
		if k == key {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// copySpineLocked gives Set/Delete a private keys slice and values map to
// mutate when an iterator is in flight (iterCount > 0, §9), so the
// iterator's already-captured keys/values keep observing the
// pre-mutation snapshot instead of a torn read. Must be called with h.mu
// held. iterCount is left unchanged: each open iterator still decrements
// it on Close, so Set/Delete keep copying until every open iterator has
// closed.
func (h *Hash) copySpineLocked() {
	if h.iterCount == 0 {
		return
	}
	nv := make(map[string]Value, len(h.values))
	for k, v := range h.values {
		nv[k] = v
	}
	nk := make([]string, len(h.keys))
	copy(nk, h.keys)
	h.values = nv
	h.keys = nk
}

// Keys returns a snapshot of the keys in insertion order.
func (h *Hash) Keys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.keys))
	copy(out, h.keys)
	return out
}

// Iterator returns a HashIterator over a consistent snapshot of h as it
// is right now. While the iterator is open, any Set/Delete on h copies
// the spine out from under it rather than mutating the snapshot in
// place — the iterator keeps iterating the pre-mutation view to
// completion. Close must be called (typically via defer) once iteration
// ends, or iterCount never drops back to 0 and every subsequent
// Set/Delete pays the copy cost needlessly.
func (h *Hash) Iterator() *HashIterator {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.iterCount++
	keys := make([]string, len(h.keys))
	copy(keys, h.keys)
	return &HashIterator{h: h, keys: keys, values: h.values, idx: -1}
}

// HashIterator walks a Hash's keys in insertion order over a frozen
// snapshot (see Iterator).
type HashIterator struct {
	h      *Hash
	keys   []string
	values map[string]Value
	idx    int
}

// Next advances to the next entry, returning false once exhausted.
func (it *HashIterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}

// Key returns the current entry's key. Valid only after Next returns true.
func (it *HashIterator) Key() string { return it.keys[it.idx] }

// Value returns the current entry's value. Valid only after Next returns true.
func (it *HashIterator) Value() Value { return it.values[it.keys[it.idx]] }

// Close releases this iterator's hold on h's iterCount.
func (it *HashIterator) Close() {
	it.h.mu.Lock()
	defer it.h.mu.Unlock()
	if it.h.iterCount > 0 {
		it.h.iterCount--
	}
}

func (h *Hash) IsEqualSoft(other Node) bool {
	return h.isEqual(other, valuesEqualSoft)
}

func (h *Hash) IsEqualHard(other Node) bool {
	return h.isEqual(other, valuesEqualHard)
}

func (h *Hash) isEqual(other Node, cmp func(a, b Value) bool) bool {
	o, ok := other.(*Hash)
	if !ok {
		return false
	}
	ak, bk := h.Keys(), o.Keys()
	if len(ak) != len(bk) {
		return false
	}
	for _, k := range ak {
		av, _ := h.Get(k)
		bv, present := o.Get(k)
		if !present || !cmp(av, bv) {
			return false
		}
	}
	return true
}
