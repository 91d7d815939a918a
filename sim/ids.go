package sim

import (
	"fmt"
	"sync"
)

// IDAllocator hands out observer ids that are unique within one simulation
// session. Independent sessions (e.g. parallel tests) use independent allocators.
// Ids start at 1; 0 means "not assigned".
type IDAllocator struct {
	mu   sync.Mutex
	used map[uint64]bool
	next uint64
}

// NewIDAllocator creates an empty allocator.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{used: make(map[uint64]bool), next: 1}
}

// Reserve claims a caller-chosen id. Returns an error if it is already taken.
func (a *IDAllocator) Reserve(id uint64) error {
	if id == 0 {
		return fmt.Errorf("id 0 is reserved")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.used[id] {
		return fmt.Errorf("id %d is already in use", id)
	}
	a.used[id] = true
	return nil
}

// Next returns the smallest id that has not been reserved yet.
func (a *IDAllocator) Next() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	for a.used[a.next] {
		a.next++
	}
	id := a.next
	a.used[id] = true
	return id
}

// Release makes an id available again.
func (a *IDAllocator) Release(id uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.used, id)
	if id != 0 && id < a.next {
		a.next = id
	}
}

// InUse reports whether id is currently reserved.
func (a *IDAllocator) InUse(id uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used[id]
}
