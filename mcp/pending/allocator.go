package pending

import "sync/atomic"

// IDAllocator hands out a monotonically increasing, peer-local sequence
// of request IDs. Both peer roles own one independent allocator each;
// IDs are never globally unique, only unique per sender (spec.md §9).
type IDAllocator struct {
	next atomic.Uint64
}

// Next returns the next request ID, starting at 1.
func (a *IDAllocator) Next() uint64 {
	return a.next.Add(1)
}
