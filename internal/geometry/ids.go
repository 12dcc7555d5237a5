package geometry

import "github.com/paulmach/osm"

// IDAllocator hands out placeholder ids for new features: -1, -2, ...
// It is owned by one builder and is not safe for concurrent use.
type IDAllocator struct {
	next int64
}

// NewIDAllocator returns an allocator starting at -1
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{next: -1}
}

// Next returns the current placeholder and decrements the counter
func (a *IDAllocator) Next() int64 {
	id := a.next
	a.next--
	return id
}

// Peek returns the id the next call to Next will return
func (a *IDAllocator) Peek() int64 {
	return a.next
}

// Rewind resets the counter to a value previously returned by Peek.
// The builder uses it to give back ids of records that were dropped.
func (a *IDAllocator) Rewind(to int64) {
	if to < 0 && to > a.next {
		a.next = to
	}
}

// MemberCache is the batch-scoped set of way nodes already materialized
// as standalone elements
type MemberCache struct {
	seen map[osm.NodeID]struct{}
}

// NewMemberCache returns an empty cache
func NewMemberCache() *MemberCache {
	return &MemberCache{seen: make(map[osm.NodeID]struct{})}
}

// Has reports whether id was already materialized
func (c *MemberCache) Has(id osm.NodeID) bool {
	_, ok := c.seen[id]
	return ok
}

// Add records ids as materialized
func (c *MemberCache) Add(ids ...osm.NodeID) {
	for _, id := range ids {
		c.seen[id] = struct{}{}
	}
}

// Len returns the number of cached members
func (c *MemberCache) Len() int {
	return len(c.seen)
}
