package graph

import (
	"sync"
)

// UnionFind is a disjoint-set forest over node ids.
// Path compression plus union by rank; amortized O(1).
type UnionFind struct {
	parent map[NodeID]NodeID
	rank   map[NodeID]int
	mu     sync.Mutex
}

// NewUnionFind puts every id in its own set.
func NewUnionFind(ids []NodeID) *UnionFind {
	uf := &UnionFind{
		parent: make(map[NodeID]NodeID, len(ids)),
		rank:   make(map[NodeID]int, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

// Find returns the set representative, or false for an unknown id.
func (uf *UnionFind) Find(id NodeID) (NodeID, bool) {
	uf.mu.Lock() // path compression writes
	defer uf.mu.Unlock()
	return uf.find(id)
}

func (uf *UnionFind) find(id NodeID) (NodeID, bool) {
	p, ok := uf.parent[id]
	if !ok {
		return 0, false
	}
	if p != id {
		root, _ := uf.find(p)
		uf.parent[id] = root
		return root, true
	}
	return id, true
}

// Union merges the sets of a and b. It reports false when they were
// already joined or either id is unknown.
func (uf *UnionFind) Union(a, b NodeID) bool {
	uf.mu.Lock()
	defer uf.mu.Unlock()

	ra, okA := uf.find(a)
	rb, okB := uf.find(b)
	if !okA || !okB || ra == rb {
		return false
	}

	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
	return true
}

// Connected checks whether a and b share a set.
func (uf *UnionFind) Connected(a, b NodeID) bool {
	ra, okA := uf.Find(a)
	rb, okB := uf.Find(b)
	return okA && okB && ra == rb
}

// Add registers id as a singleton if it is new.
func (uf *UnionFind) Add(id NodeID) {
	uf.mu.Lock()
	defer uf.mu.Unlock()
	if _, ok := uf.parent[id]; !ok {
		uf.parent[id] = id
	}
}
