package graph

import "fmt"

// Target names either a node or a connection. It is how labels and
// attributes are addressed across the bridge.
type Target struct {
	Node NodeID
	Pair Pair
	conn bool
}

func NodeTarget(id NodeID) Target {
	return Target{Node: id}
}

func ConnTarget(p Pair) Target {
	return Target{Pair: p, conn: true}
}

func (t Target) IsNode() bool { return !t.conn }

func (t Target) String() string {
	if t.conn {
		return t.Pair.String()
	}
	return fmt.Sprintf("%d", t.Node)
}
