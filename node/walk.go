package node

import "errors"

// SkipChildren is returned by a [WalkFunc] to skip the children of the visited node.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for every node visited by [Walk] with the node's parent,
// nil for the node Walk started at.
type WalkFunc func(n, parent *Node) error

// Walk visits n and its descendants depth first, in document order.
func Walk(n *Node, fn WalkFunc) error {
	return walk(n, nil, fn)
}

func walk(n, parent *Node, fn WalkFunc) error {
	err := fn(n, parent)
	if errors.Is(err, SkipChildren) {
		return nil
	}
	if err != nil {
		return err
	}

	if !n.Kind.AllowsBody() {
		return nil
	}

	for _, c := range n.Body {
		if err := walk(c, n, fn); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the first node in n's subtree, n included, for which match returns true.
func Find(n *Node, match func(*Node) bool) *Node {
	var found *Node
	_ = Walk(n, func(c, _ *Node) error {
		if found != nil {
			return SkipChildren
		}
		if match(c) {
			found = c
			return SkipChildren
		}
		return nil
	})
	return found
}
