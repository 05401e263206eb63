// Package fields exercises member identity: two reads of the same field
// through the same base denote the same value, so a guard on one covers the
// other.
package fields

type node struct {
	next *node
	val  int
}

func nilFieldDeref(n *node) int {
	if n.next == nil {
		return n.next.val // want "potential nil dereference of `n\\.next\\.val`"
	}
	return 0
}

func guardedFieldDeref(n *node) int {
	if n.next != nil {
		return n.next.val
	}
	return 0
}

func fieldAfterNilStore(n *node) int {
	m := n.next
	if m == nil {
		return 0
	}
	return m.val
}

func chainWithoutGuard(n *node) int {
	// Unconstrained pointers are not reported; only provably nil ones are.
	return n.next.val
}
