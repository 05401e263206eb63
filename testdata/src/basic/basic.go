// Package basic exercises straight-line nil flows: zero-value pointers,
// direct nil assignments, and provably non-nil sources.
package basic

func derefZeroValue() int {
	var x *int
	return *x // want "potential nil dereference of `\\*x`"
}

func derefAfterNilAssignment() int {
	x := new(int)
	x = nil
	return *x // want "potential nil dereference of `\\*x`"
}

func derefNew() int {
	x := new(int)
	return *x
}

func derefAddressOf() int {
	y := 0
	x := &y
	return *x
}

func derefOverwrittenNil() int {
	var x *int
	y := 1
	x = &y
	return *x
}
