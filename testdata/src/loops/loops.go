// Package loops exercises convergence: loop-carried pointer states reach a
// fixpoint and the verdict after the loop reflects every iteration count.
package loops

func loopCarriedNil(n int) int {
	var x *int
	for i := 0; i < n; i++ {
		x = nil
	}
	return *x // want "potential nil dereference of `\\*x`"
}

func loopAssignsNonNil(n int) int {
	x := new(int)
	for i := 0; i < n; i++ {
		x = new(int)
	}
	return *x
}

func guardInsideLoop(n int, x *int) int {
	total := 0
	for i := 0; i < n; i++ {
		if x != nil {
			total += *x
		}
	}
	return total
}
