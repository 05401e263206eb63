// Package guards exercises nil-check branches: positive and negated guards,
// dereferences past a guard's scope, and the short-circuit imprecision.
package guards

func guarded(x *int) int {
	if x != nil {
		return *x
	}
	return 0
}

func negatedGuard(x *int) int {
	if x == nil {
		return *x // want "potential nil dereference of `\\*x`"
	}
	return 0
}

func derefOnBothBranches(x *int) int {
	if x != nil {
		return *x
	}
	return *x // want "potential nil dereference of `\\*x`"
}

func guardedElse(x *int) int {
	if x == nil {
		return 0
	}
	return *x
}

func nilOnLeftOfComparison(x *int) int {
	if nil != x {
		return *x
	}
	return 0
}

// Guards written with && are not understood; the nil-ness of x survives into
// the branch and the dereference is reported even though it cannot fault.
func shortCircuitGuard(ok bool) int {
	var x *int
	if ok && x != nil {
		return *x // want "potential nil dereference of `\\*x`"
	}
	return 0
}
