//  Copyright (c) 2025 Tamas Vajk
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package symexec

import "fmt"

// Category groups constraints into mutually exclusive pairs. A value can hold
// at most one constraint per category in a given state; attaching the other
// member of the pair is a contradiction and prunes the path.
type Category uint8

const (
	// CatNullness is the {Null, NotNull} pair.
	CatNullness Category = iota
	// CatTruth is the {True, False} pair.
	CatTruth
)

// Constraint is a provable fact attached to a symbolic value in a state.
// The zero value Unconstrained means no fact is known.
type Constraint uint8

const (
	// Unconstrained is the absence of a constraint in a category.
	Unconstrained Constraint = iota
	// Null states the value is known to be null.
	Null
	// NotNull states the value is known to be non-null.
	NotNull
	// True states the value is known to be boolean true.
	True
	// False states the value is known to be boolean false.
	False
)

// Category returns the category c belongs to. Calling it on Unconstrained is
// a programming error.
func (c Constraint) Category() Category {
	switch c {
	case Null, NotNull:
		return CatNullness
	case True, False:
		return CatTruth
	}
	panic(fmt.Sprintf("constraint %d has no category", uint8(c)))
}

// Negate returns the other member of c's pair.
func (c Constraint) Negate() Constraint {
	switch c {
	case Null:
		return NotNull
	case NotNull:
		return Null
	case True:
		return False
	case False:
		return True
	}
	panic(fmt.Sprintf("constraint %d has no negation", uint8(c)))
}

// String returns the constraint name.
func (c Constraint) String() string {
	switch c {
	case Unconstrained:
		return "unconstrained"
	case Null:
		return "null"
	case NotNull:
		return "notnull"
	case True:
		return "true"
	case False:
		return "false"
	}
	return fmt.Sprintf("constraint(%d)", uint8(c))
}
