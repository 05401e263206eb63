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

// Package typeshelper hosts helper functions that enhance the `types` package.
// It centralizes the type classifications the lowering frontend relies on, so
// every caller answers "is this type nullable" the same way.
package typeshelper

import "go/types"

// IsNullable reports whether t is a nullable-of-T type, i.e., whether its
// values can be nil and dereferencing them can fault. For Go that is exactly
// the pointer types; aliases and named pointer types count.
func IsNullable(t types.Type) bool {
	if t == nil {
		return false
	}
	_, ok := types.Unalias(t).Underlying().(*types.Pointer)
	return ok
}

// IsBoolean reports whether t is a boolean type (including named boolean
// types), i.e., whether an expression of this type can be a branch condition.
func IsBoolean(t types.Type) bool {
	if t == nil {
		return false
	}
	basic, ok := types.Unalias(t).Underlying().(*types.Basic)
	return ok && basic.Info()&types.IsBoolean != 0
}
