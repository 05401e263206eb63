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

package diagnostic

import (
	"errors"
	"go/token"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tamasvajk/nilpath/ir"
	"github.com/tamasvajk/nilpath/symexec"
)

func notification(pos token.Pos, text string) symexec.Notification {
	return symexec.Notification{Check: "nilderef", Ref: ir.Ref{Pos: pos, Text: text}}
}

func TestNotificationsBecomeDiagnostics(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	e.AddNotifications([]symexec.Notification{notification(10, "*x")})

	ds := e.Diagnostics()
	require.Len(t, ds, 1)
	require.Equal(t, token.Pos(10), ds[0].Pos)
	require.Equal(t, "potential nil dereference of `*x`", ds[0].Message)
}

func TestDuplicatesCollapse(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	// The same fact reported from two explored paths, plus a distinct fact at
	// the same position.
	e.AddNotifications([]symexec.Notification{
		notification(10, "*x"),
		notification(10, "*x"),
		notification(10, "x.next"),
	})
	e.AddNotifications([]symexec.Notification{notification(10, "*x")})

	ds := e.Diagnostics()
	require.Len(t, ds, 2)
}

func TestOrderedByPositionThenMessage(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	e.AddNotifications([]symexec.Notification{
		notification(30, "*z"),
		notification(10, "*b"),
		notification(10, "*a"),
		notification(20, "*y"),
	})

	ds := e.Diagnostics()
	require.Len(t, ds, 4)
	var got []struct {
		pos token.Pos
		msg string
	}
	for _, d := range ds {
		got = append(got, struct {
			pos token.Pos
			msg string
		}{d.Pos, d.Message})
	}
	require.Equal(t, token.Pos(10), got[0].pos)
	require.Equal(t, "potential nil dereference of `*a`", got[0].msg)
	require.Equal(t, token.Pos(10), got[1].pos)
	require.Equal(t, "potential nil dereference of `*b`", got[1].msg)
	require.Equal(t, token.Pos(20), got[2].pos)
	require.Equal(t, token.Pos(30), got[3].pos)
}

func TestErrorsAreReported(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	e.AddError(5, errors.New("function too large"))

	ds := e.Diagnostics()
	require.Len(t, ds, 1)
	require.Equal(t, token.Pos(5), ds[0].Pos)
	require.Equal(t, "analysis incomplete: function too large", ds[0].Message)
}

func TestInvalidPositionAnchorsAtFileStart(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	e.AddError(token.NoPos, errors.New("panic during analysis"))

	ds := e.Diagnostics()
	require.Len(t, ds, 1)
	require.Equal(t, token.Pos(1), ds[0].Pos)
}
