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

import (
	"bytes"
	"encoding/gob"
	"errors"

	"github.com/klauspost/compress/s2"
	"github.com/tamasvajk/nilpath/util/orderedmap"
)

// FuncStats records how one function's exploration went. Drivers that need to
// distinguish "no issue found" from "analysis gave up at the step ceiling"
// read Complete.
type FuncStats struct {
	Steps         int
	Notifications int
	CheckErrors   int
	Complete      bool
}

// Summary aggregates exploration statistics for a set of functions, keyed by
// function name in the order they were recorded. It gob-encodes through an
// s2-compressed stream so a whole package's worth of stats stays cheap to
// write from CI runs.
type Summary struct {
	funcs *orderedmap.OrderedMap[string, FuncStats]
}

// NewSummary returns an empty summary.
func NewSummary() *Summary {
	return &Summary{funcs: orderedmap.New[string, FuncStats]()}
}

// Record stores the stats of one traversal result under the function name.
func (s *Summary) Record(fn string, r *Result) {
	s.funcs.Store(fn, FuncStats{
		Steps:         r.Steps,
		Notifications: len(r.Notifications),
		CheckErrors:   len(r.CheckErrors),
		Complete:      r.Complete,
	})
}

// Stats returns the recorded stats for fn.
func (s *Summary) Stats(fn string) (FuncStats, bool) {
	return s.funcs.Load(fn)
}

// Len returns the number of recorded functions.
func (s *Summary) Len() int { return s.funcs.Len() }

// OrderedRange iterates the recorded functions in recording order.
func (s *Summary) OrderedRange(f func(fn string, stats FuncStats) bool) {
	s.funcs.OrderedRange(f)
}

// Incomplete returns the names of functions whose exploration hit the step
// ceiling, in recording order.
func (s *Summary) Incomplete() []string {
	var names []string
	s.funcs.OrderedRange(func(fn string, stats FuncStats) bool {
		if !stats.Complete {
			names = append(names, fn)
		}
		return true
	})
	return names
}

// GobEncode encodes the summary via gob through an s2 compressor.
func (s *Summary) GobEncode() (b []byte, err error) {
	var buf bytes.Buffer
	writer := s2.NewWriter(&buf)
	defer func() {
		if cerr := writer.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err := gob.NewEncoder(writer).Encode(s.funcs); err != nil {
		return nil, err
	}

	// Close the s2 writer before taking the bytes so the stream is complete.
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode decodes a summary produced by GobEncode.
func (s *Summary) GobDecode(input []byte) error {
	s.funcs = orderedmap.New[string, FuncStats]()
	buf := bytes.NewBuffer(input)
	return gob.NewDecoder(s2.NewReader(buf)).Decode(&s.funcs)
}
