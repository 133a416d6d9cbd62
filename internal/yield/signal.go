// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package yield provides the cooperative yield signal checked by the engine
// at row granularity. A true result means "stop this step now and return
// control to the driver"; internal progress is preserved for resumption.
package yield

import "time"

// Signal is asked periodically whether the current step should stop.
type Signal interface {
	ShouldYield() bool
}

type noneSignal struct{}

func (noneSignal) ShouldYield() bool { return false }

// None returns a signal that never yields.
func None() Signal {
	return noneSignal{}
}

// Func adapts a plain function to a Signal.
type Func func() bool

func (f Func) ShouldYield() bool { return f() }

// TimeSlice yields once the elapsed time since the last Reset reaches the
// slice duration. The driver calls Reset before resuming a stepped
// operation.
type TimeSlice struct {
	slice time.Duration
	start time.Time
}

// NewTimeSlice creates a time-slice signal with the given slice duration.
func NewTimeSlice(slice time.Duration) *TimeSlice {
	return &TimeSlice{slice: slice, start: time.Now()}
}

// Reset restarts the slice clock.
func (t *TimeSlice) Reset() {
	t.start = time.Now()
}

// ShouldYield reports whether the slice has elapsed.
func (t *TimeSlice) ShouldYield() bool {
	return time.Since(t.start) >= t.slice
}
