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

// Package memaccount tracks bytes reserved by the sort and merge engine
// against a caller-defined budget. A reservation failure is a capacity
// error: the engine surfaces it to the driver and does not retry.
package memaccount

import (
	"errors"
	"fmt"
)

// ErrBudgetExceeded is the sentinel wrapped by every failed reservation.
var ErrBudgetExceeded = errors.New("memory budget exceeded")

// Accountant tracks bytes reserved by the engine. The engine is
// single-threaded and cooperative, so implementations are not required to
// be safe for concurrent use.
type Accountant interface {
	// Reserve records bytes as in use. It fails when the reservation would
	// exceed the accountant's budget; the error wraps ErrBudgetExceeded.
	Reserve(bytes int64) error

	// Release returns previously reserved bytes.
	Release(bytes int64)

	// Usage returns the bytes currently reserved.
	Usage() int64
}

// Local is a budgeted in-process accountant. A budget of zero or less means
// unlimited.
type Local struct {
	budget int64
	used   int64
}

// NewLocal creates an accountant enforcing the given byte budget.
func NewLocal(budget int64) *Local {
	return &Local{budget: budget}
}

// Unlimited creates an accountant that tracks usage but never fails.
func Unlimited() *Local {
	return &Local{}
}

// Reserve records bytes as in use, failing when the budget would be exceeded.
func (a *Local) Reserve(bytes int64) error {
	if a.budget > 0 && a.used+bytes > a.budget {
		return fmt.Errorf("reserve %d bytes (used %d of %d): %w", bytes, a.used, a.budget, ErrBudgetExceeded)
	}
	a.used += bytes
	return nil
}

// Release returns previously reserved bytes.
func (a *Local) Release(bytes int64) {
	a.used -= bytes
	if a.used < 0 {
		a.used = 0
	}
}

// Usage returns the bytes currently reserved.
func (a *Local) Usage() int64 {
	return a.used
}
