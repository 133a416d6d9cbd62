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

// Package ordering defines sort key specifications over page channels and
// builds row comparators from them. A comparator is constructed once per
// sort or merge instance and is immutable; there is no process-wide
// comparator state.
package ordering

import (
	"errors"
	"fmt"
)

// Channel describes one component of a sort key: which channel to compare,
// in which direction, and where null values collate.
type Channel struct {
	// Channel is the column index within the pages being ordered.
	Channel int

	// Descending inverts the value order. Null placement is not affected;
	// NullsFirst is absolute regardless of direction.
	Descending bool

	// NullsFirst collates nulls before all non-null values when true,
	// after them when false.
	NullsFirst bool
}

// Spec is an ordered, non-empty list of key channels defining a total order
// over rows.
type Spec []Channel

// Validate checks that the spec is non-empty and that every channel index is
// valid for a page with the given column count.
func (s Spec) Validate(columnCount int) error {
	if len(s) == 0 {
		return errors.New("sort key specification is empty")
	}
	for i, ch := range s {
		if ch.Channel < 0 || ch.Channel >= columnCount {
			return fmt.Errorf("sort key %d: channel %d out of range for %d columns", i, ch.Channel, columnCount)
		}
	}
	return nil
}
