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

package ordering

import (
	"cmp"
	"errors"
	"fmt"
	"strings"

	"github.com/cardinalhq/pagesort/internal/page"
)

// ErrNotComparable is returned when two operands cannot be ordered, for
// example when the same channel carries different kinds in two pages.
var ErrNotComparable = errors.New("operands are not comparable")

// Comparator orders rows addressed by (page, position) pairs. Implementations
// must provide a total order that is consistent across calls for the lifetime
// of one sort or merge.
type Comparator interface {
	// Compare returns a negative value if row a orders before row b, zero
	// if they are equal on all key channels, and a positive value if a
	// orders after b. Comparison failures are propagated verbatim.
	Compare(a *page.Page, aPos int, b *page.Page, bPos int) (int, error)
}

type rowComparator struct {
	spec Spec
}

// NewComparator builds a comparator bound to the given key specification.
// The spec must be non-empty; channel bounds are checked against each page
// at comparison time.
func NewComparator(spec Spec) (Comparator, error) {
	if len(spec) == 0 {
		return nil, errors.New("sort key specification is empty")
	}
	return &rowComparator{spec: spec}, nil
}

func (rc *rowComparator) Compare(a *page.Page, aPos int, b *page.Page, bPos int) (int, error) {
	for _, key := range rc.spec {
		if key.Channel >= a.ColumnCount() || key.Channel >= b.ColumnCount() {
			return 0, fmt.Errorf("channel %d out of range: %w", key.Channel, ErrNotComparable)
		}
		colA := a.Column(key.Channel)
		colB := b.Column(key.Channel)
		if colA.Kind() != colB.Kind() {
			return 0, fmt.Errorf("channel %d: %s vs %s: %w", key.Channel, colA.Kind(), colB.Kind(), ErrNotComparable)
		}

		nullA := colA.IsNull(aPos)
		nullB := colB.IsNull(bPos)
		if nullA || nullB {
			if nullA && nullB {
				continue
			}
			// Null placement is absolute; direction applies to values only.
			if nullA == key.NullsFirst {
				return -1, nil
			}
			return 1, nil
		}

		var c int
		switch colA.Kind() {
		case page.KindInt64:
			c = cmp.Compare(colA.Int64(aPos), colB.Int64(bPos))
		case page.KindFloat64:
			c = cmp.Compare(colA.Float64(aPos), colB.Float64(bPos))
		case page.KindString:
			c = strings.Compare(colA.String(aPos), colB.String(bPos))
		case page.KindBool:
			c = compareBool(colA.Bool(aPos), colB.Bool(bPos))
		default:
			return 0, fmt.Errorf("channel %d: unsupported kind %s: %w", key.Channel, colA.Kind(), ErrNotComparable)
		}
		if c == 0 {
			continue
		}
		if key.Descending {
			return -c, nil
		}
		return c, nil
	}
	return 0, nil
}

// compareBool orders false before true.
func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
