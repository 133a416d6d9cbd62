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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/pagesort/internal/page"
)

func int64Page(t *testing.T, values []int64, nulls []bool) *page.Page {
	t.Helper()
	pg, err := page.NewPage(page.NewInt64Column(values, nulls))
	require.NoError(t, err)
	return pg
}

func TestSpecValidate(t *testing.T) {
	require.Error(t, Spec{}.Validate(3))
	require.Error(t, Spec{{Channel: 3}}.Validate(3))
	require.Error(t, Spec{{Channel: -1}}.Validate(3))
	require.NoError(t, Spec{{Channel: 0}, {Channel: 2}}.Validate(3))
}

func TestNewComparatorEmptySpec(t *testing.T) {
	_, err := NewComparator(nil)
	require.Error(t, err)
}

func TestCompareAscending(t *testing.T) {
	cmp, err := NewComparator(Spec{{Channel: 0}})
	require.NoError(t, err)

	pg := int64Page(t, []int64{1, 2, 2}, nil)

	c, err := cmp.Compare(pg, 0, pg, 1)
	require.NoError(t, err)
	assert.Negative(t, c)

	c, err = cmp.Compare(pg, 1, pg, 0)
	require.NoError(t, err)
	assert.Positive(t, c)

	c, err = cmp.Compare(pg, 1, pg, 2)
	require.NoError(t, err)
	assert.Zero(t, c)
}

func TestCompareDescending(t *testing.T) {
	cmp, err := NewComparator(Spec{{Channel: 0, Descending: true}})
	require.NoError(t, err)

	pg := int64Page(t, []int64{1, 2}, nil)
	c, err := cmp.Compare(pg, 0, pg, 1)
	require.NoError(t, err)
	assert.Positive(t, c)
}

func TestCompareNullPlacement(t *testing.T) {
	pg := int64Page(t, []int64{0, 5}, []bool{true, false})

	first, err := NewComparator(Spec{{Channel: 0, NullsFirst: true}})
	require.NoError(t, err)
	c, err := first.Compare(pg, 0, pg, 1)
	require.NoError(t, err)
	assert.Negative(t, c)

	last, err := NewComparator(Spec{{Channel: 0, NullsFirst: false}})
	require.NoError(t, err)
	c, err = last.Compare(pg, 0, pg, 1)
	require.NoError(t, err)
	assert.Positive(t, c)

	// Null placement is absolute: descending does not flip it.
	descFirst, err := NewComparator(Spec{{Channel: 0, Descending: true, NullsFirst: true}})
	require.NoError(t, err)
	c, err = descFirst.Compare(pg, 0, pg, 1)
	require.NoError(t, err)
	assert.Negative(t, c)

	// Two nulls are equal on the channel.
	both := int64Page(t, []int64{0, 0}, []bool{true, true})
	c, err = first.Compare(both, 0, both, 1)
	require.NoError(t, err)
	assert.Zero(t, c)
}

func TestCompareMultiChannel(t *testing.T) {
	pg, err := page.NewPage(
		page.NewStringColumn([]string{"a", "a", "b"}, nil),
		page.NewInt64Column([]int64{2, 1, 0}, nil),
	)
	require.NoError(t, err)

	cmp, err := NewComparator(Spec{{Channel: 0}, {Channel: 1}})
	require.NoError(t, err)

	// Equal on channel 0, decided by channel 1.
	c, err := cmp.Compare(pg, 0, pg, 1)
	require.NoError(t, err)
	assert.Positive(t, c)

	// Decided by channel 0 before channel 1 is consulted.
	c, err = cmp.Compare(pg, 0, pg, 2)
	require.NoError(t, err)
	assert.Negative(t, c)
}

func TestCompareKindMismatch(t *testing.T) {
	a := int64Page(t, []int64{1}, nil)
	b, err := page.NewPage(page.NewStringColumn([]string{"x"}, nil))
	require.NoError(t, err)

	cmp, err := NewComparator(Spec{{Channel: 0}})
	require.NoError(t, err)

	_, err = cmp.Compare(a, 0, b, 0)
	require.ErrorIs(t, err, ErrNotComparable)
}

func TestCompareChannelOutOfRange(t *testing.T) {
	pg := int64Page(t, []int64{1}, nil)
	cmp, err := NewComparator(Spec{{Channel: 5}})
	require.NoError(t, err)

	_, err = cmp.Compare(pg, 0, pg, 0)
	require.ErrorIs(t, err, ErrNotComparable)
}

func TestCompareBoolAndFloat(t *testing.T) {
	pg, err := page.NewPage(
		page.NewBoolColumn([]bool{false, true}, nil),
		page.NewFloat64Column([]float64{1.5, -2.25}, nil),
	)
	require.NoError(t, err)

	boolCmp, err := NewComparator(Spec{{Channel: 0}})
	require.NoError(t, err)
	c, err := boolCmp.Compare(pg, 0, pg, 1)
	require.NoError(t, err)
	assert.Negative(t, c)

	floatCmp, err := NewComparator(Spec{{Channel: 1}})
	require.NoError(t, err)
	c, err = floatCmp.Compare(pg, 0, pg, 1)
	require.NoError(t, err)
	assert.Positive(t, c)
}
