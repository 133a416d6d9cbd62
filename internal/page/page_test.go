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

package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPage(t *testing.T) {
	pg, err := NewPage(
		NewInt64Column([]int64{1, 2, 3}, nil),
		NewStringColumn([]string{"a", "b", "c"}, []bool{false, true, false}),
	)
	require.NoError(t, err)

	assert.Equal(t, 3, pg.PositionCount())
	assert.Equal(t, 2, pg.ColumnCount())
	assert.Equal(t, []Kind{KindInt64, KindString}, pg.Kinds())
	assert.Positive(t, pg.SizeBytes())

	assert.Equal(t, int64(2), pg.Column(0).Int64(1))
	assert.False(t, pg.Column(0).IsNull(1))
	assert.True(t, pg.Column(1).IsNull(1))
	assert.Equal(t, "c", pg.Column(1).String(2))
}

func TestNewPageMismatchedColumns(t *testing.T) {
	_, err := NewPage(
		NewInt64Column([]int64{1, 2}, nil),
		NewInt64Column([]int64{1}, nil),
	)
	require.Error(t, err)
}

func TestNewPageNoColumns(t *testing.T) {
	_, err := NewPage()
	require.Error(t, err)
}

func TestColumnValue(t *testing.T) {
	col := NewFloat64Column([]float64{1.5, 0}, []bool{false, true})
	assert.Equal(t, 1.5, col.Value(0))
	assert.Nil(t, col.Value(1))

	bcol := NewBoolColumn([]bool{true}, nil)
	assert.Equal(t, true, bcol.Value(0))
}
