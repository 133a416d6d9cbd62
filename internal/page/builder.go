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

import "fmt"

const (
	// DefaultMaxRows is the default row-count bound for an output page.
	DefaultMaxRows = 8192

	// DefaultTargetBytes is the default byte-size bound for an output page.
	// Whichever of the two bounds binds first seals the page.
	DefaultTargetBytes = 1 << 20
)

// Builder accumulates rows into a new Page. Rows are appended one at a time,
// either projected out of an existing page (AppendFrom) or from raw values
// (AppendRow). Build seals the accumulated rows into an immutable Page and
// resets the builder for reuse.
type Builder struct {
	kinds       []Kind
	maxRows     int
	targetBytes int64

	nulls [][]bool
	i64   [][]int64
	f64   [][]float64
	str   [][]string
	bools [][]bool

	rows  int
	bytes int64
}

// NewBuilder creates a builder producing pages with the given column kinds.
// maxRows and targetBytes bound the output page size; zero values select the
// defaults.
func NewBuilder(kinds []Kind, maxRows int, targetBytes int64) *Builder {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	if targetBytes <= 0 {
		targetBytes = DefaultTargetBytes
	}
	b := &Builder{
		kinds:       kinds,
		maxRows:     maxRows,
		targetBytes: targetBytes,
	}
	b.reset()
	return b
}

func (b *Builder) reset() {
	n := len(b.kinds)
	b.nulls = make([][]bool, n)
	b.i64 = make([][]int64, n)
	b.f64 = make([][]float64, n)
	b.str = make([][]string, n)
	b.bools = make([][]bool, n)
	b.rows = 0
	b.bytes = 0
}

// RowCount returns the number of rows appended since the last Build.
func (b *Builder) RowCount() int {
	return b.rows
}

// Empty reports whether the builder holds no pending rows.
func (b *Builder) Empty() bool {
	return b.rows == 0
}

// EstimatedBytes returns the estimated retained size of the pending rows.
func (b *Builder) EstimatedBytes() int64 {
	return b.bytes
}

// Full reports whether the builder has reached its row-count or byte bound,
// whichever binds first.
func (b *Builder) Full() bool {
	return b.rows >= b.maxRows || b.bytes >= b.targetBytes
}

// AppendFrom appends one row to the builder, taking the value of each
// projected channel from the source page at the given position. channels
// selects which source channels to copy and in what order; its length must
// match the builder's column count and the source kinds must match the
// builder kinds.
func (b *Builder) AppendFrom(src *Page, pos int, channels []int) error {
	if len(channels) != len(b.kinds) {
		return fmt.Errorf("projection has %d channels, builder has %d columns", len(channels), len(b.kinds))
	}
	for i, ch := range channels {
		if ch < 0 || ch >= src.ColumnCount() {
			return fmt.Errorf("channel %d out of range for page with %d columns", ch, src.ColumnCount())
		}
		col := src.Column(ch)
		if col.Kind() != b.kinds[i] {
			return fmt.Errorf("channel %d is %s, builder column %d is %s", ch, col.Kind(), i, b.kinds[i])
		}
		b.appendValue(i, col, pos)
	}
	b.rows++
	return nil
}

func (b *Builder) appendValue(i int, col *Column, pos int) {
	null := col.IsNull(pos)
	b.nulls[i] = append(b.nulls[i], null)
	b.bytes++
	switch b.kinds[i] {
	case KindInt64:
		var v int64
		if !null {
			v = col.Int64(pos)
		}
		b.i64[i] = append(b.i64[i], v)
		b.bytes += 8
	case KindFloat64:
		var v float64
		if !null {
			v = col.Float64(pos)
		}
		b.f64[i] = append(b.f64[i], v)
		b.bytes += 8
	case KindString:
		var v string
		if !null {
			v = col.String(pos)
		}
		b.str[i] = append(b.str[i], v)
		b.bytes += int64(len(v)) + 16
	case KindBool:
		var v bool
		if !null {
			v = col.Bool(pos)
		}
		b.bools[i] = append(b.bools[i], v)
		b.bytes++
	}
}

// AppendRow appends one row of raw values. A nil value is recorded as null;
// non-nil values must match the builder's column kinds. Intended for
// boundary code (file conversion, tests).
func (b *Builder) AppendRow(values []any) error {
	if len(values) != len(b.kinds) {
		return fmt.Errorf("row has %d values, builder has %d columns", len(values), len(b.kinds))
	}
	for i, v := range values {
		null := v == nil
		b.nulls[i] = append(b.nulls[i], null)
		b.bytes++
		switch b.kinds[i] {
		case KindInt64:
			var val int64
			if !null {
				var ok bool
				if val, ok = v.(int64); !ok {
					return fmt.Errorf("column %d: expected int64, got %T", i, v)
				}
			}
			b.i64[i] = append(b.i64[i], val)
			b.bytes += 8
		case KindFloat64:
			var val float64
			if !null {
				var ok bool
				if val, ok = v.(float64); !ok {
					return fmt.Errorf("column %d: expected float64, got %T", i, v)
				}
			}
			b.f64[i] = append(b.f64[i], val)
			b.bytes += 8
		case KindString:
			var val string
			if !null {
				var ok bool
				if val, ok = v.(string); !ok {
					return fmt.Errorf("column %d: expected string, got %T", i, v)
				}
			}
			b.str[i] = append(b.str[i], val)
			b.bytes += int64(len(val)) + 16
		case KindBool:
			var val bool
			if !null {
				var ok bool
				if val, ok = v.(bool); !ok {
					return fmt.Errorf("column %d: expected bool, got %T", i, v)
				}
			}
			b.bools[i] = append(b.bools[i], val)
			b.bytes++
		}
	}
	b.rows++
	return nil
}

// Build seals the pending rows into an immutable Page and resets the builder
// for reuse. Building with zero pending rows returns a zero-row page.
func (b *Builder) Build() *Page {
	cols := make([]Column, len(b.kinds))
	for i, kind := range b.kinds {
		nulls := b.nulls[i]
		if !anyTrue(nulls) {
			nulls = nil
		}
		switch kind {
		case KindInt64:
			cols[i] = NewInt64Column(b.i64[i], nulls)
		case KindFloat64:
			cols[i] = NewFloat64Column(b.f64[i], nulls)
		case KindString:
			cols[i] = NewStringColumn(b.str[i], nulls)
		case KindBool:
			cols[i] = NewBoolColumn(b.bools[i], nulls)
		}
	}
	rows := b.rows
	b.reset()
	pg, err := NewPage(cols...)
	if err != nil {
		// All columns were appended row-at-a-time, so lengths always agree.
		panic(fmt.Sprintf("builder produced inconsistent page (%d rows): %v", rows, err))
	}
	return pg
}

func anyTrue(flags []bool) bool {
	for _, f := range flags {
		if f {
			return true
		}
	}
	return false
}
