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

// Kind identifies the value type stored in a column.
type Kind uint8

const (
	KindInt64 Kind = iota
	KindFloat64
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Column is a typed value vector with per-position null flags. Only the
// backing slice matching the column's kind is populated.
type Column struct {
	kind  Kind
	nulls []bool
	i64   []int64
	f64   []float64
	str   []string
	bools []bool
}

// NewInt64Column creates an int64 column. nulls may be nil for all-valid.
func NewInt64Column(values []int64, nulls []bool) Column {
	return Column{kind: KindInt64, i64: values, nulls: nulls}
}

// NewFloat64Column creates a float64 column. nulls may be nil for all-valid.
func NewFloat64Column(values []float64, nulls []bool) Column {
	return Column{kind: KindFloat64, f64: values, nulls: nulls}
}

// NewStringColumn creates a string column. nulls may be nil for all-valid.
func NewStringColumn(values []string, nulls []bool) Column {
	return Column{kind: KindString, str: values, nulls: nulls}
}

// NewBoolColumn creates a bool column. nulls may be nil for all-valid.
func NewBoolColumn(values []bool, nulls []bool) Column {
	return Column{kind: KindBool, bools: values, nulls: nulls}
}

// Kind returns the value type of the column.
func (c *Column) Kind() Kind {
	return c.kind
}

// Len returns the number of positions in the column.
func (c *Column) Len() int {
	switch c.kind {
	case KindInt64:
		return len(c.i64)
	case KindFloat64:
		return len(c.f64)
	case KindString:
		return len(c.str)
	case KindBool:
		return len(c.bools)
	default:
		return 0
	}
}

// IsNull reports whether the value at the given position is null.
func (c *Column) IsNull(pos int) bool {
	return c.nulls != nil && c.nulls[pos]
}

// Int64 returns the int64 value at the given position.
// The column kind must be KindInt64 and the position must not be null.
func (c *Column) Int64(pos int) int64 {
	return c.i64[pos]
}

// Float64 returns the float64 value at the given position.
func (c *Column) Float64(pos int) float64 {
	return c.f64[pos]
}

// String returns the string value at the given position.
func (c *Column) String(pos int) string {
	return c.str[pos]
}

// Bool returns the bool value at the given position.
func (c *Column) Bool(pos int) bool {
	return c.bools[pos]
}

// Value returns the value at the given position as an any, or nil if the
// position is null. Intended for boundary code (file conversion, tests),
// not the comparison hot path.
func (c *Column) Value(pos int) any {
	if c.IsNull(pos) {
		return nil
	}
	switch c.kind {
	case KindInt64:
		return c.i64[pos]
	case KindFloat64:
		return c.f64[pos]
	case KindString:
		return c.str[pos]
	case KindBool:
		return c.bools[pos]
	default:
		return nil
	}
}

// sizeBytes estimates retained bytes for accounting purposes. String values
// count their byte length plus header overhead; fixed-width kinds count
// their width. Null flags count one byte per position.
func (c *Column) sizeBytes() int64 {
	var size int64
	switch c.kind {
	case KindInt64:
		size = int64(len(c.i64)) * 8
	case KindFloat64:
		size = int64(len(c.f64)) * 8
	case KindString:
		for _, s := range c.str {
			size += int64(len(s)) + 16
		}
	case KindBool:
		size = int64(len(c.bools))
	}
	return size + int64(len(c.nulls))
}
