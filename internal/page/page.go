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

// Package page provides the immutable columnar row batch used throughout the
// sort and merge engine, plus the builder that assembles output pages against
// a row-count/byte target-size policy.
//
// A Page is never mutated after construction. Consumers address individual
// rows by (page, position) pairs instead of copying row data; a position is
// valid only while the page is retained.
package page

import (
	"fmt"
)

// Page is an immutable columnar batch. All columns have the same length,
// which is the page's position (row) count.
type Page struct {
	cols      []Column
	positions int
	size      int64
}

// NewPage creates a page from the given columns. All columns must have the
// same length. Zero columns is an error; a zero-row page is allowed.
func NewPage(cols ...Column) (*Page, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("page requires at least one column")
	}
	positions := cols[0].Len()
	var size int64
	for i := range cols {
		if cols[i].Len() != positions {
			return nil, fmt.Errorf("column %d has %d positions, expected %d", i, cols[i].Len(), positions)
		}
		size += cols[i].sizeBytes()
	}
	return &Page{cols: cols, positions: positions, size: size}, nil
}

// PositionCount returns the number of rows in the page.
func (p *Page) PositionCount() int {
	return p.positions
}

// ColumnCount returns the number of columns (channels) in the page.
func (p *Page) ColumnCount() int {
	return len(p.cols)
}

// Column returns the column at the given channel index.
func (p *Page) Column(channel int) *Column {
	return &p.cols[channel]
}

// Kinds returns the column kinds of the page, in channel order.
func (p *Page) Kinds() []Kind {
	kinds := make([]Kind, len(p.cols))
	for i := range p.cols {
		kinds[i] = p.cols[i].Kind()
	}
	return kinds
}

// SizeBytes returns the estimated retained size of the page. This is the
// amount reserved against a memory accountant while the page is held.
func (p *Page) SizeBytes() int64 {
	return p.size
}
