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

// Package pageindex buffers columnar pages, sorts a position index over all
// buffered rows with an external comparator, and lazily re-materializes the
// sorted rows into output pages.
//
// The sorter never copies row data while buffering: it retains the added
// pages and builds a growable index of (page, position) references. Sorting
// permutes the index once; output pages are rebuilt from the permuted index
// on demand.
package pageindex

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/cardinalhq/pagesort/internal/memaccount"
	"github.com/cardinalhq/pagesort/internal/ordering"
	"github.com/cardinalhq/pagesort/internal/page"
)

var (
	// ErrNoRows is returned by Sort when no rows have been buffered.
	ErrNoRows = errors.New("no rows buffered")

	// ErrSorted is returned when an operation is invalid after Sort, such
	// as adding a page or sorting a second time.
	ErrSorted = errors.New("index already sorted")

	// ErrNotSorted is returned by SortedPages before Sort has completed.
	ErrNotSorted = errors.New("index not sorted")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("sorter is closed")
)

// rowRef locates a single row as an index into the retained page slice.
// Rows are addressed positionally; raw references into row data are never
// held.
type rowRef struct {
	page     int32
	position int32
}

type state int

const (
	stateEmpty state = iota
	stateBuffering
	stateSorted
	stateDraining
)

// Config carries the immutable per-instance configuration of a Sorter.
type Config struct {
	// Accountant tracks retained page bytes. Nil means unlimited.
	Accountant memaccount.Accountant

	// MaxRowsPerPage bounds output page row count. Zero selects the default.
	MaxRowsPerPage int

	// TargetPageBytes bounds output page size in bytes. Zero selects the
	// default. Whichever bound binds first seals an output page.
	TargetPageBytes int64
}

// Sorter is the page index sorter. The driver adds pages, sorts once, then
// drains sorted output pages. Operations are only valid in the states
// described on each method; violations are reported eagerly.
type Sorter struct {
	cfg    Config
	acct   memaccount.Accountant
	pages  []*page.Page
	kinds  []page.Kind
	index  []rowRef
	st     state
	closed bool

	reserved int64
	rowsOut  int64
}

// New creates a sorter with the given configuration.
func New(cfg Config) *Sorter {
	acct := cfg.Accountant
	if acct == nil {
		acct = memaccount.Unlimited()
	}
	return &Sorter{cfg: cfg, acct: acct}
}

// AddPage appends all rows of pg to the position index and retains the page
// until sorted output is produced. It fails with a capacity error when the
// accountant's budget would be exceeded, in which case the page is not
// retained. Adding after Sort is an error.
func (s *Sorter) AddPage(pg *page.Page) error {
	if s.closed {
		return ErrClosed
	}
	if s.st == stateSorted || s.st == stateDraining {
		return fmt.Errorf("add page: %w", ErrSorted)
	}
	if pg.PositionCount() == 0 {
		return nil
	}
	if s.kinds == nil {
		s.kinds = pg.Kinds()
	} else if !slices.Equal(s.kinds, pg.Kinds()) {
		return fmt.Errorf("page schema %v does not match buffered schema %v", pg.Kinds(), s.kinds)
	}

	if err := s.acct.Reserve(pg.SizeBytes()); err != nil {
		return fmt.Errorf("buffer page: %w", err)
	}
	s.reserved += pg.SizeBytes()

	pageIdx := int32(len(s.pages))
	s.pages = append(s.pages, pg)
	for pos := range pg.PositionCount() {
		s.index = append(s.index, rowRef{page: pageIdx, position: int32(pos)})
	}
	s.st = stateBuffering

	rowsInCounter.Add(context.Background(), int64(pg.PositionCount()))
	return nil
}

// Sort permutes the position index into the order induced by the comparator
// bound to spec. It requires at least one buffered row and may be called at
// most once. Comparator failures are propagated verbatim and leave the index
// unsorted.
//
// Ties on all key channels fall back to row reference order (page insertion
// order, then position), so output is deterministic and preserves insertion
// order among equal rows.
func (s *Sorter) Sort(spec ordering.Spec) error {
	if s.closed {
		return ErrClosed
	}
	switch s.st {
	case stateEmpty:
		return fmt.Errorf("sort: %w", ErrNoRows)
	case stateSorted, stateDraining:
		return fmt.Errorf("sort: %w", ErrSorted)
	}
	if err := spec.Validate(len(s.kinds)); err != nil {
		return fmt.Errorf("sort: %w", err)
	}
	cmp, err := ordering.NewComparator(spec)
	if err != nil {
		return fmt.Errorf("sort: %w", err)
	}

	var cmpErr error
	sort.Slice(s.index, func(i, j int) bool {
		if cmpErr != nil {
			return false
		}
		a, b := s.index[i], s.index[j]
		c, err := cmp.Compare(s.pages[a.page], int(a.position), s.pages[b.page], int(b.position))
		if err != nil {
			cmpErr = err
			return false
		}
		if c != 0 {
			return c < 0
		}
		if a.page != b.page {
			return a.page < b.page
		}
		return a.position < b.position
	})
	if cmpErr != nil {
		return cmpErr
	}

	s.st = stateSorted
	return nil
}

// RowCount returns the total number of buffered rows.
func (s *Sorter) RowCount() int64 {
	return int64(len(s.index))
}

// MemoryUsage returns the bytes currently reserved for retained pages.
func (s *Sorter) MemoryUsage() int64 {
	return s.reserved
}

// TotalRowsReturned returns the number of rows emitted across all sorted
// output pages, summed over every iterator.
func (s *Sorter) TotalRowsReturned() int64 {
	return s.rowsOut
}

// Close releases retained pages and accountant reservations. It is the
// abandonment path for drivers discarding a sorter in any state.
func (s *Sorter) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.acct.Release(s.reserved)
	s.reserved = 0
	s.pages = nil
	s.index = nil
}
