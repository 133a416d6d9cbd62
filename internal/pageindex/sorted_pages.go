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

package pageindex

import (
	"context"
	"fmt"
	"io"

	"github.com/cardinalhq/pagesort/internal/page"
)

// SortedPages is a lazy, finite iterator over the sorted output pages of a
// Sorter. Output is chunked to the sorter's row-count/byte size policy,
// whichever binds first.
type SortedPages struct {
	s        *Sorter
	next     int
	channels []int
	builder  *page.Builder
}

// SortedPages returns an iterator over the sorted rows, re-materialized into
// output pages. It is only valid after a successful Sort. Each call returns
// an independent iterator over the same immutable sorted index; no
// additional sorting work is performed.
func (s *Sorter) SortedPages() (*SortedPages, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.st != stateSorted && s.st != stateDraining {
		return nil, fmt.Errorf("sorted pages: %w", ErrNotSorted)
	}
	s.st = stateDraining
	channels := make([]int, len(s.kinds))
	for i := range channels {
		channels[i] = i
	}
	return &SortedPages{
		s:        s,
		channels: channels,
		builder:  page.NewBuilder(s.kinds, s.cfg.MaxRowsPerPage, s.cfg.TargetPageBytes),
	}, nil
}

// Next returns the next sorted output page, or io.EOF when the index is
// exhausted.
func (it *SortedPages) Next(ctx context.Context) (*page.Page, error) {
	if it.s.closed {
		return nil, ErrClosed
	}
	if it.next >= len(it.s.index) {
		return nil, io.EOF
	}

	for it.next < len(it.s.index) && !it.builder.Full() {
		ref := it.s.index[it.next]
		if err := it.builder.AppendFrom(it.s.pages[ref.page], int(ref.position), it.channels); err != nil {
			return nil, fmt.Errorf("materialize row %d: %w", it.next, err)
		}
		it.next++
	}

	pg := it.builder.Build()
	it.s.rowsOut += int64(pg.PositionCount())
	rowsOutCounter.Add(ctx, int64(pg.PositionCount()))
	return pg, nil
}
