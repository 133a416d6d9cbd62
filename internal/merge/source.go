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

package merge

import (
	"context"

	"github.com/cardinalhq/pagesort/internal/page"
)

// SourceStatus is the result of polling a page source.
type SourceStatus int

const (
	// SourceReady means a page was produced.
	SourceReady SourceStatus = iota

	// SourceBlocked means no page is available yet; the caller must retry
	// later. Polling never blocks.
	SourceBlocked

	// SourceFinished means the source is permanently exhausted.
	SourceFinished
)

func (s SourceStatus) String() string {
	switch s {
	case SourceReady:
		return "ready"
	case SourceBlocked:
		return "blocked"
	case SourceFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// PageSource is a lazy sequence of pages. Poll never blocks the calling
// goroutine; "not ready" is communicated as SourceBlocked. The returned
// page is owned by the caller until consumed.
type PageSource interface {
	Poll(ctx context.Context) (*page.Page, SourceStatus, error)
	Close() error
}

// SlicePageSource serves a fixed slice of pages in order. It is always
// ready. Used by tests and by drivers whose inputs are fully materialized.
type SlicePageSource struct {
	pages  []*page.Page
	pos    int
	closed bool
}

// NewSlicePageSource creates a source over the given pages.
func NewSlicePageSource(pages ...*page.Page) *SlicePageSource {
	return &SlicePageSource{pages: pages}
}

// Poll returns the next page, or SourceFinished when exhausted.
func (s *SlicePageSource) Poll(_ context.Context) (*page.Page, SourceStatus, error) {
	if s.closed || s.pos >= len(s.pages) {
		return nil, SourceFinished, nil
	}
	pg := s.pages[s.pos]
	s.pos++
	return pg, SourceReady, nil
}

// Close releases the source.
func (s *SlicePageSource) Close() error {
	s.closed = true
	s.pages = nil
	return nil
}
