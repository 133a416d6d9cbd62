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

// Package merge merges K independently pre-sorted lazy page sequences into
// one globally sorted lazy page sequence.
//
// Execution is cooperative and pull-based: a single external driver calls
// Step repeatedly, and every suspension (a blocked input, the yield signal)
// is communicated as a return value at a row boundary, never by blocking.
// The merger is an explicit resumable state machine: the cursor heap, the
// pending-cursor queue, and the partially filled output builder carry all
// progress between steps.
package merge

import (
	"container/heap"
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/pagesort/internal/memaccount"
	"github.com/cardinalhq/pagesort/internal/ordering"
	"github.com/cardinalhq/pagesort/internal/page"
	"github.com/cardinalhq/pagesort/internal/yield"
)

var (
	// ErrClosed is returned by operations on a closed merger.
	ErrClosed = errors.New("merger is closed")

	// ErrResultPending is returned by Step when the previous output page
	// has not been taken via Result.
	ErrResultPending = errors.New("previous result not taken")
)

// StepResult is the outcome of one bounded unit of merge work.
type StepResult int

const (
	// StepBlocked means an input source has no page ready. The driver must
	// retry later; all progress is retained.
	StepBlocked StepResult = iota

	// StepYielded means the yield signal fired mid-step. A subsequent Step
	// resumes exactly where this one left off.
	StepYielded

	// StepHasResult means a full output page is ready to be taken via
	// Result.
	StepHasResult

	// StepFinished means all sources are exhausted and no output is
	// pending.
	StepFinished
)

func (r StepResult) String() string {
	switch r {
	case StepBlocked:
		return "blocked"
	case StepYielded:
		return "yielded"
	case StepHasResult:
		return "has-result"
	case StepFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// FullFunc decides when the output builder should be sealed into a page.
type FullFunc func(b *page.Builder) bool

// Config carries the immutable per-instance configuration of a Merger.
type Config struct {
	// Spec is the key specification every input sequence is pre-sorted by.
	// The bound comparator defines the global output order.
	Spec ordering.Spec

	// OutputChannels projects which input channels to emit, in order.
	OutputChannels []int

	// OutputKinds are the column kinds of the projected channels.
	OutputKinds []page.Kind

	// MaxRowsPerPage and TargetPageBytes bound output pages when Full is
	// nil. Zero values select the builder defaults.
	MaxRowsPerPage  int
	TargetPageBytes int64

	// Full overrides the output builder's default size policy. Consulted
	// after each appended row.
	Full FullFunc

	// Accountant tracks retained input pages and output builder growth.
	// Nil means unlimited.
	Accountant memaccount.Accountant

	// Yield is checked at row granularity. Nil means never yield.
	Yield yield.Signal
}

// cursor tracks one source's current page and position. A cursor in the
// heap always addresses a valid unconsumed row; a cursor whose page is
// exhausted moves to the pending queue until its source produces the next
// page or reports exhaustion.
type cursor struct {
	source   PageSource
	index    int
	page     *page.Page
	pos      int
	reserved int64
}

// cursorHeap is a min-heap over live cursors keyed by the bound comparator
// applied to each cursor's current row. Ties on all key channels break by
// lowest source index, keeping merge output deterministic for a fixed set
// of inputs.
type cursorHeap struct {
	cursors []*cursor
	m       *Merger
}

func (h *cursorHeap) Len() int { return len(h.cursors) }

func (h *cursorHeap) Less(i, j int) bool {
	a, b := h.cursors[i], h.cursors[j]
	c, err := h.m.cmp.Compare(a.page, a.pos, b.page, b.pos)
	if err != nil {
		if h.m.cmpErr == nil {
			h.m.cmpErr = err
		}
		return false
	}
	if c != 0 {
		return c < 0
	}
	return a.index < b.index
}

func (h *cursorHeap) Swap(i, j int) {
	h.cursors[i], h.cursors[j] = h.cursors[j], h.cursors[i]
}

func (h *cursorHeap) Push(x any) {
	h.cursors = append(h.cursors, x.(*cursor))
}

func (h *cursorHeap) Pop() any {
	n := len(h.cursors)
	c := h.cursors[n-1]
	h.cursors[n-1] = nil
	h.cursors = h.cursors[:n-1]
	return c
}

// Merger is the stream merger. It has no internal goroutines or locks;
// exactly one driver steps it.
type Merger struct {
	cmp      ordering.Comparator
	spec     ordering.Spec
	channels []int
	kinds    []page.Kind
	full     FullFunc
	acct     memaccount.Accountant
	sig      yield.Signal

	cursors []*cursor
	h       cursorHeap
	pending []*cursor
	builder *page.Builder

	builderReserved int64
	result          *page.Page
	finished        bool
	closed          bool
	cmpErr          error
	rowsOut         int64
}

// NewMerger creates a merger over the given pre-sorted sources. K may be
// zero, in which case the first Step returns StepFinished.
func NewMerger(cfg Config, sources []PageSource) (*Merger, error) {
	if len(cfg.OutputChannels) == 0 {
		return nil, errors.New("output channel projection is empty")
	}
	if len(cfg.OutputKinds) != len(cfg.OutputChannels) {
		return nil, fmt.Errorf("projection has %d channels but %d output kinds", len(cfg.OutputChannels), len(cfg.OutputKinds))
	}
	cmp, err := ordering.NewComparator(cfg.Spec)
	if err != nil {
		return nil, err
	}

	acct := cfg.Accountant
	if acct == nil {
		acct = memaccount.Unlimited()
	}
	sig := cfg.Yield
	if sig == nil {
		sig = yield.None()
	}
	full := cfg.Full
	if full == nil {
		full = func(b *page.Builder) bool { return b.Full() }
	}

	m := &Merger{
		cmp:      cmp,
		spec:     cfg.Spec,
		channels: cfg.OutputChannels,
		kinds:    cfg.OutputKinds,
		full:     full,
		acct:     acct,
		sig:      sig,
		builder:  page.NewBuilder(cfg.OutputKinds, cfg.MaxRowsPerPage, cfg.TargetPageBytes),
	}
	m.h.m = m
	for i, src := range sources {
		c := &cursor{source: src, index: i}
		m.cursors = append(m.cursors, c)
		m.pending = append(m.pending, c)
	}
	return m, nil
}

// Step performs one bounded unit of merge work. Non-terminal results must
// be followed by another Step (after taking the result, for StepHasResult).
// Errors are fatal to the merge and the returned StepResult is then
// meaningless; the driver is responsible for remediation and for calling
// Close.
func (m *Merger) Step(ctx context.Context) (StepResult, error) {
	if m.closed {
		return StepFinished, ErrClosed
	}
	if m.finished {
		return StepFinished, nil
	}
	if m.result != nil {
		return StepHasResult, ErrResultPending
	}

	for {
		// Cursors between pages poll their sources first; a blocked source
		// suspends the whole merge with all progress retained.
		for len(m.pending) > 0 {
			c := m.pending[0]
			st, err := m.fill(ctx, c)
			if err != nil {
				return StepBlocked, err
			}
			if st == SourceBlocked {
				blockedCounter.Add(ctx, 1)
				return StepBlocked, nil
			}
			m.pending = m.pending[1:]
			if st == SourceReady {
				heap.Push(&m.h, c)
				if m.cmpErr != nil {
					return StepBlocked, m.cmpErr
				}
			}
			// SourceFinished retires the cursor permanently.
		}

		if m.h.Len() == 0 {
			if !m.builder.Empty() {
				m.seal(ctx)
				return StepHasResult, nil
			}
			m.finished = true
			return StepFinished, nil
		}

		// Emit the globally minimal row.
		c := m.h.cursors[0]
		if err := m.builder.AppendFrom(c.page, c.pos, m.channels); err != nil {
			return StepBlocked, fmt.Errorf("append row from source %d: %w", c.index, err)
		}
		if delta := m.builder.EstimatedBytes() - m.builderReserved; delta > 0 {
			if err := m.acct.Reserve(delta); err != nil {
				return StepBlocked, fmt.Errorf("grow output page: %w", err)
			}
			m.builderReserved += delta
		}

		c.pos++
		if c.pos >= c.page.PositionCount() {
			m.acct.Release(c.reserved)
			c.reserved = 0
			c.page = nil
			heap.Pop(&m.h)
			m.pending = append(m.pending, c)
		} else {
			heap.Fix(&m.h, 0)
		}
		if m.cmpErr != nil {
			return StepBlocked, m.cmpErr
		}

		if m.full(m.builder) {
			m.seal(ctx)
			return StepHasResult, nil
		}
		if m.sig.ShouldYield() {
			yieldCounter.Add(ctx, 1)
			return StepYielded, nil
		}
	}
}

// fill polls the cursor's source until it yields a non-empty page, reports
// blocked, or finishes. A produced page is validated and reserved before
// the cursor becomes live.
func (m *Merger) fill(ctx context.Context, c *cursor) (SourceStatus, error) {
	for {
		pg, st, err := c.source.Poll(ctx)
		if err != nil {
			return st, fmt.Errorf("source %d: %w", c.index, err)
		}
		if st != SourceReady {
			return st, nil
		}
		if pg == nil || pg.PositionCount() == 0 {
			continue
		}
		if err := m.validatePage(pg); err != nil {
			return st, fmt.Errorf("source %d: %w", c.index, err)
		}
		if err := m.acct.Reserve(pg.SizeBytes()); err != nil {
			return st, fmt.Errorf("retain page from source %d: %w", c.index, err)
		}
		c.reserved = pg.SizeBytes()
		c.page = pg
		c.pos = 0
		rowsInCounter.Add(ctx, int64(pg.PositionCount()), otelmetric.WithAttributes(
			attribute.Int("source", c.index),
		))
		return SourceReady, nil
	}
}

// validatePage checks that an input page covers the sort channels and that
// the projected channels match the configured output kinds. All sources
// must present the same schema; mismatches are contract violations detected
// here because they are cheap to check.
func (m *Merger) validatePage(pg *page.Page) error {
	for _, key := range m.spec {
		if key.Channel < 0 || key.Channel >= pg.ColumnCount() {
			return fmt.Errorf("sort channel %d out of range for page with %d columns", key.Channel, pg.ColumnCount())
		}
	}
	for i, ch := range m.channels {
		if ch < 0 || ch >= pg.ColumnCount() {
			return fmt.Errorf("output channel %d out of range for page with %d columns", ch, pg.ColumnCount())
		}
		if got, want := pg.Column(ch).Kind(), m.kinds[i]; got != want {
			return fmt.Errorf("output channel %d is %s, expected %s", ch, got, want)
		}
	}
	return nil
}

// seal hands the pending rows off as the current result and releases the
// builder's reservation.
func (m *Merger) seal(ctx context.Context) {
	m.result = m.builder.Build()
	m.acct.Release(m.builderReserved)
	m.builderReserved = 0
	m.rowsOut += int64(m.result.PositionCount())
	rowsOutCounter.Add(ctx, int64(m.result.PositionCount()))
}

// Result returns and clears the most recently produced output page. Only
// valid after a StepHasResult return from Step.
func (m *Merger) Result() *page.Page {
	r := m.result
	m.result = nil
	return r
}

// TotalRowsReturned returns the number of rows emitted across all sealed
// output pages.
func (m *Merger) TotalRowsReturned() int64 {
	return m.rowsOut
}

// Close releases retained pages and reservations and closes all sources.
// It is the abandonment path for drivers discarding a merge in any state.
func (m *Merger) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for _, c := range m.cursors {
		if c.reserved > 0 {
			m.acct.Release(c.reserved)
			c.reserved = 0
		}
		c.page = nil
		if err := c.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source %d: %w", c.index, err))
		}
	}
	m.cursors = nil
	m.h.cursors = nil
	m.pending = nil

	m.acct.Release(m.builderReserved)
	m.builderReserved = 0
	m.result = nil

	return errors.Join(errs...)
}
