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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/pagesort/internal/memaccount"
	"github.com/cardinalhq/pagesort/internal/ordering"
	"github.com/cardinalhq/pagesort/internal/page"
	"github.com/cardinalhq/pagesort/internal/yield"
)

func int64Page(t *testing.T, values ...int64) *page.Page {
	t.Helper()
	pg, err := page.NewPage(page.NewInt64Column(values, nil))
	require.NoError(t, err)
	return pg
}

func taggedPage(t *testing.T, tag string, keys ...int64) *page.Page {
	t.Helper()
	tags := make([]string, len(keys))
	for i := range tags {
		tags[i] = tag
	}
	pg, err := page.NewPage(
		page.NewInt64Column(keys, nil),
		page.NewStringColumn(tags, nil),
	)
	require.NoError(t, err)
	return pg
}

// sourceEvent scripts one Poll outcome.
type sourceEvent struct {
	page   *page.Page
	status SourceStatus
}

// scriptedSource replays a fixed Poll script, then finishes. Used to
// exercise blocked sources and empty pages.
type scriptedSource struct {
	events []sourceEvent
	pos    int
	closed bool
}

func (s *scriptedSource) Poll(_ context.Context) (*page.Page, SourceStatus, error) {
	if s.pos >= len(s.events) {
		return nil, SourceFinished, nil
	}
	e := s.events[s.pos]
	s.pos++
	return e.page, e.status, nil
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

func int64MergeConfig() Config {
	return Config{
		Spec:           ordering.Spec{{Channel: 0}},
		OutputChannels: []int{0},
		OutputKinds:    []page.Kind{page.KindInt64},
	}
}

// drive steps the merger to completion, retrying blocked steps, and returns
// the output pages plus the number of blocked and yielded steps observed.
func drive(t *testing.T, m *Merger) (pages []*page.Page, blocked, yielded int) {
	t.Helper()
	ctx := context.Background()
	for range 100000 {
		result, err := m.Step(ctx)
		require.NoError(t, err)
		switch result {
		case StepHasResult:
			pages = append(pages, m.Result())
		case StepBlocked:
			blocked++
		case StepYielded:
			yielded++
		case StepFinished:
			return pages, blocked, yielded
		}
	}
	t.Fatal("merge did not finish")
	return nil, 0, 0
}

func collectInt64(pages []*page.Page, channel int) []int64 {
	var out []int64
	for _, pg := range pages {
		for pos := range pg.PositionCount() {
			out = append(out, pg.Column(channel).Int64(pos))
		}
	}
	return out
}

func collectStrings(pages []*page.Page, channel int) []string {
	var out []string
	for _, pg := range pages {
		for pos := range pg.PositionCount() {
			out = append(out, pg.Column(channel).String(pos))
		}
	}
	return out
}

func TestMergeTwoSources(t *testing.T) {
	m, err := NewMerger(int64MergeConfig(), []PageSource{
		NewSlicePageSource(int64Page(t, 1, 3, 5)),
		NewSlicePageSource(int64Page(t, 2, 4, 6)),
	})
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	pages, _, _ := drive(t, m)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, collectInt64(pages, 0))
	assert.Equal(t, int64(6), m.TotalRowsReturned())
}

func TestMergeTieBreakBySourceIndex(t *testing.T) {
	cfg := Config{
		Spec:           ordering.Spec{{Channel: 0}},
		OutputChannels: []int{0, 1},
		OutputKinds:    []page.Kind{page.KindInt64, page.KindString},
	}
	m, err := NewMerger(cfg, []PageSource{
		NewSlicePageSource(taggedPage(t, "src0", 1, 1, 2)),
		NewSlicePageSource(taggedPage(t, "src1", 1, 3)),
	})
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	pages, _, _ := drive(t, m)
	assert.Equal(t, []int64{1, 1, 1, 2, 3}, collectInt64(pages, 0))
	// Equal keys drain the lower source index first.
	assert.Equal(t, []string{"src0", "src0", "src1", "src0", "src1"}, collectStrings(pages, 1))
}

func TestMergeBlockedSourceResumes(t *testing.T) {
	blocky := &scriptedSource{events: []sourceEvent{
		{page: int64Page(t, 1, 3), status: SourceReady},
		{status: SourceBlocked},
		{status: SourceBlocked},
		{page: int64Page(t, 5), status: SourceReady},
	}}
	m, err := NewMerger(int64MergeConfig(), []PageSource{
		blocky,
		NewSlicePageSource(int64Page(t, 2, 4, 6)),
	})
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	pages, blocked, _ := drive(t, m)
	// No rows are lost or duplicated across the suspension.
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, collectInt64(pages, 0))
	assert.Equal(t, 2, blocked)
}

func TestMergeSingleSourceRechunks(t *testing.T) {
	cfg := int64MergeConfig()
	cfg.MaxRowsPerPage = 2
	m, err := NewMerger(cfg, []PageSource{
		NewSlicePageSource(int64Page(t, 1, 2, 3), int64Page(t, 4, 5)),
	})
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	pages, _, _ := drive(t, m)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, collectInt64(pages, 0))

	var sizes []int
	for _, pg := range pages {
		sizes = append(sizes, pg.PositionCount())
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestMergeNoSources(t *testing.T) {
	m, err := NewMerger(int64MergeConfig(), nil)
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	result, err := m.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepFinished, result)

	// Finished is terminal and repeatable.
	result, err = m.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepFinished, result)
}

func TestMergeEmptySourcesBehaveAsAbsent(t *testing.T) {
	m, err := NewMerger(int64MergeConfig(), []PageSource{
		NewSlicePageSource(),
		NewSlicePageSource(int64Page(t, 2, 3)),
		NewSlicePageSource(int64Page(t)),
	})
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	pages, _, _ := drive(t, m)
	assert.Equal(t, []int64{2, 3}, collectInt64(pages, 0))
}

func TestMergeDeterminism(t *testing.T) {
	run := func() []string {
		cfg := Config{
			Spec:           ordering.Spec{{Channel: 0}},
			OutputChannels: []int{0, 1},
			OutputKinds:    []page.Kind{page.KindInt64, page.KindString},
		}
		m, err := NewMerger(cfg, []PageSource{
			NewSlicePageSource(taggedPage(t, "a", 1, 2, 2, 9)),
			NewSlicePageSource(taggedPage(t, "b", 2, 2, 5)),
			NewSlicePageSource(taggedPage(t, "c", 2, 7)),
		})
		require.NoError(t, err)
		defer func() { _ = m.Close() }()

		pages, _, _ := drive(t, m)
		return collectStrings(pages, 1)
	}

	assert.Equal(t, run(), run())
}

func TestMergeYieldSignal(t *testing.T) {
	calls := 0
	cfg := int64MergeConfig()
	cfg.Yield = yield.Func(func() bool {
		calls++
		return calls%2 == 0
	})
	m, err := NewMerger(cfg, []PageSource{
		NewSlicePageSource(int64Page(t, 1, 3, 5)),
		NewSlicePageSource(int64Page(t, 2, 4, 6)),
	})
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	pages, _, yielded := drive(t, m)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, collectInt64(pages, 0))
	assert.Positive(t, yielded)
}

func TestMergeProjection(t *testing.T) {
	cfg := Config{
		Spec:           ordering.Spec{{Channel: 0}},
		OutputChannels: []int{1},
		OutputKinds:    []page.Kind{page.KindString},
	}
	m, err := NewMerger(cfg, []PageSource{
		NewSlicePageSource(taggedPage(t, "lo", 1, 2)),
		NewSlicePageSource(taggedPage(t, "hi", 3)),
	})
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	pages, _, _ := drive(t, m)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].ColumnCount())
	assert.Equal(t, []string{"lo", "lo", "hi"}, collectStrings(pages, 0))
}

func TestMergeMemoryBudgetFatal(t *testing.T) {
	cfg := int64MergeConfig()
	cfg.Accountant = memaccount.NewLocal(8)
	m, err := NewMerger(cfg, []PageSource{
		NewSlicePageSource(int64Page(t, 1, 2, 3, 4, 5, 6, 7, 8)),
	})
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	_, err = m.Step(context.Background())
	require.ErrorIs(t, err, memaccount.ErrBudgetExceeded)
}

func TestMergeReleasesMemoryOnHandoff(t *testing.T) {
	acct := memaccount.NewLocal(0)
	cfg := int64MergeConfig()
	cfg.Accountant = acct
	m, err := NewMerger(cfg, []PageSource{
		NewSlicePageSource(int64Page(t, 1, 2), int64Page(t, 3)),
	})
	require.NoError(t, err)

	pages, _, _ := drive(t, m)
	assert.Equal(t, []int64{1, 2, 3}, collectInt64(pages, 0))
	// All input pages consumed and all output handed off.
	assert.Zero(t, acct.Usage())
	require.NoError(t, m.Close())
}

func TestMergeResultPending(t *testing.T) {
	cfg := int64MergeConfig()
	cfg.MaxRowsPerPage = 1
	m, err := NewMerger(cfg, []PageSource{
		NewSlicePageSource(int64Page(t, 1, 2)),
	})
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	result, err := m.Step(context.Background())
	require.NoError(t, err)
	require.Equal(t, StepHasResult, result)

	_, err = m.Step(context.Background())
	require.ErrorIs(t, err, ErrResultPending)

	require.NotNil(t, m.Result())
	_, err = m.Step(context.Background())
	require.NoError(t, err)
}

func TestMergeSkipsEmptyPages(t *testing.T) {
	src := &scriptedSource{events: []sourceEvent{
		{page: int64Page(t), status: SourceReady},
		{page: int64Page(t, 1, 2), status: SourceReady},
		{page: int64Page(t), status: SourceReady},
	}}
	m, err := NewMerger(int64MergeConfig(), []PageSource{src})
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	pages, _, _ := drive(t, m)
	assert.Equal(t, []int64{1, 2}, collectInt64(pages, 0))
}

func TestMergeSchemaMismatchDetected(t *testing.T) {
	bad, err := page.NewPage(page.NewStringColumn([]string{"x"}, nil))
	require.NoError(t, err)

	m, err := NewMerger(int64MergeConfig(), []PageSource{
		NewSlicePageSource(int64Page(t, 1)),
		NewSlicePageSource(bad),
	})
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	_, err = m.Step(context.Background())
	require.Error(t, err)
}

func TestMergeComparatorErrorPropagates(t *testing.T) {
	// Projection channel 1 matches in both sources; sort channel 0 does not.
	a, err := page.NewPage(
		page.NewInt64Column([]int64{1}, nil),
		page.NewStringColumn([]string{"a"}, nil),
	)
	require.NoError(t, err)
	b, err := page.NewPage(
		page.NewStringColumn([]string{"oops"}, nil),
		page.NewStringColumn([]string{"b"}, nil),
	)
	require.NoError(t, err)

	cfg := Config{
		Spec:           ordering.Spec{{Channel: 0}},
		OutputChannels: []int{1},
		OutputKinds:    []page.Kind{page.KindString},
	}
	m, err := NewMerger(cfg, []PageSource{
		NewSlicePageSource(a),
		NewSlicePageSource(b),
	})
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	_, err = m.Step(context.Background())
	require.ErrorIs(t, err, ordering.ErrNotComparable)
}

func TestMergerConfigValidation(t *testing.T) {
	_, err := NewMerger(Config{
		Spec:        ordering.Spec{{Channel: 0}},
		OutputKinds: []page.Kind{page.KindInt64},
	}, nil)
	require.Error(t, err)

	_, err = NewMerger(Config{
		Spec:           ordering.Spec{{Channel: 0}},
		OutputChannels: []int{0, 1},
		OutputKinds:    []page.Kind{page.KindInt64},
	}, nil)
	require.Error(t, err)

	_, err = NewMerger(Config{
		OutputChannels: []int{0},
		OutputKinds:    []page.Kind{page.KindInt64},
	}, nil)
	require.Error(t, err)
}

func TestMergeCloseClosesSources(t *testing.T) {
	blockedSrc := &scriptedSource{events: []sourceEvent{{status: SourceBlocked}}}
	readySrc := &scriptedSource{events: []sourceEvent{
		{page: int64Page(t, 1), status: SourceReady},
	}}
	acct := memaccount.NewLocal(0)
	cfg := int64MergeConfig()
	cfg.Accountant = acct

	m, err := NewMerger(cfg, []PageSource{readySrc, blockedSrc})
	require.NoError(t, err)

	result, err := m.Step(context.Background())
	require.NoError(t, err)
	require.Equal(t, StepBlocked, result)

	require.NoError(t, m.Close())
	assert.True(t, blockedSrc.closed)
	assert.True(t, readySrc.closed)
	assert.Zero(t, acct.Usage())

	_, err = m.Step(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}
