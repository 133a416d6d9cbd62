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
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	rowsInCounter  otelmetric.Int64Counter
	rowsOutCounter otelmetric.Int64Counter
	yieldCounter   otelmetric.Int64Counter
	blockedCounter otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/pagesort/internal/merge")

	var err error
	rowsInCounter, err = meter.Int64Counter(
		"pagesort.merge.rows.in",
		otelmetric.WithDescription("Number of rows pulled from merge input sources"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create rows.in counter: %w", err))
	}

	rowsOutCounter, err = meter.Int64Counter(
		"pagesort.merge.rows.out",
		otelmetric.WithDescription("Number of rows emitted in merged output pages"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create rows.out counter: %w", err))
	}

	yieldCounter, err = meter.Int64Counter(
		"pagesort.merge.yields",
		otelmetric.WithDescription("Number of steps that returned early due to the yield signal"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create yields counter: %w", err))
	}

	blockedCounter, err = meter.Int64Counter(
		"pagesort.merge.blocked",
		otelmetric.WithDescription("Number of steps that suspended on a blocked input source"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create blocked counter: %w", err))
	}
}
