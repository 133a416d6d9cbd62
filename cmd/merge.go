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

package cmd

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/pagesort/config"
	"github.com/cardinalhq/pagesort/internal/memaccount"
	"github.com/cardinalhq/pagesort/internal/merge"
	"github.com/cardinalhq/pagesort/internal/page"
	"github.com/cardinalhq/pagesort/internal/parquetconv"
	"github.com/cardinalhq/pagesort/internal/yield"
)

func init() {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge pre-sorted Parquet files into one sorted output",
		Long:  `Merge K Parquet files, each already sorted by the same key, into a single globally sorted output file.`,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			setupLogging("merge", cfg.Logging.Debug)

			inputs, _ := c.Flags().GetStringSlice("input")
			output, _ := c.Flags().GetString("output")
			sortBy, _ := c.Flags().GetString("sort-by")
			return runMerge(cfg, inputs, output, sortBy)
		},
	}
	cmd.Flags().StringSlice("input", nil, "input Parquet files, each pre-sorted by the sort key")
	cmd.Flags().String("output", "", "output Parquet file")
	cmd.Flags().String("sort-by", "", "sort key, e.g. ts:asc,name:desc:nulls_last")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("sort-by")
	rootCmd.AddCommand(cmd)
}

func runMerge(cfg *config.Config, inputs []string, output, sortBy string) error {
	var (
		schema  *parquetconv.FileSchema
		sources []merge.PageSource
	)
	for _, input := range inputs {
		pages, fileSchema, err := parquetconv.ReadFile(input, cfg.Engine.MaxRowsPerPage, cfg.Engine.TargetPageBytes)
		if err != nil {
			return err
		}
		if schema == nil {
			schema = fileSchema
		} else if !slices.Equal(schema.Names, fileSchema.Names) || !slices.Equal(schema.Kinds, fileSchema.Kinds) {
			return fmt.Errorf("%s: schema %v does not match %s schema %v", input, fileSchema.Names, inputs[0], schema.Names)
		}
		sources = append(sources, merge.NewSlicePageSource(pages...))
	}
	if schema == nil {
		return fmt.Errorf("no input files")
	}

	spec, err := parseKeySpec(sortBy, schema)
	if err != nil {
		return err
	}

	channels := make([]int, len(schema.Kinds))
	for i := range channels {
		channels[i] = i
	}
	slice := yield.NewTimeSlice(time.Duration(cfg.Engine.YieldSliceMillis) * time.Millisecond)
	merger, err := merge.NewMerger(merge.Config{
		Spec:            spec,
		OutputChannels:  channels,
		OutputKinds:     schema.Kinds,
		MaxRowsPerPage:  cfg.Engine.MaxRowsPerPage,
		TargetPageBytes: cfg.Engine.TargetPageBytes,
		Accountant:      memaccount.NewLocal(cfg.Engine.MemoryBudgetBytes),
		Yield:           slice,
	}, sources)
	if err != nil {
		return err
	}
	defer func() { _ = merger.Close() }()

	// External driver loop: re-invoke Step after every non-terminal result.
	var merged []*page.Page
	ctx := cmdContext()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := merger.Step(ctx)
		if err != nil {
			return fmt.Errorf("merge step: %w", err)
		}
		switch result {
		case merge.StepHasResult:
			merged = append(merged, merger.Result())
		case merge.StepYielded:
			slice.Reset()
		case merge.StepBlocked:
			// Slice sources are always ready, so a blocked step means a
			// source misreported; surface it rather than spin.
			return fmt.Errorf("merge blocked on an always-ready source")
		case merge.StepFinished:
			if err := parquetconv.WriteFile(output, schema, merged); err != nil {
				return err
			}
			slog.Info("merged file written",
				slog.String("output", output),
				slog.Int("sources", len(inputs)),
				slog.Int64("rows", merger.TotalRowsReturned()),
				slog.Int("pages", len(merged)))
			return nil
		}
	}
}
