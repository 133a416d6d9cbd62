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
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/pagesort/config"
	"github.com/cardinalhq/pagesort/internal/memaccount"
	"github.com/cardinalhq/pagesort/internal/page"
	"github.com/cardinalhq/pagesort/internal/pageindex"
	"github.com/cardinalhq/pagesort/internal/parquetconv"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Sort one Parquet file in memory",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			setupLogging("sort", cfg.Logging.Debug)

			input, _ := c.Flags().GetString("input")
			output, _ := c.Flags().GetString("output")
			sortBy, _ := c.Flags().GetString("sort-by")
			return runSort(cfg, input, output, sortBy)
		},
	}
	cmd.Flags().String("input", "", "input Parquet file")
	cmd.Flags().String("output", "", "output Parquet file")
	cmd.Flags().String("sort-by", "", "sort key, e.g. ts:asc,name:desc:nulls_last")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("sort-by")
	rootCmd.AddCommand(cmd)
}

func runSort(cfg *config.Config, input, output, sortBy string) error {
	pages, schema, err := parquetconv.ReadFile(input, cfg.Engine.MaxRowsPerPage, cfg.Engine.TargetPageBytes)
	if err != nil {
		return err
	}
	spec, err := parseKeySpec(sortBy, schema)
	if err != nil {
		return err
	}

	sorter := pageindex.New(pageindex.Config{
		Accountant:      memaccount.NewLocal(cfg.Engine.MemoryBudgetBytes),
		MaxRowsPerPage:  cfg.Engine.MaxRowsPerPage,
		TargetPageBytes: cfg.Engine.TargetPageBytes,
	})
	defer sorter.Close()

	for _, pg := range pages {
		if err := sorter.AddPage(pg); err != nil {
			return fmt.Errorf("buffer %s: %w", input, err)
		}
	}
	if err := sorter.Sort(spec); err != nil {
		return fmt.Errorf("sort %s: %w", input, err)
	}

	it, err := sorter.SortedPages()
	if err != nil {
		return err
	}
	var sorted []*page.Page
	ctx := cmdContext()
	for {
		pg, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("drain sorted pages: %w", err)
		}
		sorted = append(sorted, pg)
	}

	if err := parquetconv.WriteFile(output, schema, sorted); err != nil {
		return err
	}
	slog.Info("sorted file written",
		slog.String("input", input),
		slog.String("output", output),
		slog.Int64("rows", sorter.RowCount()),
		slog.Int("pages", len(sorted)))
	return nil
}
