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

package parquetconv

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/cardinalhq/pagesort/internal/page"
)

// WriteFile writes pages to a Parquet file with the given flat schema. All
// columns are written as optional leaves; null positions are omitted from
// the row.
func WriteFile(path string, schema *FileSchema, pages []*page.Page) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := Write(f, schema, pages); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Write writes pages to w as a Parquet stream.
func Write(w io.Writer, schema *FileSchema, pages []*page.Page) error {
	if len(schema.Names) != len(schema.Kinds) {
		return fmt.Errorf("schema has %d names but %d kinds", len(schema.Names), len(schema.Kinds))
	}

	nodes := make(map[string]parquet.Node, len(schema.Names))
	for i, name := range schema.Names {
		var node parquet.Node
		switch schema.Kinds[i] {
		case page.KindInt64:
			node = parquet.Optional(parquet.Int(64))
		case page.KindFloat64:
			node = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		case page.KindString:
			node = parquet.Optional(parquet.String())
		case page.KindBool:
			node = parquet.Optional(parquet.Leaf(parquet.BooleanType))
		default:
			return fmt.Errorf("column %s: unsupported kind %s", name, schema.Kinds[i])
		}
		nodes[name] = node
	}
	ps := parquet.NewSchema("pages", parquet.Group(nodes))
	writer := parquet.NewGenericWriter[map[string]any](w, ps)

	row := make(map[string]any, len(schema.Names))
	for _, pg := range pages {
		if pg.ColumnCount() != len(schema.Names) {
			return fmt.Errorf("page has %d columns, schema has %d", pg.ColumnCount(), len(schema.Names))
		}
		for pos := range pg.PositionCount() {
			clear(row)
			for ch, name := range schema.Names {
				if v := pg.Column(ch).Value(pos); v != nil {
					row[name] = v
				}
			}
			if _, err := writer.Write([]map[string]any{row}); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
