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

// Package parquetconv converts between Parquet files and columnar pages at
// the CLI boundary. Only flat schemas with int64, double, string (byte
// array) and boolean leaves are supported; columns appear in schema field
// order.
package parquetconv

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/cardinalhq/pagesort/internal/page"
)

// FileSchema describes the flat column layout of a converted file.
type FileSchema struct {
	Names []string
	Kinds []page.Kind
}

// ReadFile reads an entire Parquet file into pages chunked to the given
// size policy (zero values select the page builder defaults).
func ReadFile(path string, maxRows int, targetBytes int64) ([]*page.Page, *FileSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("open parquet file %s: %w", path, err)
	}

	schema, err := schemaFromParquet(pf.Schema())
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	pfr := parquet.NewGenericReader[map[string]any](pf, pf.Schema())
	defer func() { _ = pfr.Close() }()

	var pages []*page.Page
	builder := page.NewBuilder(schema.Kinds, maxRows, targetBytes)
	buf := make([]map[string]any, 256)
	for i := range buf {
		buf[i] = make(map[string]any)
	}
	values := make([]any, len(schema.Names))

	for {
		for i := range buf {
			for k := range buf[i] {
				delete(buf[i], k)
			}
		}
		n, err := pfr.Read(buf)
		if err != nil && err != io.EOF {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		for i := range n {
			if cerr := convertRow(buf[i], schema, values); cerr != nil {
				return nil, nil, fmt.Errorf("%s: %w", path, cerr)
			}
			if aerr := builder.AppendRow(values); aerr != nil {
				return nil, nil, fmt.Errorf("%s: %w", path, aerr)
			}
			if builder.Full() {
				pages = append(pages, builder.Build())
			}
		}
		if err == io.EOF || n == 0 {
			break
		}
	}
	if !builder.Empty() {
		pages = append(pages, builder.Build())
	}
	return pages, schema, nil
}

// convertRow maps one parquet row into the values slice in schema column
// order. Missing or nil fields become nulls.
func convertRow(row map[string]any, schema *FileSchema, values []any) error {
	for i, name := range schema.Names {
		v, ok := row[name]
		if !ok || v == nil {
			values[i] = nil
			continue
		}
		switch schema.Kinds[i] {
		case page.KindInt64:
			switch n := v.(type) {
			case int64:
				values[i] = n
			case int32:
				values[i] = int64(n)
			case int:
				values[i] = int64(n)
			default:
				return fmt.Errorf("column %s: expected integer, got %T", name, v)
			}
		case page.KindFloat64:
			switch n := v.(type) {
			case float64:
				values[i] = n
			case float32:
				values[i] = float64(n)
			default:
				return fmt.Errorf("column %s: expected float, got %T", name, v)
			}
		case page.KindString:
			switch s := v.(type) {
			case string:
				values[i] = s
			case []byte:
				values[i] = string(s)
			default:
				return fmt.Errorf("column %s: expected string, got %T", name, v)
			}
		case page.KindBool:
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("column %s: expected bool, got %T", name, v)
			}
			values[i] = b
		}
	}
	return nil
}

// schemaFromParquet derives the flat column layout from a parquet schema.
func schemaFromParquet(s *parquet.Schema) (*FileSchema, error) {
	fields := s.Fields()
	if len(fields) == 0 {
		return nil, fmt.Errorf("parquet schema has no columns")
	}
	schema := &FileSchema{
		Names: make([]string, 0, len(fields)),
		Kinds: make([]page.Kind, 0, len(fields)),
	}
	for _, f := range fields {
		if !f.Leaf() {
			return nil, fmt.Errorf("column %s: nested schemas are not supported", f.Name())
		}
		var kind page.Kind
		switch f.Type().Kind() {
		case parquet.Int64:
			kind = page.KindInt64
		case parquet.Int32:
			kind = page.KindInt64
		case parquet.Double, parquet.Float:
			kind = page.KindFloat64
		case parquet.ByteArray, parquet.FixedLenByteArray:
			kind = page.KindString
		case parquet.Boolean:
			kind = page.KindBool
		default:
			return nil, fmt.Errorf("column %s: unsupported parquet type %s", f.Name(), f.Type())
		}
		schema.Names = append(schema.Names, f.Name())
		schema.Kinds = append(schema.Kinds, kind)
	}
	return schema, nil
}
