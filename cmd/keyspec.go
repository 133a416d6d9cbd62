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
	"strings"

	"github.com/cardinalhq/pagesort/internal/ordering"
	"github.com/cardinalhq/pagesort/internal/parquetconv"
)

// parseKeySpec parses a --sort-by value into an ordering spec. Each comma
// separated term is "column[:asc|desc[:nulls_first|nulls_last]]", where
// column is a name from the file schema. Nulls default to last for
// ascending keys and first for descending keys.
func parseKeySpec(arg string, schema *parquetconv.FileSchema) (ordering.Spec, error) {
	var spec ordering.Spec
	for _, term := range strings.Split(arg, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		parts := strings.Split(term, ":")
		if len(parts) > 3 {
			return nil, fmt.Errorf("sort term %q: expected column[:direction[:nulls]]", term)
		}

		channel := -1
		for i, name := range schema.Names {
			if name == parts[0] {
				channel = i
				break
			}
		}
		if channel < 0 {
			return nil, fmt.Errorf("sort term %q: column not in file schema %v", term, schema.Names)
		}

		key := ordering.Channel{Channel: channel}
		if len(parts) > 1 {
			switch parts[1] {
			case "asc":
			case "desc":
				key.Descending = true
			default:
				return nil, fmt.Errorf("sort term %q: direction must be asc or desc", term)
			}
		}
		key.NullsFirst = key.Descending
		if len(parts) > 2 {
			switch parts[2] {
			case "nulls_first":
				key.NullsFirst = true
			case "nulls_last":
				key.NullsFirst = false
			default:
				return nil, fmt.Errorf("sort term %q: nulls must be nulls_first or nulls_last", term)
			}
		}
		spec = append(spec, key)
	}
	if len(spec) == 0 {
		return nil, fmt.Errorf("sort key %q has no terms", arg)
	}
	return spec, nil
}
