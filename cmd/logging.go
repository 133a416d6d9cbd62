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
	"log/slog"
	"os"

	"github.com/oklog/ulid/v2"
	slogmulti "github.com/samber/slog-multi"
)

// setupLogging configures the default slog logger for a command run. Every
// run carries a ULID so log lines from separate invocations can be told
// apart when output is aggregated.
func setupLogging(command string, debug bool) string {
	runID := ulid.Make().String()

	var opts *slog.HandlerOptions
	if debug || os.Getenv("PAGESORT_DEBUG") != "" {
		opts = &slog.HandlerOptions{Level: slog.LevelDebug}
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, opts),
	}
	if path := os.Getenv("PAGESORT_LOG_FILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			handlers = append(handlers, slog.NewJSONHandler(f, opts))
		} else {
			slog.Warn("failed to open log file", "path", path, "error", err.Error())
		}
	}

	slog.SetDefault(slog.New(slogmulti.Fanout(handlers...)).With(
		slog.String("command", command),
		slog.String("runID", runID),
	))
	return runID
}
