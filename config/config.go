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

package config

import (
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/cardinalhq/pagesort/internal/page"
)

// Config aggregates configuration for the application.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig carries the sort/merge engine defaults. The values become an
// explicitly passed, immutable per-instance configuration; nothing reads
// them from global state after startup.
type EngineConfig struct {
	// MaxRowsPerPage bounds output pages by row count.
	MaxRowsPerPage int `mapstructure:"max_rows_per_page"`

	// TargetPageBytes bounds output pages by estimated size.
	TargetPageBytes int64 `mapstructure:"target_page_bytes"`

	// MemoryBudgetBytes caps bytes retained by a sort or merge. Zero or
	// less means unlimited.
	MemoryBudgetBytes int64 `mapstructure:"memory_budget_bytes"`

	// YieldSliceMillis is the cooperative time slice for stepped merges.
	YieldSliceMillis int `mapstructure:"yield_slice_millis"`
}

// LoggingConfig controls CLI logging.
type LoggingConfig struct {
	Debug bool `mapstructure:"debug"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxRowsPerPage:   page.DefaultMaxRows,
			TargetPageBytes:  page.DefaultTargetBytes,
			YieldSliceMillis: 100,
		},
	}
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "PAGESORT" and the dot character in
// keys is replaced by an underscore. For example, "engine.max_rows_per_page"
// becomes "PAGESORT_ENGINE_MAX_ROWS_PER_PAGE".
func Load() (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("PAGESORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
