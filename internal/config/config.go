// Package config loads videoindex's configuration from built-in defaults,
// an optional file, and environment variables, in that order of
// increasing precedence.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config is the full set of tunables videoindex's CLI subcommands read.
type Config struct {
	DB         DBConfig         `mapstructure:"db"`
	Search     SearchConfig     `mapstructure:"search"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Log        LogConfig        `mapstructure:"log"`
}

// DBConfig locates the index file.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// SearchConfig holds defaults for the search subcommand.
type SearchConfig struct {
	DefaultTopK      int     `mapstructure:"default_top_k"`
	DefaultThreshold float64 `mapstructure:"default_threshold"`
}

// ExtractionConfig holds defaults for the index subcommand's keyframe
// extraction pass.
type ExtractionConfig struct {
	ThumbnailMax           int     `mapstructure:"thumbnail_max"`
	KeyframeDeltaThreshold float64 `mapstructure:"keyframe_delta_threshold"`
	IndexConcurrency       int     `mapstructure:"index_concurrency"`
}

// LogConfig controls the zap logger built from this config.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// Load reads configuration from path (if non-empty), layered over the
// defaults and under VIDEOINDEX_-prefixed environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("db.path", "data.db")
	v.SetDefault("search.default_top_k", 50)
	v.SetDefault("search.default_threshold", 0.8)
	v.SetDefault("extraction.thumbnail_max", 128)
	v.SetDefault("extraction.keyframe_delta_threshold", 0.2)
	v.SetDefault("extraction.index_concurrency", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetEnvPrefix("VIDEOINDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
