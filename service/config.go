package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/viant/odbview/dump"
	"github.com/viant/odbview/field"
	"github.com/viant/odbview/scan"
	"gopkg.in/yaml.v3"
)

// Config defines tool locations, dictionary, ceilings and logging.
type Config struct {
	Dump       DumpConfig     `yaml:"dump"`
	Dictionary string         `yaml:"dictionary"`
	Timeouts   TimeoutsConfig `yaml:"timeouts"`
	Cache      CacheConfig    `yaml:"cache"`
	Log        LogConfig      `yaml:"log"`
}

// DumpConfig locates the external utilities.
type DumpConfig struct {
	DumpPath string   `yaml:"dumpPath"`
	StatPath string   `yaml:"statPath"`
	Args     []string `yaml:"args"`
	// FromFile treats database paths as captured dump output.
	FromFile bool `yaml:"fromFile"`
}

// TimeoutsConfig defines scan ceilings in seconds.
type TimeoutsConfig struct {
	PageSeconds   int `yaml:"pageSeconds"`
	FilterSeconds int `yaml:"filterSeconds"`
	FullSeconds   int `yaml:"fullSeconds"`
	StatsSeconds  int `yaml:"statsSeconds"`
}

// CacheConfig tunes index builds.
type CacheConfig struct {
	BatchSize int `yaml:"batchSize"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

func LoadConfig(path string) (*Config, error) {
	path, err := expandUserPath(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: failed to read %s", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrapf(err, "config: invalid yaml in %s", path)
	}
	for _, p := range []*string{&cfg.Dictionary, &cfg.Dump.DumpPath, &cfg.Dump.StatPath} {
		if *p == "" {
			continue
		}
		expanded, err := expandUserPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}
	return &cfg, nil
}

// Level parses the configured log level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.Log.Level)))
	if err != nil || c.Log.Level == "" {
		return zerolog.InfoLevel
	}
	return level
}

// Durations converts configured seconds, keeping defaults for unset values.
func (c *Config) Durations() (scan.Timeouts, time.Duration) {
	ret := scan.DefaultTimeouts()
	stats := DefaultStatsTimeout
	seconds := func(v int, d *time.Duration) {
		if v > 0 {
			*d = time.Duration(v) * time.Second
		}
	}
	seconds(c.Timeouts.PageSeconds, &ret.Page)
	seconds(c.Timeouts.FilterSeconds, &ret.Filter)
	seconds(c.Timeouts.FullSeconds, &ret.Full)
	seconds(c.Timeouts.StatsSeconds, &stats)
	return ret, stats
}

// Options converts the config into service options, loading the dictionary.
func (c *Config) Options(ctx context.Context) ([]Option, error) {
	timeouts, stats := c.Durations()
	opts := []Option{
		WithTool(dump.Tool{DumpPath: c.Dump.DumpPath, StatPath: c.Dump.StatPath, Args: c.Dump.Args}),
		WithTimeouts(timeouts),
		WithStatsTimeout(stats),
		WithBatchSize(c.Cache.BatchSize),
		WithDumpFiles(c.Dump.FromFile),
	}
	if c.Dictionary != "" {
		dict, err := field.LoadDictionary(ctx, c.Dictionary)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithDictionary(dict))
	}
	return opts, nil
}

func expandUserPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed[0] != '~' {
		return path, nil
	}
	if trimmed != "~" && !strings.HasPrefix(trimmed, "~/") {
		return "", fmt.Errorf("config: unsupported ~user path: %s", path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if trimmed == "~" {
		return home, nil
	}
	return filepath.Join(home, trimmed[2:]), nil
}
