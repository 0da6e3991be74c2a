// Package config loads procscope settings: compiled defaults, then an
// optional YAML file, then PROCSCOPE_* environment overrides. Command-line
// flags are applied last by the caller.
package config

import (
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/procscope/procscope/pkg/types"
)

// Duration wraps time.Duration so YAML and env values accept "5s" style
// strings.
type Duration time.Duration

// UnmarshalYAML parses a duration string scalar.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds every tunable of the engine and the terminal view.
type Config struct {
	// Interval is the process polling cadence.
	Interval Duration `yaml:"interval" env:"PROCSCOPE_INTERVAL"`
	// StatsInterval is the independent aggregate-statistics cadence.
	StatsInterval Duration `yaml:"stats_interval" env:"PROCSCOPE_STATS_INTERVAL"`
	// CacheCapacity bounds how many records a cache generation memoizes.
	CacheCapacity int `yaml:"cache_capacity" env:"PROCSCOPE_CACHE_CAPACITY"`
	// StalenessWindow bounds how long cached static attributes are trusted.
	StalenessWindow Duration `yaml:"staleness_window" env:"PROCSCOPE_STALENESS_WINDOW"`
	// ChurnThreshold is the appeared/vanished PID count tolerated by a
	// quick refresh.
	ChurnThreshold int `yaml:"churn_threshold" env:"PROCSCOPE_CHURN_THRESHOLD"`
	// FullInterval is the longest stretch allowed between full refreshes.
	FullInterval Duration `yaml:"full_interval" env:"PROCSCOPE_FULL_INTERVAL"`

	// Match is a substring filter over pid, name, and user.
	Match string `yaml:"match" env:"PROCSCOPE_MATCH"`
	// Filter is an optional boolean expression over record fields.
	Filter string `yaml:"filter" env:"PROCSCOPE_FILTER"`
	// Sort names the table column to order by.
	Sort string `yaml:"sort" env:"PROCSCOPE_SORT"`
	// SortDesc flips the sort order.
	SortDesc bool `yaml:"sort_desc" env:"PROCSCOPE_SORT_DESC"`
	// TopK limits how many rows the table shows.
	TopK int `yaml:"topk" env:"PROCSCOPE_TOPK"`

	// DiskPath is the filesystem reported in the aggregate stats line.
	DiskPath string `yaml:"disk_path" env:"PROCSCOPE_DISK_PATH"`
	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level" env:"PROCSCOPE_LOG_LEVEL"`
}

// Default returns the compiled-in settings.
func Default() Config {
	return Config{
		Interval:        Duration(2 * time.Second),
		StatsInterval:   Duration(1 * time.Second),
		CacheCapacity:   500,
		StalenessWindow: Duration(2 * time.Second),
		ChurnThreshold:  5,
		FullInterval:    Duration(5 * time.Second),
		Sort:            "cpu",
		SortDesc:        true,
		TopK:            types.DefaultTopK,
		DiskPath:        "/",
		LogLevel:        "info",
	}
}

// Load builds the configuration. path may be empty to skip the file layer.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(Duration(0)): func(raw string) (interface{}, error) {
				parsed, err := time.ParseDuration(raw)
				if err != nil {
					return nil, fmt.Errorf("invalid duration %q: %w", raw, err)
				}
				return Duration(parsed), nil
			},
		},
	}); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize clamps nonsense values back to the defaults.
func (c *Config) normalize() {
	def := Default()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.StatsInterval <= 0 {
		c.StatsInterval = def.StatsInterval
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = def.CacheCapacity
	}
	if c.StalenessWindow <= 0 {
		c.StalenessWindow = def.StalenessWindow
	}
	if c.ChurnThreshold <= 0 {
		c.ChurnThreshold = def.ChurnThreshold
	}
	if c.FullInterval <= 0 {
		c.FullInterval = def.FullInterval
	}
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.DiskPath == "" {
		c.DiskPath = def.DiskPath
	}
}
