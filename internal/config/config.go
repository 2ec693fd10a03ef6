package config

import (
	"fmt"
	"os"

	"github.com/Hakuto4838/GridSkipList/skiplist/grid"
	"gopkg.in/yaml.v3"
)

// ListConfig 為建立 skip list 的參數
type ListConfig struct {
	MaxLevel     int    `yaml:"max_level"`
	Seed         uint64 `yaml:"seed"`
	HeightPolicy string `yaml:"height_policy"`
	Capacity     int    `yaml:"capacity"`
}

// BenchConfig 為 bench 重播的參數
type BenchConfig struct {
	Runs  int      `yaml:"runs"`
	Files []string `yaml:"files"`
}

// LoggingConfig 為 log 設定
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig 為 prometheus metrics 設定
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// Config 為各個指令共用的設定
type Config struct {
	List    ListConfig    `yaml:"list"`
	Bench   BenchConfig   `yaml:"bench"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Default 回傳套用全部預設值的設定
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// LoadConfig 由 yaml 檔載入設定，補上預設值後驗證
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.List.MaxLevel == 0 {
		cfg.List.MaxLevel = 32
	}
	if cfg.List.HeightPolicy == "" {
		cfg.List.HeightPolicy = grid.Clamp.String()
	}
	if cfg.Bench.Runs == 0 {
		cfg.Bench.Runs = 5
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9100"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// Validate 檢查設定是否合法
func (c *Config) Validate() error {
	if c.List.MaxLevel <= 0 {
		return fmt.Errorf("list.max_level must be positive, got %d", c.List.MaxLevel)
	}
	if c.List.Capacity < 0 {
		return fmt.Errorf("list.capacity must not be negative, got %d", c.List.Capacity)
	}
	if c.List.Capacity > 0 && c.List.Capacity <= c.List.MaxLevel {
		return fmt.Errorf("list.capacity %d cannot hold %d headers", c.List.Capacity, c.List.MaxLevel+1)
	}
	if _, err := grid.ParseHeightPolicy(c.List.HeightPolicy); err != nil {
		return fmt.Errorf("list.height_policy: %w", err)
	}
	if c.Bench.Runs <= 0 {
		return fmt.Errorf("bench.runs must be positive, got %d", c.Bench.Runs)
	}
	return nil
}

// ListOptions 將 list 區段轉成 grid.Option
func (c *Config) ListOptions() ([]grid.Option, error) {
	policy, err := grid.ParseHeightPolicy(c.List.HeightPolicy)
	if err != nil {
		return nil, err
	}
	opts := []grid.Option{
		grid.WithHeightPolicy(policy),
		grid.WithCapacity(c.List.Capacity),
	}
	if c.List.Seed != 0 {
		opts = append(opts, grid.WithSeed(c.List.Seed))
	}
	return opts, nil
}
