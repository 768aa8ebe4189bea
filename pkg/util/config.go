package util

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type StorageConfig struct {
	Dir           string `mapstructure:"dir" validate:"required"`
	NodesFile     string `mapstructure:"nodes_file" validate:"required"`
	EdgesFile     string `mapstructure:"edges_file" validate:"required,nefield=NodesFile"`
	RoutesFile    string `mapstructure:"routes_file" validate:"required"`
	SchedulesFile string `mapstructure:"schedules_file" validate:"required"`
}

func (s StorageConfig) NodesPath() string     { return filepath.Join(s.Dir, s.NodesFile) }
func (s StorageConfig) EdgesPath() string     { return filepath.Join(s.Dir, s.EdgesFile) }
func (s StorageConfig) RoutesPath() string    { return filepath.Join(s.Dir, s.RoutesFile) }
func (s StorageConfig) SchedulesPath() string { return filepath.Join(s.Dir, s.SchedulesFile) }

type ScheduleConfig struct {
	// Fanout is the maximum number of children of a B+ tree node.
	Fanout int `mapstructure:"fanout" validate:"min=3"`
}

type RoutesConfig struct {
	Capacity   int     `mapstructure:"capacity" validate:"min=1"`
	LoadFactor float64 `mapstructure:"load_factor" validate:"gt=0,lte=1"`
}

type PlannerConfig struct {
	CacheSize int `mapstructure:"cache_size" validate:"min=1"`
}

type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Routes   RoutesConfig   `mapstructure:"routes"`
	Planner  PlannerConfig  `mapstructure:"planner"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.dir", "./data")
	v.SetDefault("storage.nodes_file", "route_nodes.bin")
	v.SetDefault("storage.edges_file", "route_edges.bin")
	v.SetDefault("storage.routes_file", "routes.bin")
	v.SetDefault("storage.schedules_file", "schedules.bin")
	v.SetDefault("schedule.fanout", 4)
	v.SetDefault("routes.capacity", 16)
	v.SetDefault("routes.load_factor", 0.75)
	v.SetDefault("planner.cache_size", 128)
}

// ReadConfig loads config.{yaml,json,toml} from configDir. A missing config file is not an error, defaults apply.
// Every key can be overridden with a SCHEDULER_ prefixed env var, e.g. SCHEDULER_STORAGE_DIR.
func ReadConfig(configDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("SCHEDULER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ValidateConfig(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return WrapErrorf(err, ErrInvalidArgument, "invalid config")
	}
	return nil
}
