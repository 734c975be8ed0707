package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all configuration for icemetactl and any embedding process.
type Config struct {
	Storage struct {
		Backend string `mapstructure:"backend"` // "memory" or "s3"
		S3      struct {
			Bucket         string `mapstructure:"bucket"`
			Prefix         string `mapstructure:"prefix"`
			Region         string `mapstructure:"region"`
			Endpoint       string `mapstructure:"endpoint"`
			ForcePathStyle bool   `mapstructure:"force_path_style"`
		} `mapstructure:"s3"`
	} `mapstructure:"storage"`

	Cache struct {
		Enabled bool `mapstructure:"enabled"`
		Redis   struct {
			Addr       string `mapstructure:"addr"`
			Password   string `mapstructure:"password"`
			DB         int    `mapstructure:"db"`
			TTLSeconds int    `mapstructure:"ttl_seconds"`
		} `mapstructure:"redis"`
	} `mapstructure:"cache"`

	Catalog struct {
		CommitMaxRetries     int     `mapstructure:"commit_max_retries"`
		CommitBaseIntervalMs int     `mapstructure:"commit_base_interval_ms"`
		CommitMaxIntervalMs  int     `mapstructure:"commit_max_interval_ms"`
		CommitJitter         float64 `mapstructure:"commit_jitter"`
	} `mapstructure:"catalog"`

	Retention struct {
		Enabled            bool   `mapstructure:"enabled"`
		Schedule           string `mapstructure:"schedule"`
		MaxSnapshotAgeMs   int64  `mapstructure:"max_snapshot_age_ms"`
		MaxRefAgeMs        int64  `mapstructure:"max_ref_age_ms"`
		MinSnapshotsToKeep int    `mapstructure:"min_snapshots_to_keep"`
		Purge              bool   `mapstructure:"purge"`
	} `mapstructure:"retention"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
}

var (
	config *Config
	once   sync.Once
)

// Load initializes and loads the config from configPath (or the working
// directory's config.yaml, if empty), overlaid with ICEMETA_-prefixed
// environment variables.
func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		err = loadConfig(configPath)
	})
	return config, err
}

// Get returns the current config, panics if config is not loaded.
func Get() *Config {
	if config == nil {
		panic("config is not loaded")
	}
	return config
}

func loadConfig(configPath string) error {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		fmt.Printf("No config file found, using defaults and environment variables\n")
	}

	v.SetEnvPrefix("ICEMETA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("storage.backend")
	v.BindEnv("storage.s3.bucket")
	v.BindEnv("storage.s3.prefix")
	v.BindEnv("storage.s3.region")
	v.BindEnv("storage.s3.endpoint")
	v.BindEnv("storage.s3.force_path_style")

	v.BindEnv("cache.enabled")
	v.BindEnv("cache.redis.addr")
	v.BindEnv("cache.redis.password")
	v.BindEnv("cache.redis.db")
	v.BindEnv("cache.redis.ttl_seconds")

	v.BindEnv("catalog.commit_max_retries")
	v.BindEnv("catalog.commit_base_interval_ms")
	v.BindEnv("catalog.commit_max_interval_ms")
	v.BindEnv("catalog.commit_jitter")

	v.BindEnv("retention.enabled")
	v.BindEnv("retention.schedule")
	v.BindEnv("retention.max_snapshot_age_ms")
	v.BindEnv("retention.max_ref_age_ms")
	v.BindEnv("retention.min_snapshots_to_keep")
	v.BindEnv("retention.purge")

	v.BindEnv("metrics.enabled")
	v.BindEnv("metrics.port")

	v.BindEnv("logging.level")
	v.BindEnv("logging.format")

	setDefaults(v)

	config = &Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return validate(config)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.s3.force_path_style", false)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.ttl_seconds", 300)

	// Catalog defaults mirror the commit retry policy's documented
	// behavior: 5 retries, 100ms base interval, 5s max interval, 0.2 jitter.
	v.SetDefault("catalog.commit_max_retries", 5)
	v.SetDefault("catalog.commit_base_interval_ms", 100)
	v.SetDefault("catalog.commit_max_interval_ms", 5000)
	v.SetDefault("catalog.commit_jitter", 0.2)

	v.SetDefault("retention.enabled", false)
	v.SetDefault("retention.schedule", "0 0 * * *")
	v.SetDefault("retention.max_snapshot_age_ms", int64(5*24*60*60*1000))
	v.SetDefault("retention.max_ref_age_ms", int64(0)) // 0 disables the ref-age dimension (refs never lapse)
	v.SetDefault("retention.min_snapshots_to_keep", 1)
	v.SetDefault("retention.purge", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func validate(cfg *Config) error {
	validBackends := map[string]bool{"memory": true, "s3": true}
	if !validBackends[strings.ToLower(cfg.Storage.Backend)] {
		return fmt.Errorf("invalid storage.backend: %s", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "s3" && cfg.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required when storage.backend is s3")
	}

	if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
		return fmt.Errorf("invalid metrics.port: %d", cfg.Metrics.Port)
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	if cfg.Catalog.CommitMaxRetries < 0 {
		return fmt.Errorf("invalid catalog.commit_max_retries: must be at least 0")
	}
	if cfg.Catalog.CommitBaseIntervalMs < 1 {
		return fmt.Errorf("invalid catalog.commit_base_interval_ms: must be at least 1")
	}
	if cfg.Catalog.CommitMaxIntervalMs < cfg.Catalog.CommitBaseIntervalMs {
		return fmt.Errorf("invalid catalog.commit_max_interval_ms: must be >= commit_base_interval_ms")
	}

	if cfg.Retention.Enabled {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			return fmt.Errorf("invalid retention.schedule: %w", err)
		}
		if cfg.Retention.MinSnapshotsToKeep < 1 {
			return fmt.Errorf("invalid retention.min_snapshots_to_keep: must be at least 1")
		}
	}

	return nil
}
