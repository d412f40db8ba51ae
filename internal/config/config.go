package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"trust-plane/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Logging     logging.Config    `mapstructure:"logging"`
	Storage     StorageConfig     `mapstructure:"storage"`
	ObjectStore ObjectStoreConfig `mapstructure:"object_store"`
	DocDB       DocDBConfig       `mapstructure:"docdb"`
	Mirror      MirrorConfig      `mapstructure:"mirror"`
	Provider    ProviderConfig    `mapstructure:"provider"`
	Probes      ProbesConfig      `mapstructure:"probes"`
	Gate        GateConfig        `mapstructure:"gate"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// StorageConfig sets the local durable cache roots. The local store is the
// only guaranteed-durable write; everything else mirrors it.
type StorageConfig struct {
	HealthDir      string `mapstructure:"health_dir"`
	ManifestDir    string `mapstructure:"manifest_dir"`
	EvidenceDir    string `mapstructure:"evidence_dir"`
	ProtectionFile string `mapstructure:"protection_file"`
}

// ObjectStoreConfig covers the S3-compatible mirror bucket.
type ObjectStoreConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// DocDBConfig covers the optional document-database mirror.
type DocDBConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// MirrorConfig bounds secondary writes.
type MirrorConfig struct {
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ProviderConfig captures the upstream spot-protection provider connection.
type ProviderConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Path      string        `mapstructure:"path"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	LocalMode bool          `mapstructure:"local_mode"`
}

// SourceConfig names one upstream feed endpoint to probe.
type SourceConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// ProbesConfig governs the health check loop.
type ProbesConfig struct {
	Interval       time.Duration  `mapstructure:"interval"`
	RequestTimeout time.Duration  `mapstructure:"request_timeout"`
	RatePerSecond  float64        `mapstructure:"rate_per_second"`
	Sources        []SourceConfig `mapstructure:"sources"`
}

// GateConfig tunes the adaptive win-rate gate.
type GateConfig struct {
	Method               string   `mapstructure:"method"`
	MinTrades            int      `mapstructure:"min_trades"`
	PrimaryThresholdPct  float64  `mapstructure:"primary_threshold_pct"`
	FallbackThresholdPct float64  `mapstructure:"fallback_threshold_pct"`
	TieBreak             []string `mapstructure:"tie_break"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRUSTPLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "trustplane")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("storage.health_dir", "data/source-health")
	v.SetDefault("storage.manifest_dir", "data/datasets")
	v.SetDefault("storage.evidence_dir", "data/trades")
	v.SetDefault("storage.protection_file", "data/spot-protection.json")

	v.SetDefault("object_store.enabled", false)
	v.SetDefault("object_store.use_ssl", true)

	v.SetDefault("docdb.enabled", false)

	v.SetDefault("mirror.write_timeout", "750ms")

	v.SetDefault("provider.path", "/spot-protection")
	v.SetDefault("provider.timeout", "3000ms")
	v.SetDefault("provider.local_mode", false)

	v.SetDefault("probes.interval", "1m")
	v.SetDefault("probes.request_timeout", "10s")
	v.SetDefault("probes.rate_per_second", 4.0)

	v.SetDefault("gate.method", "wilson95_lower")
	v.SetDefault("gate.min_trades", 50)
	v.SetDefault("gate.primary_threshold_pct", 70.0)
	v.SetDefault("gate.fallback_threshold_pct", 50.0)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Mirror.WriteTimeout <= 0 {
		return fmt.Errorf("mirror.write_timeout must be greater than zero")
	}
	if c.Probes.Interval <= 0 {
		return fmt.Errorf("probes.interval must be greater than zero")
	}
	if c.Probes.RatePerSecond <= 0 {
		return fmt.Errorf("probes.rate_per_second must be greater than zero")
	}
	if c.ObjectStore.Enabled && c.ObjectStore.Bucket == "" {
		return fmt.Errorf("object_store.bucket 必须配置")
	}
	if c.DocDB.Enabled && c.DocDB.DSN == "" {
		return fmt.Errorf("docdb.dsn 必须配置")
	}
	if c.Gate.PrimaryThresholdPct < c.Gate.FallbackThresholdPct {
		return fmt.Errorf("gate.primary_threshold_pct cannot be below the fallback threshold")
	}
	for _, source := range c.Probes.Sources {
		if source.Name == "" || source.URL == "" {
			return fmt.Errorf("probes.sources entries require both name and url")
		}
	}
	return nil
}

// UpstreamProviderConfigured reports whether a protection provider URL is
// present, which selects upstream mode.
func (c *Config) UpstreamProviderConfigured() bool {
	return strings.TrimSpace(c.Provider.BaseURL) != ""
}
