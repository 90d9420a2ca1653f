package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Bucket    BucketConfig    `yaml:"bucket" mapstructure:"bucket"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Filter    FilterConfig    `yaml:"filter" mapstructure:"filter"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Directory DirectoryConfig `yaml:"directory" mapstructure:"directory"`
	Profiles  ProfilesConfig  `yaml:"profiles" mapstructure:"profiles"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the report ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// BucketConfig locates the object store holding exports, price snapshots
// and submitted reports. URL may be http(s):// or ftp://.
type BucketConfig struct {
	URL          string `yaml:"url" mapstructure:"url"`
	DataPrefix   string `yaml:"data_prefix" mapstructure:"data_prefix"`
	PricePrefix  string `yaml:"price_prefix" mapstructure:"price_prefix"`
	ReportPrefix string `yaml:"report_prefix" mapstructure:"report_prefix"`
	EmployeeFile string `yaml:"employee_file" mapstructure:"employee_file"`
	LocationFile string `yaml:"location_file" mapstructure:"location_file"`
}

// FetchConfig tunes the HTTP transport.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// FilterConfig holds filter engine defaults.
type FilterConfig struct {
	DefaultDiscountIDs []string `yaml:"default_discount_ids" mapstructure:"default_discount_ids"`
}

// PricingConfig holds price-change validation thresholds.
type PricingConfig struct {
	MaxPrice             float64 `yaml:"max_price" mapstructure:"max_price"`
	LargeChangeThreshold float64 `yaml:"large_change_threshold" mapstructure:"large_change_threshold"`
	NameMappingsPath     string  `yaml:"name_mappings_path" mapstructure:"name_mappings_path"`
}

// DirectoryConfig configures the employee directory cache.
type DirectoryConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// ProfilesConfig points at an optional YAML file of extra processing profiles.
type ProfilesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultDiscountIDs is the discount set applied when the user picks nothing.
var DefaultDiscountIDs = []string{"77406", "135733", "135736", "135737", "135738", "135739", "135910"}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "recon.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("bucket.data_prefix", "loyalty-data-pool/")
	v.SetDefault("bucket.price_prefix", "price-pool/")
	v.SetDefault("bucket.report_prefix", "active-price-reports/")
	v.SetDefault("bucket.employee_file", "employee_list.csv")
	v.SetDefault("bucket.location_file", "locations.json")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_per_sec", 5.0)
	v.SetDefault("fetch.user_agent", "recon-cli/1.0")
	v.SetDefault("filter.default_discount_ids", DefaultDiscountIDs)
	v.SetDefault("pricing.max_price", 999.99)
	v.SetDefault("pricing.large_change_threshold", 50.0)
	v.SetDefault("directory.ttl_minutes", 60)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a given command needs.
func (c *Config) Validate(mode string) error {
	var missing []string

	switch mode {
	case "scans", "prices", "files":
		if c.Bucket.URL == "" {
			missing = append(missing, "bucket.url is required")
		}
	case "changes":
		if c.Bucket.URL == "" {
			missing = append(missing, "bucket.url is required")
		}
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			missing = append(missing, "server.port must be between 1 and 65535")
		}
		if c.Bucket.URL == "" {
			missing = append(missing, "bucket.url is required")
		}
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
	}

	if c.Pricing.MaxPrice <= 0 {
		missing = append(missing, "pricing.max_price must be positive")
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
