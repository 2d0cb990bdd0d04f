package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Mongo MongoConfig `yaml:"mongo" mapstructure:"mongo"`
	Load  LoadConfig  `yaml:"load" mapstructure:"load"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
}

// MongoConfig configures the document database connection.
type MongoConfig struct {
	URI                string `yaml:"uri" mapstructure:"uri"`
	Database           string `yaml:"database" mapstructure:"database"`
	ConnectTimeoutSecs int    `yaml:"connect_timeout_secs" mapstructure:"connect_timeout_secs"`
	WriteTimeoutSecs   int    `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
}

// LoadConfig holds ingestion defaults. Command flags override these per run.
type LoadConfig struct {
	BatchSize      int     `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency    int     `yaml:"concurrency" mapstructure:"concurrency"`
	MaxDiagnostics int     `yaml:"max_diagnostics" mapstructure:"max_diagnostics"`
	WriteRate      float64 `yaml:"write_rate" mapstructure:"write_rate"`
	TargetCRS      string  `yaml:"target_crs" mapstructure:"target_crs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the configuration is usable for an ingestion run.
func (c *Config) Validate() error {
	var missing []string

	if c.Mongo.URI == "" {
		missing = append(missing, "mongo.uri is required")
	}
	if c.Mongo.Database == "" {
		missing = append(missing, "mongo.database is required")
	}
	if c.Load.BatchSize < 1 {
		missing = append(missing, "load.batch_size must be >= 1")
	}
	if c.Load.Concurrency < 1 || c.Load.Concurrency > 64 {
		missing = append(missing, "load.concurrency must be between 1 and 64")
	}
	if c.Load.WriteRate < 0 {
		missing = append(missing, "load.write_rate must be >= 0")
	}

	if len(missing) > 0 {
		return eris.New("invalid config: " + strings.Join(missing, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	// A .env beside the binary is optional.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOINGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "geo")
	v.SetDefault("mongo.connect_timeout_secs", 10)
	v.SetDefault("mongo.write_timeout_secs", 30)
	v.SetDefault("load.batch_size", 2000)
	v.SetDefault("load.concurrency", 4)
	v.SetDefault("load.max_diagnostics", 10)
	v.SetDefault("load.write_rate", 0)
	v.SetDefault("load.target_crs", "EPSG:4326")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
