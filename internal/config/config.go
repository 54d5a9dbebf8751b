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
	SEC    SECConfig    `yaml:"sec" mapstructure:"sec"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// SECConfig identifies the issuer and this client to EDGAR.
type SECConfig struct {
	CIK            string `yaml:"cik" mapstructure:"cik"`
	Company        string `yaml:"company" mapstructure:"company"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
	DataBaseURL    string `yaml:"data_base_url" mapstructure:"data_base_url"`
	ArchiveBaseURL string `yaml:"archive_base_url" mapstructure:"archive_base_url"`
}

// ContactableUserAgent reports whether the identifier looks like it carries
// contact info, per SEC automated-access guidance.
func (c SECConfig) ContactableUserAgent() bool {
	return strings.Contains(c.UserAgent, "@") ||
		strings.Contains(strings.ToLower(c.UserAgent), "contact")
}

// FetchConfig configures the look-back window and the HTTP client.
type FetchConfig struct {
	Days          int     `yaml:"days" mapstructure:"days"`
	Workers       int     `yaml:"workers" mapstructure:"workers"`
	MaxAttempts   int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// OutputConfig holds the default output destinations.
type OutputConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
	Dir  string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the local dashboard-data server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// Optional .env for local development.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INSIDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// SEC_USER_AGENT is the conventional name operators already export.
	_ = v.BindEnv("sec.user_agent", "SEC_USER_AGENT", "INSIDER_SEC_USER_AGENT")

	v.SetDefault("sec.cik", "0000002488")
	v.SetDefault("sec.company", "AMD")
	v.SetDefault("sec.user_agent", "insider-cli/1.0 contact: ops@example.com")
	v.SetDefault("sec.data_base_url", "https://data.sec.gov")
	v.SetDefault("sec.archive_base_url", "https://www.sec.gov")
	v.SetDefault("fetch.days", 90)
	v.SetDefault("fetch.workers", 4)
	v.SetDefault("fetch.max_attempts", 4)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.rate_per_second", 8)
	v.SetDefault("fetch.rate_burst", 8)
	v.SetDefault("output.path", "insider_trades.json")
	v.SetDefault("output.dir", "")
	v.SetDefault("server.port", 8081)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
