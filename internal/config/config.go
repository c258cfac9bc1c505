// Package config loads the process configuration from defaults, an optional
// YAML file, and SNIFFER_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SPLTokenProgramID is the mainnet SPL Token program, the default watch target.
const SPLTokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// Config holds all configuration for the sniffer process.
type Config struct {
	Solana   SolanaConfig   `mapstructure:"solana"`
	Sniffer  SnifferConfig  `mapstructure:"sniffer"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Listings ListingsConfig `mapstructure:"listings"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SolanaConfig contains the RPC endpoints.
type SolanaConfig struct {
	HTTPURL        string        `mapstructure:"http_url"`
	WSURL          string        `mapstructure:"ws_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SnifferConfig contains the subscription-layer settings.
type SnifferConfig struct {
	Programs               []string      `mapstructure:"programs"`
	ReconnectDelay         time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectDelay      time.Duration `mapstructure:"max_reconnect_delay"`
	HeartbeatInterval      time.Duration `mapstructure:"heartbeat_interval"`
	RateLimit              int           `mapstructure:"rate_limit"`
	MaxConsecutiveFailures int           `mapstructure:"max_consecutive_failures"`
}

// PipelineConfig contains the enrichment-pipeline settings.
type PipelineConfig struct {
	QueueSize         int  `mapstructure:"queue_size"`
	InfoWorkers       int  `mapstructure:"info_workers"`
	ListingWorkers    int  `mapstructure:"listing_workers"`
	DedupMints        bool `mapstructure:"dedup_mints"`
	ValidateAddresses bool `mapstructure:"validate_addresses"`
}

// ListingsConfig contains the exchange listing directory settings.
type ListingsConfig struct {
	RaydiumURL string        `mapstructure:"raydium_url"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the endpoint
}

// LoggingConfig contains log sink settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	File   string `mapstructure:"file"`
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SNIFFER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("solana.http_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.ws_url", "wss://api.mainnet-beta.solana.com")
	v.SetDefault("solana.request_timeout", 10*time.Second)

	v.SetDefault("sniffer.programs", []string{SPLTokenProgramID})
	v.SetDefault("sniffer.reconnect_delay", 5*time.Second)
	v.SetDefault("sniffer.max_reconnect_delay", 60*time.Second)
	v.SetDefault("sniffer.heartbeat_interval", 30*time.Second)
	v.SetDefault("sniffer.rate_limit", 5)
	v.SetDefault("sniffer.max_consecutive_failures", 10)

	v.SetDefault("pipeline.queue_size", 1024)
	v.SetDefault("pipeline.info_workers", 1)
	v.SetDefault("pipeline.listing_workers", 1)
	v.SetDefault("pipeline.dedup_mints", false)
	v.SetDefault("pipeline.validate_addresses", false)

	v.SetDefault("listings.raydium_url", "https://api.raydium.io/v2/sdk/token/solana")
	v.SetDefault("listings.cache_ttl", 5*time.Minute)

	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file", "")
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Solana.WSURL == "" {
		return fmt.Errorf("solana.ws_url is required")
	}
	if c.Solana.HTTPURL == "" {
		return fmt.Errorf("solana.http_url is required")
	}
	if len(c.Sniffer.Programs) == 0 {
		return fmt.Errorf("sniffer.programs must not be empty")
	}
	if c.Sniffer.RateLimit <= 0 {
		return fmt.Errorf("sniffer.rate_limit must be positive")
	}
	if c.Sniffer.ReconnectDelay <= 0 {
		return fmt.Errorf("sniffer.reconnect_delay must be positive")
	}
	if c.Pipeline.QueueSize <= 0 {
		return fmt.Errorf("pipeline.queue_size must be positive")
	}
	return nil
}
