package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.Solana.HTTPURL)
	assert.Equal(t, "wss://api.mainnet-beta.solana.com", cfg.Solana.WSURL)
	assert.Equal(t, 10*time.Second, cfg.Solana.RequestTimeout)

	assert.Equal(t, []string{SPLTokenProgramID}, cfg.Sniffer.Programs)
	assert.Equal(t, 5*time.Second, cfg.Sniffer.ReconnectDelay)
	assert.Equal(t, 60*time.Second, cfg.Sniffer.MaxReconnectDelay)
	assert.Equal(t, 30*time.Second, cfg.Sniffer.HeartbeatInterval)
	assert.Equal(t, 5, cfg.Sniffer.RateLimit)
	assert.Equal(t, 10, cfg.Sniffer.MaxConsecutiveFailures)

	assert.Equal(t, 1024, cfg.Pipeline.QueueSize)
	assert.Equal(t, 1, cfg.Pipeline.InfoWorkers)
	assert.Equal(t, 1, cfg.Pipeline.ListingWorkers)
	assert.False(t, cfg.Pipeline.DedupMints)
	assert.False(t, cfg.Pipeline.ValidateAddresses)

	assert.Equal(t, "https://api.raydium.io/v2/sdk/token/solana", cfg.Listings.RaydiumURL)
	assert.Equal(t, 5*time.Minute, cfg.Listings.CacheTTL)

	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
solana:
  http_url: https://rpc.example.com
  ws_url: wss://rpc.example.com
sniffer:
  programs:
    - ProgramOne111111111111111111111111111111111
    - ProgramTwo222222222222222222222222222222222
  rate_limit: 10
pipeline:
  dedup_mints: true
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.com", cfg.Solana.HTTPURL)
	assert.Equal(t, "wss://rpc.example.com", cfg.Solana.WSURL)
	assert.Len(t, cfg.Sniffer.Programs, 2)
	assert.Equal(t, 10, cfg.Sniffer.RateLimit)
	assert.True(t, cfg.Pipeline.DedupMints)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset keys keep their defaults.
	assert.Equal(t, 5*time.Second, cfg.Sniffer.ReconnectDelay)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SNIFFER_SOLANA_WS_URL", "wss://env.example.com")
	t.Setenv("SNIFFER_SNIFFER_RATE_LIMIT", "20")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "wss://env.example.com", cfg.Solana.WSURL)
	assert.Equal(t, 20, cfg.Sniffer.RateLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing ws url", func(c *Config) { c.Solana.WSURL = "" }, "ws_url"},
		{"missing http url", func(c *Config) { c.Solana.HTTPURL = "" }, "http_url"},
		{"no programs", func(c *Config) { c.Sniffer.Programs = nil }, "programs"},
		{"zero rate limit", func(c *Config) { c.Sniffer.RateLimit = 0 }, "rate_limit"},
		{"zero reconnect delay", func(c *Config) { c.Sniffer.ReconnectDelay = 0 }, "reconnect_delay"},
		{"zero queue size", func(c *Config) { c.Pipeline.QueueSize = 0 }, "queue_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
