// Package config loads tokenctl settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
)

const (
	NetworkDevnet  = "devnet"
	NetworkTestnet = "testnet"
	NetworkMainnet = "mainnet"
	NetworkMemory  = "memory"

	StorageHTTP   = "http"
	StorageGCS    = "gcs"
	StorageMemory = "memory"
)

type Config struct {
	// Ledger
	Network        string
	RPCURL         string
	Commitment     entities.Commitment
	ConfirmTimeout time.Duration
	PollInterval   time.Duration

	// Signer; first non-empty source wins in this order.
	KeypairPath   string
	KeypairBase58 string
	KeypairSecret string

	// Off-chain storage
	StorageBackend string
	StorageURL     string
	StorageAPIKey  string
	GCSBucket      string
	GCSPrefix      string

	// Optional sinks
	KafkaBrokers []string
	KafkaTopic   string
	JournalPath  string

	LogLevel string
	LogJSON  bool
	LogFile  string

	parseErrs []error
}

// Load reads files (default .env) into the environment, then builds the
// config. Missing files are ignored and already set variables win.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds the config from the current environment only.
func FromEnv() *Config {
	cfg := &Config{
		Network:        strings.ToLower(getEnv("SOLANA_NETWORK", NetworkDevnet)),
		RPCURL:         getEnv("SOLANA_RPC_URL", ""),
		Commitment:     entities.Commitment(strings.ToLower(getEnv("SOLANA_COMMITMENT", string(entities.CommitmentConfirmed)))),
		KeypairPath:    getEnv("KEYPAIR_PATH", ""),
		KeypairBase58:  getEnv("KEYPAIR_BASE58", ""),
		KeypairSecret:  getEnv("KEYPAIR_SECRET", ""),
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
		StorageURL:     getEnv("STORAGE_URL", ""),
		StorageAPIKey:  getEnv("STORAGE_API_KEY", ""),
		GCSBucket:      getEnv("GCS_BUCKET", ""),
		GCSPrefix:      getEnv("GCS_PREFIX", ""),
		KafkaBrokers:   parseStringSlice(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "token-lifecycle"),
		JournalPath:    getEnv("JOURNAL_PATH", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),
	}
	cfg.ConfirmTimeout = cfg.getEnvDuration("CONFIRM_TIMEOUT", 60*time.Second)
	cfg.PollInterval = cfg.getEnvDuration("CONFIRM_POLL_INTERVAL", 500*time.Millisecond)
	cfg.LogJSON = cfg.getEnvBool("LOG_JSON", false)
	return cfg
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.parseErrs...)

	switch c.Network {
	case NetworkDevnet, NetworkTestnet, NetworkMainnet, NetworkMemory:
	default:
		errs = append(errs, fmt.Errorf("SOLANA_NETWORK must be devnet, testnet, mainnet or memory, got %q", c.Network))
	}
	if c.Commitment.Rank() == 0 {
		errs = append(errs, fmt.Errorf("SOLANA_COMMITMENT must be processed, confirmed or finalized, got %q", c.Commitment))
	}
	if c.ConfirmTimeout <= 0 {
		errs = append(errs, errors.New("CONFIRM_TIMEOUT must be positive"))
	}
	if c.PollInterval <= 0 || c.PollInterval > c.ConfirmTimeout {
		errs = append(errs, errors.New("CONFIRM_POLL_INTERVAL must be positive and not exceed CONFIRM_TIMEOUT"))
	}

	switch c.StorageBackend {
	case StorageMemory:
	case StorageHTTP:
		if c.StorageURL == "" {
			errs = append(errs, errors.New("STORAGE_URL is required for the http storage backend"))
		}
	case StorageGCS:
		if c.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required for the gcs storage backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be http, gcs or memory, got %q", c.StorageBackend))
	}

	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}
	return errors.Join(errs...)
}

// HasKeypair reports whether any signer source is configured.
func (c *Config) HasKeypair() bool {
	return c.KeypairPath != "" || c.KeypairBase58 != "" || c.KeypairSecret != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}

func (c *Config) getEnvBool(key string, defaultValue bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return b
}

func parseStringSlice(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
