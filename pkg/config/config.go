// Copyright 2025 Certen Protocol
//
// Configuration for the validator node. Values are read from environment
// variables with sane defaults, mirroring an optional YAML file whose
// ${VAR_NAME} / ${VAR_NAME:-default} placeholders are substituted from the
// environment before parsing.

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the validator node.
type Config struct {
	// Identity
	ValidatorID int32  `yaml:"validator_id"`
	IsValidator bool   `yaml:"is_validator"`
	DataDir     string `yaml:"data_dir"`

	// Ed25519 key material. Loading/provisioning the key FILE is this
	// process's job; certificate/TLS provisioning is not (see TLSConfig).
	Ed25519KeyPath string `yaml:"ed25519_key_path"`

	// Networking
	ListenAddr      string   `yaml:"listen_addr"`
	MetricsAddr     string   `yaml:"metrics_addr"`
	ProtocolVersion string   `yaml:"protocol_version"`
	PeerBootstrap   []string `yaml:"peer_bootstrap"`
	NetworkID       string   `yaml:"network_id"`

	// Consensus tuning
	RoundTransactionThreshold int           `yaml:"round_transaction_threshold"`
	HeartbeatInterval         time.Duration `yaml:"heartbeat_interval"`
	HandshakeTimeout          time.Duration `yaml:"handshake_timeout"`

	// TLS is a toggle only: certificate loading/provisioning is external to
	// this module. When true, the embedding binary is expected to supply a
	// *tls.Config to node.New.
	TLSEnabled bool `yaml:"tls_enabled"`

	LogLevel string `yaml:"log_level"`
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		ValidatorID:     int32(getEnvInt("VALIDATOR_ID", 0)),
		IsValidator:     getEnvBool("IS_VALIDATOR", true),
		DataDir:         getEnv("DATA_DIR", "./data"),
		Ed25519KeyPath:  getEnv("ED25519_KEY_PATH", ""),
		ListenAddr:      getEnv("LISTEN_ADDR", "0.0.0.0:7000"),
		MetricsAddr:     getEnv("METRICS_ADDR", "0.0.0.0:9090"),
		ProtocolVersion: getEnv("PROTOCOL_VERSION", "1"),
		PeerBootstrap:   parseList(getEnv("PEER_BOOTSTRAP", "")),
		NetworkID:       getEnv("NETWORK_ID", "devnet"),

		RoundTransactionThreshold: getEnvInt("ROUND_TRANSACTION_THRESHOLD", 5),
		HeartbeatInterval:         getEnvDuration("HEARTBEAT_INTERVAL", 30*time.Second),
		HandshakeTimeout:          getEnvDuration("HANDSHAKE_TIMEOUT", 5*time.Second),

		TLSEnabled: getEnvBool("TLS_ENABLED", false),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}
}

// LoadFile reads configuration from a YAML file, expanding ${VAR}/${VAR:-default}
// placeholders against the environment before parsing. The file is parsed
// on top of Load()'s environment defaults, so a field the file does not set
// keeps its default; a field the file sets, even to a zero value, takes the
// file's value.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(data))

	cfg := Load()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var errs []string

	if c.IsValidator && c.ValidatorID <= 0 {
		errs = append(errs, "VALIDATOR_ID must be a positive integer for a validating node")
	}
	if c.ListenAddr == "" {
		errs = append(errs, "LISTEN_ADDR is required")
	}
	if c.RoundTransactionThreshold <= 0 {
		errs = append(errs, "ROUND_TRANSACTION_THRESHOLD must be positive")
	}
	if c.HeartbeatInterval <= 0 {
		errs = append(errs, "HEARTBEAT_INTERVAL must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name, fallback := groups[1], groups[3]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return fallback
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseList parses a comma-separated list, trimming whitespace and
// dropping empty entries.
func parseList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
