package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	NATS       NATSConfig       `yaml:"nats"`
	Mixer      MixerConfig      `yaml:"mixer"`
	Settlement SettlementConfig `yaml:"settlement"`
	CORS       CORSConfig       `yaml:"cors"`       // CORS configuration
	Admin      AdminConfig      `yaml:"admin"`      // Admin API access control configuration
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig Database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// StorageConfig selects the ledger backing store
type StorageConfig struct {
	Mode string `yaml:"mode"` // postgres | memory
}

// NATSConfig NATS message server configuration
type NATSConfig struct {
	URL             string `yaml:"url"`
	Timeout         int    `yaml:"timeout"`        // connect timeout (seconds)
	ReconnectWait   int    `yaml:"reconnect_wait"` // wait between reconnects (seconds)
	MaxReconnects   int    `yaml:"max_reconnects"` // -1 = retry forever
	EnableJetStream bool   `yaml:"enable_jetstream"`
}

// MixerConfig pool policy configuration
type MixerConfig struct {
	Scheme         string   `yaml:"scheme"`         // nullifier_proof | secret_reveal
	Denominations  []string `yaml:"denominations"`  // base-unit decimal strings
	MinDelay       string   `yaml:"minDelay"`       // Go duration string, e.g. "24h"
	AutoInit       bool     `yaml:"autoInit"`       // initialize the pool at startup if needed
	Owner          string   `yaml:"owner"`          // owner wallet for autoInit
	FeeBasisPoints uint16   `yaml:"feeBasisPoints"` // fee rate for autoInit, in basis points
}

// SettlementConfig settlement service configuration
type SettlementConfig struct {
	BaseURL   string `yaml:"baseUrl"`
	Timeout   int    `yaml:"timeout"`   // request timeout (seconds)
	Interval  int    `yaml:"interval"`  // dispatch sweep interval (seconds)
	BatchSize int    `yaml:"batchSize"` // intents claimed per sweep
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`   // List of allowed origins
	AllowCredentials bool     `yaml:"allowCredentials"` // Whether to allow credentials
	MaxAge           int      `yaml:"maxAge"`           // Max age for preflight requests (seconds)
}

// AdminConfig Admin API access control configuration
type AdminConfig struct {
	AllowedIPs []string `yaml:"allowedIPs"` // List of allowed IP addresses or CIDR ranges
}

var AppConfig *Config

// LoadConfig loads the configuration file
func LoadConfig(configPath string) error {
	// if no path given, use the default, preferring a local override
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			log.Printf("🔧 Using local configuration file: config.local.yaml")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	fmt.Printf("✅ [%s] Loading configuration from config file: %s\n", time.Now().Format("2006-01-02 15:04:05"), configPath)

	overrideFromEnv(&config)
	applyDefaults(&config)

	if err := validate(&config); err != nil {
		return err
	}

	// Debug: pool policy
	fmt.Printf("📋 [Config] Mixer scheme: %s, minDelay: %s, %d denominations\n",
		config.Mixer.Scheme, config.Mixer.MinDelay, len(config.Mixer.Denominations))
	if config.Mixer.AutoInit {
		fmt.Printf("📋 [Config] Mixer auto-init enabled: owner=%s, fee=%dbp\n",
			config.Mixer.Owner, config.Mixer.FeeBasisPoints)
	}

	// Debug: storage mode
	fmt.Printf("📋 [Config] Storage mode: %s\n", config.Storage.Mode)

	// Debug: Admin configuration
	if len(config.Admin.AllowedIPs) > 0 {
		fmt.Printf("📋 [Config] Admin IP whitelist loaded: %d IPs/CIDRs configured\n", len(config.Admin.AllowedIPs))
		for i, ip := range config.Admin.AllowedIPs {
			fmt.Printf("   [%d] %s\n", i+1, ip)
		}
	} else {
		fmt.Printf("📋 [Config] Admin IP whitelist: not configured (localhost-only mode)\n")
	}

	// Debug: CORS configuration
	if len(config.CORS.AllowedOrigins) > 0 {
		fmt.Printf("📋 [Config] CORS allowed origins loaded: %d origins configured\n", len(config.CORS.AllowedOrigins))
		for i, origin := range config.CORS.AllowedOrigins {
			fmt.Printf("   [%d] %s\n", i+1, origin)
		}
	} else {
		fmt.Printf("📋 [Config] CORS: not configured (will allow all origins *)\n")
	}

	AppConfig = &config
	return nil
}

// overrideFromEnv applies environment variable overrides
func overrideFromEnv(config *Config) {
	// Database DSN
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}

	// server configuration
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	// storage mode
	if mode := os.Getenv("STORAGE_MODE"); mode != "" {
		config.Storage.Mode = mode
	}

	// NATS configuration
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}
	if natsTimeout := os.Getenv("NATS_TIMEOUT"); natsTimeout != "" {
		if t, err := strconv.Atoi(natsTimeout); err == nil {
			config.NATS.Timeout = t
		}
	}

	// pool policy
	if scheme := os.Getenv("MIXER_SCHEME"); scheme != "" {
		config.Mixer.Scheme = scheme
	}
	if minDelay := os.Getenv("MIXER_MIN_DELAY"); minDelay != "" {
		config.Mixer.MinDelay = minDelay
	}
	if denoms := os.Getenv("MIXER_DENOMINATIONS"); denoms != "" {
		parts := strings.Split(denoms, ",")
		config.Mixer.Denominations = make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				config.Mixer.Denominations = append(config.Mixer.Denominations, trimmed)
			}
		}
	}
	if autoInit := os.Getenv("MIXER_AUTO_INIT"); autoInit != "" {
		if b, err := strconv.ParseBool(autoInit); err == nil {
			config.Mixer.AutoInit = b
		}
	}
	if owner := os.Getenv("MIXER_OWNER"); owner != "" {
		config.Mixer.Owner = owner
	}
	if feeBP := os.Getenv("MIXER_FEE_BASIS_POINTS"); feeBP != "" {
		if bp, err := strconv.ParseUint(feeBP, 10, 16); err == nil {
			config.Mixer.FeeBasisPoints = uint16(bp)
		}
	}

	// settlement configuration
	if base := os.Getenv("SETTLEMENT_BASE_URL"); base != "" {
		config.Settlement.BaseURL = base
	}
	if timeout := os.Getenv("SETTLEMENT_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			config.Settlement.Timeout = t
		}
	}
	if interval := os.Getenv("SETTLEMENT_INTERVAL"); interval != "" {
		if t, err := strconv.Atoi(interval); err == nil {
			config.Settlement.Interval = t
		}
	}

	// CORS Configuration
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		// Override YAML config with environment variable
		origins := strings.Split(corsOrigins, ",")
		config.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				config.CORS.AllowedOrigins = append(config.CORS.AllowedOrigins, trimmed)
			}
		}
	}
}

// applyDefaults fills the gaps a minimal config file leaves
func applyDefaults(config *Config) {
	if config.Server.Port == 0 {
		config.Server.Port = 18090
	}
	if config.Storage.Mode == "" {
		config.Storage.Mode = "postgres"
	}
	if config.Mixer.Scheme == "" {
		config.Mixer.Scheme = "nullifier_proof"
	}
	if config.Mixer.MinDelay == "" {
		config.Mixer.MinDelay = "24h"
	}
	if config.Settlement.Timeout == 0 {
		config.Settlement.Timeout = 30
	}
	if config.Settlement.Interval == 0 {
		config.Settlement.Interval = 15
	}
	if config.Settlement.BatchSize == 0 {
		config.Settlement.BatchSize = 50
	}
}

// validate rejects configurations the server cannot start with
func validate(config *Config) error {
	switch config.Storage.Mode {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid storage mode %q: must be postgres or memory", config.Storage.Mode)
	}
	if _, err := time.ParseDuration(config.Mixer.MinDelay); err != nil {
		return fmt.Errorf("invalid mixer minDelay %q: %w", config.Mixer.MinDelay, err)
	}
	if config.Mixer.AutoInit && config.Mixer.Owner == "" {
		return fmt.Errorf("mixer autoInit requires an owner address")
	}
	return nil
}

// ParseMinDelay returns the time-lock as a duration
func (m MixerConfig) ParseMinDelay() (time.Duration, error) {
	return time.ParseDuration(m.MinDelay)
}

// GetSettlementURL returns the settlement service URL
func GetSettlementURL() string {
	if AppConfig != nil && AppConfig.Settlement.BaseURL != "" {
		return AppConfig.Settlement.BaseURL
	}

	if settlementURL := os.Getenv("SETTLEMENT_BASE_URL"); settlementURL != "" {
		return settlementURL
	}

	// Default: use the Docker service name in release mode, localhost otherwise
	if os.Getenv("GIN_MODE") == "release" {
		return "http://mixpool-settlement:18091"
	}
	return "http://localhost:18091"
}
