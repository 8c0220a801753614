package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Graph   GraphConfig   `yaml:"graph"`
	Logging LoggingConfig `yaml:"logging"`
	Flow    FlowConfig    `yaml:"flow"`
	Backend BackendConfig `yaml:"backend"`
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
	MetricsEnabled    bool          `yaml:"metricsEnabled"`
	AllowedOriginsCSV string        `yaml:"allowedOrigins"`
}

// GraphConfig describes connectivity to the graph database (Neo4j).
type GraphConfig struct {
	URI            string `yaml:"uri"`
	Database       string `yaml:"database"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	MaxConnections int    `yaml:"maxConnections"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"` // text|json
	Colored       bool   `yaml:"colored"`
	IncludeCaller bool   `yaml:"includeCaller"`
}

// FlowConfig configures the client side of the credit-score wizard.
type FlowConfig struct {
	// Endpoint is the action endpoint of the score backend.
	Endpoint       string        `yaml:"endpoint"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	// StoreDriver selects the snapshot medium: memory|file|sqlite|graph.
	StoreDriver string `yaml:"storeDriver"`
	StorePath   string `yaml:"storePath"`
	StorageKey  string `yaml:"storageKey"`
}

// BackendConfig tunes the score service.
type BackendConfig struct {
	RequireOTP     bool          `yaml:"requireOtp"`
	OTPTTL         time.Duration `yaml:"otpTtl"`
	OTPMaxAttempts int           `yaml:"otpMaxAttempts"`
	// DemoOTPCode, when set, is issued instead of a random code.
	DemoOTPCode string `yaml:"demoOtpCode"`
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10
	defaultEndpoint         = "http://localhost:8080/api/credit-score"
	defaultRequestTimeout   = 15 * time.Second
	defaultStoreDriver      = "file"
	defaultStorePath        = ".creditscore/state.json"
	defaultStorageKey       = "creditScoreFlow"
	defaultOTPTTL           = 5 * time.Minute
	defaultOTPMaxAttempts   = 3
)

// ConfigFileEnv names the variable pointing at an optional YAML overlay.
const ConfigFileEnv = "CREDITSCORE_CONFIG"

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Host:            defaultHost,
			Port:            defaultPort,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  defaultLoggingLevel,
			Format: defaultLoggingFormat,
		},
		Graph: GraphConfig{
			MaxConnections: defaultGraphMaxSessions,
		},
		Flow: FlowConfig{
			Endpoint:       defaultEndpoint,
			RequestTimeout: defaultRequestTimeout,
			StoreDriver:    defaultStoreDriver,
			StorePath:      defaultStorePath,
			StorageKey:     defaultStorageKey,
		},
		Backend: BackendConfig{
			RequireOTP:     true,
			OTPTTL:         defaultOTPTTL,
			OTPMaxAttempts: defaultOTPMaxAttempts,
		},
	}
}

// Load reads configuration from an optional YAML file and environment
// variables, applying defaults. Environment variables win over the file.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.HTTP.Host = valueOrDefault("SERVER_HOST", cfg.HTTP.Host)
	cfg.Logging.Level = valueOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = valueOrDefault("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Colored = parseBoolWithDefault("LOG_COLOR", cfg.Logging.Colored)
	cfg.Logging.IncludeCaller = parseBoolWithDefault("LOG_INCLUDE_CALLER", cfg.Logging.IncludeCaller)

	cfg.Graph.URI = valueOrDefault("GRAPH_URI", cfg.Graph.URI)
	cfg.Graph.Database = valueOrDefault("GRAPH_DATABASE", cfg.Graph.Database)
	cfg.Graph.Username = valueOrDefault("GRAPH_USERNAME", cfg.Graph.Username)
	cfg.Graph.Password = valueOrDefault("GRAPH_PASSWORD", cfg.Graph.Password)
	cfg.Graph.MaxConnections = parseIntWithDefault("GRAPH_MAX_CONNECTIONS", cfg.Graph.MaxConnections)

	cfg.Flow.Endpoint = valueOrDefault("FLOW_ENDPOINT", cfg.Flow.Endpoint)
	cfg.Flow.StoreDriver = strings.ToLower(valueOrDefault("FLOW_STORE_DRIVER", cfg.Flow.StoreDriver))
	cfg.Flow.StorePath = valueOrDefault("FLOW_STORE_PATH", cfg.Flow.StorePath)
	cfg.Flow.StorageKey = valueOrDefault("FLOW_STORAGE_KEY", cfg.Flow.StorageKey)

	cfg.Backend.RequireOTP = parseBoolWithDefault("BACKEND_REQUIRE_OTP", cfg.Backend.RequireOTP)
	cfg.Backend.OTPMaxAttempts = parseIntWithDefault("BACKEND_OTP_MAX_ATTEMPTS", cfg.Backend.OTPMaxAttempts)
	cfg.Backend.DemoOTPCode = valueOrDefault("BACKEND_DEMO_OTP_CODE", cfg.Backend.DemoOTPCode)

	port, err := parsePort("SERVER_PORT", cfg.HTTP.Port)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
		{"FLOW_REQUEST_TIMEOUT", &cfg.Flow.RequestTimeout},
		{"BACKEND_OTP_TTL", &cfg.Backend.OTPTTL},
	}
	for _, d := range durations {
		if err := parseDuration(d.key, d.dst); err != nil {
			return Config{}, err
		}
	}

	cfg.HTTP.MetricsEnabled = parseBoolWithDefault("SERVER_METRICS_ENABLED", cfg.HTTP.MetricsEnabled)
	cfg.HTTP.AllowedOriginsCSV = valueOrDefault("SERVER_ALLOWED_ORIGINS", cfg.HTTP.AllowedOriginsCSV)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Flow.StoreDriver {
	case "memory", "file", "sqlite", "graph":
	default:
		return fmt.Errorf("unsupported flow store driver %q", c.Flow.StoreDriver)
	}
	if (c.Flow.StoreDriver == "file" || c.Flow.StoreDriver == "sqlite") && c.Flow.StorePath == "" {
		return errors.New("flow store path is required for file and sqlite drivers")
	}
	if c.Flow.StorageKey == "" {
		return errors.New("flow storage key is required")
	}
	if c.Flow.RequestTimeout < 0 {
		return errors.New("flow request timeout must not be negative")
	}
	if c.Backend.OTPMaxAttempts <= 0 {
		return errors.New("backend otp max attempts must be positive")
	}
	if c.Backend.OTPTTL <= 0 {
		return errors.New("backend otp ttl must be positive")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
