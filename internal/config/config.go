package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL       string `yaml:"database_url"`
	DBMaxConns        int32  `yaml:"db_max_conns"`
	HTTPListenAddr    string `yaml:"http_listen_addr"`
	MetricsListenAddr string `yaml:"metrics_listen_addr"`
	LogLevel          string `yaml:"log_level"`
	ServiceName       string `yaml:"service_name"`
	Edge              Edge   `yaml:"edge"`
}

// Edge holds the connection settings of the managed edge device. An empty
// URL runs the control plane without pushing to a device.
type Edge struct {
	URL                string        `yaml:"url"`
	ID                 string        `yaml:"id"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	Timeout            time.Duration `yaml:"timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	CACert             string        `yaml:"ca_cert"`
	ClientCert         string        `yaml:"client_cert"`
	ClientKey          string        `yaml:"client_key"`
}

func defaults() *Config {
	return &Config{
		HTTPListenAddr:    ":8090",
		MetricsListenAddr: ":9090",
		LogLevel:          "info",
		ServiceName:       "netedge-api",
		Edge:              Edge{Timeout: 30 * time.Second},
	}
}

// Load reads the optional YAML file named by CONFIG_FILE, then applies
// environment variables on top of it.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.HTTPListenAddr = getEnv("HTTP_LISTEN_ADDR", cfg.HTTPListenAddr)
	cfg.MetricsListenAddr = getEnv("METRICS_LISTEN_ADDR", cfg.MetricsListenAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.ServiceName = getEnv("SERVICE_NAME", cfg.ServiceName)
	cfg.Edge.URL = getEnv("EDGE_URL", cfg.Edge.URL)
	cfg.Edge.ID = getEnv("EDGE_ID", cfg.Edge.ID)
	cfg.Edge.Username = getEnv("EDGE_USERNAME", cfg.Edge.Username)
	cfg.Edge.Password = getEnv("EDGE_PASSWORD", cfg.Edge.Password)
	cfg.Edge.CACert = getEnv("EDGE_CA_CERT", cfg.Edge.CACert)
	cfg.Edge.ClientCert = getEnv("EDGE_CLIENT_CERT", cfg.Edge.ClientCert)
	cfg.Edge.ClientKey = getEnv("EDGE_CLIENT_KEY", cfg.Edge.ClientKey)

	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse DB_MAX_CONNS: %w", err)
		}
		cfg.DBMaxConns = int32(n)
	}
	if v := os.Getenv("EDGE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse EDGE_TIMEOUT: %w", err)
		}
		cfg.Edge.Timeout = d
	}
	if v := os.Getenv("EDGE_INSECURE_SKIP_VERIFY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parse EDGE_INSECURE_SKIP_VERIFY: %w", err)
		}
		cfg.Edge.InsecureSkipVerify = b
	}

	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.HTTPListenAddr == "" {
		errs = append(errs, errors.New("HTTP_LISTEN_ADDR is required"))
	}
	if c.Edge.URL != "" {
		if c.Edge.ID == "" {
			errs = append(errs, errors.New("EDGE_ID is required when EDGE_URL is set"))
		}
		if c.Edge.Timeout <= 0 {
			errs = append(errs, errors.New("EDGE_TIMEOUT must be positive"))
		}
	}
	if (c.Edge.ClientCert == "") != (c.Edge.ClientKey == "") {
		errs = append(errs, errors.New("EDGE_CLIENT_CERT and EDGE_CLIENT_KEY must be set together"))
	}
	return errors.Join(errs...)
}

// EdgeEnabled reports whether a device is configured.
func (c *Config) EdgeEnabled() bool {
	return c.Edge.URL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
