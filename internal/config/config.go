package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Backend  BackendConfig `yaml:"backend"`
	Server   ServerConfig  `yaml:"server"`
	Audit    AuditConfig   `yaml:"audit"`
	LogLevel string        `yaml:"log_level"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"`
}

type AuditConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
	XTDB  XTDBConfig  `yaml:"xtdb"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type XTDBConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

// Addr is the listen address of the dashboard.
func (s ServerConfig) Addr() string {
	return ":" + s.Port
}

func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://127.0.0.1:8000",
		},
		Server: ServerConfig{
			Port: "3000",
			Mode: "debug",
		},
		Audit: AuditConfig{
			Kafka: KafkaConfig{
				Topic: "churn-dashboard-predictions",
			},
			XTDB: XTDBConfig{
				Table: "dashboard_predictions",
			},
		},
		LogLevel: "info",
	}
}

// Load reads config.yaml, or the file named by CONFIG_PATH, then applies
// environment overrides.
func Load() (*Config, error) {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit file path. A missing file is not an
// error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	// Override from environment
	if v := os.Getenv("CHURN_API_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("CHURN_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CHURN_API_TIMEOUT: %w", err)
		}
		cfg.Backend.Timeout = d
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		cfg.Server.Mode = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Audit.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_PREDICTIONS_TOPIC"); v != "" {
		cfg.Audit.Kafka.Topic = v
	}
	if v := os.Getenv("XTDB_CONN_STRING"); v != "" {
		cfg.Audit.XTDB.ConnString = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend base_url must not be empty")
	}
	if cfg.Backend.Timeout < 0 {
		return nil, fmt.Errorf("backend timeout must not be negative")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
