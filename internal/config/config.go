package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	DB       DBConfig       `yaml:"db"`
	Log      LogConfig      `yaml:"log"`
	Engine   EngineConfig   `yaml:"engine"`
	Autosave AutosaveConfig `yaml:"autosave"`
	Capture  CaptureConfig  `yaml:"capture"`
	MCP      MCPConfig      `yaml:"mcp"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// EngineConfig points at the out-of-process check/capture engine.
type EngineConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AutosaveConfig tunes the debounced registry saver.
type AutosaveConfig struct {
	Delay time.Duration `yaml:"delay"`
}

// CaptureConfig tunes the bulk capture coordinator. Schedule is a cron
// expression for the periodic health sweep; empty disables it.
type CaptureConfig struct {
	Grace    time.Duration `yaml:"grace"`
	Schedule string        `yaml:"schedule"`
}

// MCPConfig controls the tool surface. Mode is "off" or "stdio".
type MCPConfig struct {
	Mode string `yaml:"mode"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "sitewatch.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Engine: EngineConfig{
			URL:     "http://127.0.0.1:9011",
			Timeout: 30 * time.Second,
		},
		Autosave: AutosaveConfig{
			Delay: 300 * time.Millisecond,
		},
		Capture: CaptureConfig{
			Grace: 2 * time.Second,
		},
		MCP: MCPConfig{
			Mode: "off",
		},
	}

	if path := os.Getenv("SITEWATCH_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("SITEWATCH_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("SITEWATCH_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SITEWATCH_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("SITEWATCH_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("SITEWATCH_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if url := os.Getenv("SITEWATCH_ENGINE_URL"); url != "" {
		cfg.Engine.URL = url
	}
	if schedule := os.Getenv("SITEWATCH_CHECK_SCHEDULE"); schedule != "" {
		cfg.Capture.Schedule = schedule
	}
	if mode := os.Getenv("SITEWATCH_MCP_MODE"); mode != "" {
		cfg.MCP.Mode = mode
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
