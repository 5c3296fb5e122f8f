package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Clock     ClockConfig     `yaml:"clock"`
	Registry  RegistryConfig  `yaml:"registry"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Store     StoreConfig     `yaml:"store"`
	Raft      RaftConfig      `yaml:"raft"`
	Log       LogConfig       `yaml:"log"`
	Shutdown  ShutdownConfig  `yaml:"shutdown"`
}

type NodeConfig struct {
	ID string `yaml:"id"`
}

type ClockConfig struct {
	Period time.Duration `yaml:"period"`
}

type RegistryConfig struct {
	QueueCapacity int `yaml:"queue_capacity"`
}

// Discovery modes.
const (
	DiscoveryHTTP      = "http"
	DiscoveryStatic    = "static"
	DiscoveryDirectory = "directory"
)

type DiscoveryConfig struct {
	Mode    string              `yaml:"mode"`
	URL     string              `yaml:"url"`
	Timeout time.Duration       `yaml:"timeout"`
	File    string              `yaml:"file"`
	Static  map[string][]string `yaml:"static"`
}

type HTTPConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type GRPCConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type PeerConfig struct {
	ID      string `yaml:"id"`
	Address string `yaml:"address"`
}

type RaftConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	BindAddr string        `yaml:"bind_addr"`
	DataDir  string        `yaml:"data_dir"`
	Peers    []PeerConfig  `yaml:"peers"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type ShutdownConfig struct {
	Grace time.Duration `yaml:"grace"`
}

func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &cfg, nil
}

// Load reads path (or starts from Default when path is empty), applies
// environment overrides, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Read(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.Getenv)
	cfg.PopulateDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the process environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Node.ID, "NODE_ID")
	set(&c.Store.Path, "DB_PATH")
	set(&c.Raft.Addr, "RAFT_ADDR")
	set(&c.Raft.BindAddr, "RAFT_BIND_ADDR")
	set(&c.Log.Level, "LOG_LEVEL")
	set(&c.Discovery.URL, "DISCOVERY_URL")
	set(&c.HTTP.Addr, "HTTP_ADDR")
	if port := getenv("PORT"); port != "" {
		c.GRPC.Addr = ":" + port
	}
	set(&c.GRPC.Addr, "GRPC_ADDR")
}

// On reports whether an optional toggle is enabled; unset means enabled.
func On(b *bool) bool {
	return b == nil || *b
}
