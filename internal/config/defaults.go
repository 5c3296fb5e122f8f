package config

import (
	"net"
	"time"

	"github.com/google/uuid"
)

var knownDiscoveryModes = map[string]bool{
	DiscoveryHTTP:      true,
	DiscoveryStatic:    true,
	DiscoveryDirectory: true,
}

var knownLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var defaultClock = ClockConfig{
	Period: time.Second,
}

var defaultRegistry = RegistryConfig{
	QueueCapacity: 40,
}

var defaultDiscovery = DiscoveryConfig{
	Mode:    DiscoveryHTTP,
	URL:     "http://localhost:30000",
	Timeout: 3 * time.Second,
}

var defaultHTTP = HTTPConfig{
	Addr: "127.0.0.1:8080",
}

var defaultGRPC = GRPCConfig{
	Addr: ":50051",
}

var defaultStore = StoreConfig{
	Path: "data.db",
}

var defaultRaft = RaftConfig{
	DataDir: "raft-data",
	Timeout: 10 * time.Second,
}

var defaultLog = LogConfig{
	Level:      "info",
	MaxSizeMB:  100,
	MaxBackups: 5,
	MaxAgeDays: 30,
}

var defaultShutdown = ShutdownConfig{
	Grace: 10 * time.Second,
}

func Default() *Config {
	return &Config{
		Clock:     defaultClock,
		Registry:  defaultRegistry,
		Discovery: defaultDiscovery,
		HTTP:      defaultHTTP,
		GRPC:      defaultGRPC,
		Store:     defaultStore,
		Raft:      defaultRaft,
		Log:       defaultLog,
		Shutdown:  defaultShutdown,
	}
}

func (c *NodeConfig) PopulateDefaults() {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
}

func (c *ClockConfig) PopulateDefaults() {
	if c.Period == 0 {
		c.Period = defaultClock.Period
	}
}

func (c *RegistryConfig) PopulateDefaults() {
	if c.QueueCapacity == 0 {
		c.QueueCapacity = defaultRegistry.QueueCapacity
	}
}

func (c *DiscoveryConfig) PopulateDefaults() {
	if c.Mode == "" {
		c.Mode = defaultDiscovery.Mode
	}

	if c.Mode == DiscoveryHTTP && c.URL == "" {
		c.URL = defaultDiscovery.URL
	}

	if c.Timeout == 0 {
		c.Timeout = defaultDiscovery.Timeout
	}
}

func (c *HTTPConfig) PopulateDefaults() {
	if c.Addr == "" {
		c.Addr = defaultHTTP.Addr
	}
}

func (c *GRPCConfig) PopulateDefaults() {
	if c.Addr == "" {
		c.Addr = defaultGRPC.Addr
	}
}

func (c *StoreConfig) PopulateDefaults() {
	if c.Path == "" {
		c.Path = defaultStore.Path
	}
}

func (c *RaftConfig) PopulateDefaults() {
	if c.DataDir == "" {
		c.DataDir = defaultRaft.DataDir
	}

	if c.Timeout == 0 {
		c.Timeout = defaultRaft.Timeout
	}

	// bind on all interfaces at the advertised port
	if c.BindAddr == "" && c.Addr != "" {
		if _, port, err := net.SplitHostPort(c.Addr); err == nil {
			c.BindAddr = "0.0.0.0:" + port
		}
	}
}

func (c *LogConfig) PopulateDefaults() {
	if c.Level == "" {
		c.Level = defaultLog.Level
	}

	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = defaultLog.MaxSizeMB
	}

	if c.MaxBackups == 0 {
		c.MaxBackups = defaultLog.MaxBackups
	}

	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = defaultLog.MaxAgeDays
	}
}

func (c *ShutdownConfig) PopulateDefaults() {
	if c.Grace == 0 {
		c.Grace = defaultShutdown.Grace
	}
}

func (c *Config) PopulateDefaults() {
	c.Node.PopulateDefaults()
	c.Clock.PopulateDefaults()
	c.Registry.PopulateDefaults()
	c.Discovery.PopulateDefaults()
	c.HTTP.PopulateDefaults()
	c.GRPC.PopulateDefaults()
	c.Store.PopulateDefaults()
	c.Raft.PopulateDefaults()
	c.Log.PopulateDefaults()
	c.Shutdown.PopulateDefaults()
}
