package config

import "fmt"

func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigIsNil
	}
	if err := c.Clock.Validate(); err != nil {
		return err
	}
	if err := c.Registry.Validate(); err != nil {
		return err
	}
	if err := c.Discovery.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.GRPC.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(c.Raft.Enabled); err != nil {
		return err
	}
	if err := c.Raft.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}

func (c *ClockConfig) Validate() error {
	if c.Period <= 0 {
		return ErrInvalidPeriod
	}
	return nil
}

func (c *RegistryConfig) Validate() error {
	if c.QueueCapacity <= 0 {
		return ErrInvalidQueueCapacity
	}
	return nil
}

func (c *DiscoveryConfig) Validate() error {
	if !knownDiscoveryModes[c.Mode] {
		return fmt.Errorf("%w: %q", ErrUnknownDiscoveryMode, c.Mode)
	}

	switch c.Mode {
	case DiscoveryHTTP:
		if c.URL == "" {
			return ErrMissingDiscoveryURL
		}
	case DiscoveryDirectory:
		if c.File == "" {
			return ErrMissingDirectoryFile
		}
	}
	return nil
}

func (c *HTTPConfig) Validate() error {
	if On(c.Enabled) && c.Addr == "" {
		return ErrMissingHTTPAddr
	}
	return nil
}

func (c *GRPCConfig) Validate() error {
	if On(c.Enabled) && c.Addr == "" {
		return ErrMissingGRPCAddr
	}
	return nil
}

// Validate requires a path when the store is enabled; the raft journal
// persists through the store so it forces the store on.
func (c *StoreConfig) Validate(raftEnabled bool) error {
	if (c.Enabled || raftEnabled) && c.Path == "" {
		return ErrMissingStorePath
	}
	return nil
}

func (c *RaftConfig) Validate() error {

	if c.Enabled {
		if c.Addr == "" || c.BindAddr == "" {
			return ErrMissingRaftAddr
		}

		for _, p := range c.Peers {
			if p.ID == "" || p.Address == "" {
				return ErrInvalidPeer
			}
		}

	}

	return nil
}

func (c *LogConfig) Validate() error {
	if !knownLogLevels[c.Level] {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Level)
	}
	return nil
}
