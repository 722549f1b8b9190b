package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"homegame/internal/game"
	"homegame/internal/registry"
	"homegame/internal/store"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
	Store  StoreSettings  `hcl:"store,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings contains the table parameters applied to every room
type GameSettings struct {
	SmallBlind     int    `hcl:"small_blind,optional"`
	BigBlind       int    `hcl:"big_blind,optional"`
	StartingChips  int    `hcl:"starting_chips,optional"`
	MaxPlayers     int    `hcl:"max_players,optional"`
	SessionTimeout string `hcl:"session_timeout,optional"`
}

// StoreSettings controls snapshot persistence
type StoreSettings struct {
	Path          string `hcl:"path,optional"`
	SaveInterval  string `hcl:"save_interval,optional"`
	SweepInterval string `hcl:"sweep_interval,optional"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameSettings{
			SmallBlind:     game.DefaultSmallBlind,
			BigBlind:       game.DefaultBigBlind,
			StartingChips:  game.DefaultStartingChips,
			MaxPlayers:     game.DefaultMaxPlayers,
			SessionTimeout: game.DefaultSessionTimeout.String(),
		},
		Store: StoreSettings{
			Path:          "game.json",
			SaveInterval:  store.DefaultSaveInterval.String(),
			SweepInterval: registry.DefaultSweepInterval.String(),
		},
	}
}

// LoadConfig loads server configuration from an HCL file. A missing file
// yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	defaults := DefaultConfig()
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Game.SmallBlind == 0 {
		config.Game.SmallBlind = defaults.Game.SmallBlind
	}
	if config.Game.BigBlind == 0 {
		config.Game.BigBlind = defaults.Game.BigBlind
	}
	if config.Game.StartingChips == 0 {
		config.Game.StartingChips = defaults.Game.StartingChips
	}
	if config.Game.MaxPlayers == 0 {
		config.Game.MaxPlayers = defaults.Game.MaxPlayers
	}
	if config.Game.SessionTimeout == "" {
		config.Game.SessionTimeout = defaults.Game.SessionTimeout
	}
	if config.Store.Path == "" {
		config.Store.Path = defaults.Store.Path
	}
	if config.Store.SaveInterval == "" {
		config.Store.SaveInterval = defaults.Store.SaveInterval
	}
	if config.Store.SweepInterval == "" {
		config.Store.SweepInterval = defaults.Store.SweepInterval
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Game.SmallBlind <= 0 {
		return fmt.Errorf("small blind must be positive")
	}
	if c.Game.BigBlind <= c.Game.SmallBlind {
		return fmt.Errorf("big blind must be greater than small blind")
	}
	if c.Game.StartingChips <= 0 {
		return fmt.Errorf("starting chips must be positive")
	}
	if c.Game.MaxPlayers < 2 || c.Game.MaxPlayers > 10 {
		return fmt.Errorf("max players must be between 2 and 10")
	}
	if _, err := time.ParseDuration(c.Game.SessionTimeout); err != nil {
		return fmt.Errorf("invalid session_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Store.SaveInterval); err != nil {
		return fmt.Errorf("invalid save_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.Store.SweepInterval); err != nil {
		return fmt.Errorf("invalid sweep_interval: %w", err)
	}
	return nil
}

// ServerAddress returns the full listen address
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GameConfig converts the game block to the engine's room configuration.
// Call Validate first; malformed durations fall back to the default here.
func (c *Config) GameConfig() game.Config {
	timeout, err := time.ParseDuration(c.Game.SessionTimeout)
	if err != nil {
		timeout = game.DefaultSessionTimeout
	}
	return game.Config{
		SmallBlind:     c.Game.SmallBlind,
		BigBlind:       c.Game.BigBlind,
		StartingChips:  c.Game.StartingChips,
		MaxPlayers:     c.Game.MaxPlayers,
		SessionTimeout: timeout,
	}
}

// SaveInterval returns the parsed snapshot save interval.
func (c *Config) SaveInterval() time.Duration {
	d, err := time.ParseDuration(c.Store.SaveInterval)
	if err != nil {
		return store.DefaultSaveInterval
	}
	return d
}

// SweepInterval returns the parsed expiry sweep interval.
func (c *Config) SweepInterval() time.Duration {
	d, err := time.ParseDuration(c.Store.SweepInterval)
	if err != nil {
		return registry.DefaultSweepInterval
	}
	return d
}
