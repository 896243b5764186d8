// Package config provides Viper-based configuration loading for the fiefdom game server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Mode is the server operation mode: "standalone" or "backend".
	Mode string `mapstructure:"mode"`
	// Type is the server type identifier reported in logs.
	Type string `mapstructure:"type"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameServerConfig holds the gRPC listener settings.
type GameServerConfig struct {
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// EngineConfig tunes the action resolution engine.
type EngineConfig struct {
	// Store selects the document store backend: "postgres" or "memory".
	Store string `mapstructure:"store"`
	// ResolveTimeout bounds a single ResolveAction call end to end.
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
	// MaxCASRetries is how many times a transaction is re-run after a version conflict.
	MaxCASRetries int `mapstructure:"max_cas_retries"`
	// JackpotChance is the probability that a successful action pays a bonus yield.
	JackpotChance float64 `mapstructure:"jackpot_chance"`
	// RegenCap caps the idle time credited by passive regeneration.
	RegenCap time.Duration `mapstructure:"regen_cap"`
}

// ContentConfig points at optional content overrides.
type ContentConfig struct {
	// CostsFile is a YAML cost table; empty uses the built-in table.
	CostsFile string `mapstructure:"costs_file"`
	// LawsDir holds *.lua law scripts; empty disables laws.
	LawsDir string `mapstructure:"laws_dir"`
	// ScriptInstructionLimit caps Lua opcodes per law evaluation; 0 uses the default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
	// RealmFile seeds missing regions of every ticked room; empty seeds nothing.
	RealmFile string `mapstructure:"realm_file"`
}

// WorldConfig drives the background world clock.
type WorldConfig struct {
	// TickInterval is the wall-clock duration of one game tick.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// Rooms lists the room IDs advanced by the clock.
	Rooms []string `mapstructure:"rooms"`
}

// ActionLogConfig controls the compressed action archive.
type ActionLogConfig struct {
	// Dir is the archive directory; empty disables the archive.
	Dir string `mapstructure:"dir"`
}

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Content    ContentConfig    `mapstructure:"content"`
	World      WorldConfig      `mapstructure:"world"`
	ActionLog  ActionLogConfig  `mapstructure:"actionlog"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Engine.Store == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGameServer(c.GameServer); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateEngine(c.Engine); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateWorld(c.World); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Content.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("content.script_instruction_limit must be >= 0, got %d", c.Content.ScriptInstructionLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	validModes := map[string]bool{"standalone": true, "backend": true}
	if !validModes[s.Mode] {
		return fmt.Errorf("server.mode must be one of [standalone, backend], got %q", s.Mode)
	}
	if s.Type == "" {
		return errors.New("server.type must not be empty")
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if g.GRPCPort < 1 || g.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateEngine(e EngineConfig) error {
	var errs []string
	validStores := map[string]bool{"postgres": true, "memory": true}
	if !validStores[e.Store] {
		errs = append(errs, fmt.Sprintf("engine.store must be one of [postgres, memory], got %q", e.Store))
	}
	if e.ResolveTimeout <= 0 {
		errs = append(errs, "engine.resolve_timeout must be positive")
	}
	if e.MaxCASRetries < 1 {
		errs = append(errs, fmt.Sprintf("engine.max_cas_retries must be >= 1, got %d", e.MaxCASRetries))
	}
	if e.JackpotChance < 0 || e.JackpotChance > 1 {
		errs = append(errs, fmt.Sprintf("engine.jackpot_chance must be within [0, 1], got %v", e.JackpotChance))
	}
	if e.RegenCap < 0 {
		errs = append(errs, "engine.regen_cap must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWorld(w WorldConfig) error {
	if len(w.Rooms) > 0 && w.TickInterval <= 0 {
		return errors.New("world.tick_interval must be positive when world.rooms is set")
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with FIEF_ prefix
	v.SetEnvPrefix("FIEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the built-in defaults.
//
// Postcondition: LoadFromViper(Defaults()) succeeds.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "standalone")
	v.SetDefault("server.type", "fiefdom")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "fiefdom")
	v.SetDefault("database.password", "fiefdom")
	v.SetDefault("database.name", "fiefdom")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)

	v.SetDefault("engine.store", "postgres")
	v.SetDefault("engine.resolve_timeout", "30s")
	v.SetDefault("engine.max_cas_retries", 8)
	v.SetDefault("engine.jackpot_chance", 0.005)
	v.SetDefault("engine.regen_cap", "60m")

	v.SetDefault("content.costs_file", "")
	v.SetDefault("content.laws_dir", "")
	v.SetDefault("content.script_instruction_limit", 0)
	v.SetDefault("content.realm_file", "")

	v.SetDefault("world.tick_interval", "5m")
	v.SetDefault("world.rooms", []string{})

	v.SetDefault("actionlog.dir", "")
}
