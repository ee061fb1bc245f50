package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ChatsRoot string        `toml:"chats_root"`
	DBPath    string        `toml:"db_path"`
	Convert   ConvertConfig `toml:"convert"`
	Index     IndexConfig   `toml:"index"`
	Log       LogConfig     `toml:"log"`
}

type ConvertConfig struct {
	Strict            bool   `toml:"strict"`
	RequireCreateDate bool   `toml:"require_create_date"`
	Timezone          string `toml:"timezone"` // IANA name, dates are read as wall clock in this zone
}

type IndexConfig struct {
	Workers int `toml:"workers"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

// DefaultPath is the config file read by Load.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tvc", "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom applies defaults, then the TOML file at cfgPath if it exists,
// then TVC_* environment overrides.
func LoadFrom(cfgPath string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ChatsRoot: filepath.Join(home, "SillyTavern", "data", "default-user", "chats"),
		DBPath:    filepath.Join(home, ".config", "tvc", "tvc.db"),
		Convert:   ConvertConfig{Timezone: "UTC"},
		Index:     IndexConfig{Workers: 4},
		Log:       LogConfig{Level: "info", Format: "text"},
	}

	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	cfg.ChatsRoot = envStr("TVC_CHATS_ROOT", cfg.ChatsRoot)
	cfg.DBPath = envStr("TVC_DB_PATH", cfg.DBPath)
	cfg.Log.Level = envStr("TVC_LOG_LEVEL", cfg.Log.Level)
	cfg.Index.Workers = envInt("TVC_INDEX_WORKERS", cfg.Index.Workers)

	// expand ~ in paths
	cfg.ChatsRoot = expandHome(cfg.ChatsRoot, home)
	cfg.DBPath = expandHome(cfg.DBPath, home)

	if cfg.Index.Workers < 1 {
		cfg.Index.Workers = 1
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves convert.timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Convert.Timezone == "" || c.Convert.Timezone == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Convert.Timezone)
	if err != nil {
		return nil, fmt.Errorf("convert.timezone: %w", err)
	}
	return loc, nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
