package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Driver names a storage backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Board    BoardConfig    `toml:"board"`
	Server   ServerConfig   `toml:"server"`
}

type DatabaseConfig struct {
	Driver Driver `toml:"driver"`
	Path   string `toml:"path"` // sqlite file path
	DSN    string `toml:"dsn"`  // postgres connection string
}

type BoardConfig struct {
	Statuses []StatusConfig `toml:"statuses"`
}

type StatusConfig struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

func defaultStatuses() []StatusConfig {
	return []StatusConfig{
		{ID: "todo", Name: "To Do"},
		{ID: "progress", Name: "In Progress"},
		{ID: "done", Name: "Done"},
	}
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   dbPath,
		},
		Board: BoardConfig{
			Statuses: defaultStatuses(),
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
	}
}

// Load reads a TOML config from path on top of defaults. A missing or empty
// file keeps the defaults as-is.
func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid database.driver: %q", c.Database.Driver)
	}

	if len(c.Board.Statuses) == 0 {
		return errors.New("board.statuses must include at least one status")
	}
	seen := map[string]struct{}{}
	for idx := range c.Board.Statuses {
		status := c.Board.Statuses[idx]
		status.ID = strings.TrimSpace(strings.ToLower(status.ID))
		status.Name = strings.TrimSpace(status.Name)
		if status.ID == "" {
			return fmt.Errorf("board.statuses[%d].id is required", idx)
		}
		if status.Name == "" {
			return fmt.Errorf("board.statuses[%d].name is required", idx)
		}
		if _, ok := seen[status.ID]; ok {
			return fmt.Errorf("board.statuses[%d].id is duplicated: %s", idx, status.ID)
		}
		seen[status.ID] = struct{}{}
		c.Board.Statuses[idx] = status
	}

	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
