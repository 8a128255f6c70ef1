package config

import "fmt"

// StorageConfig defines the storage backend for intake state
type StorageConfig struct {
	Backend string `hcl:"backend,optional"` // "memory", "sqlite" or "postgres"
	Path    string `hcl:"path,optional"`    // SQLite file path (default: ".searchv2/store.db")
	DSN     string `hcl:"dsn,optional"`     // Postgres connection string
}

// Defaults fills in default values for unset fields
func (s *StorageConfig) Defaults() {
	if s.Backend == "" {
		s.Backend = "memory"
	}
	if s.Path == "" {
		s.Path = ".searchv2/store.db"
	}
}

// Validate checks that required fields are set for the chosen backend
func (s *StorageConfig) Validate() error {
	switch s.Backend {
	case "memory", "sqlite":
		return nil
	case "postgres":
		if s.DSN == "" {
			return fmt.Errorf("dsn is required for the postgres backend")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend '%s' (expected 'memory', 'sqlite' or 'postgres')", s.Backend)
	}
}
