// internal/storage/factory.go
package storage

import (
	"fmt"
	"path/filepath"

	"github.com/OCAP2/racesim/internal/config"
	"github.com/OCAP2/racesim/internal/logging"
	"github.com/OCAP2/racesim/internal/storage/memory"
	"github.com/OCAP2/racesim/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/racesim/internal/storage/sqlite"
	"github.com/OCAP2/racesim/internal/storage/websocket"
	"github.com/rs/zerolog"
)

// DefaultDumpFile is the SQLite dump written under the output directory
// when no dump path is configured.
const DefaultDumpFile = "racesim.db"

// Dependencies carries what the database-backed backends need.
type Dependencies struct {
	LogManager    *logging.SlogManager
	Logger        zerolog.Logger
	DB            config.DBConfig
	SessionConfig any // stored with every session row
	Version       string
}

// NewBackend creates a storage backend based on configuration.
// Type "none" yields a nil Backend.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}

	switch cfg.Type {
	case "postgres":
		return postgres.New(postgres.Dependencies{
			DB:            deps.DB,
			FallbackPath:  dumpPath(cfg),
			LogManager:    deps.LogManager,
			Logger:        deps.Logger,
			SessionConfig: deps.SessionConfig,
			Version:       deps.Version,
		}), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval:  cfg.SQLite.DumpInterval,
			DumpPath:      dumpPath(cfg),
			SessionConfig: deps.SessionConfig,
			Version:       deps.Version,
		}, deps.LogManager)
	case "websocket":
		return websocket.New(websocket.Config{
			URL:    cfg.WebSocket.URL,
			Secret: cfg.WebSocket.Secret,
		}, deps.LogManager.Logger()), nil
	case "none":
		return nil, nil
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

func dumpPath(cfg config.StorageConfig) string {
	if cfg.SQLite.DumpPath != "" {
		return cfg.SQLite.DumpPath
	}
	return filepath.Join(cfg.Memory.OutputDir, DefaultDumpFile)
}
