// Package postgres implements the storage.Backend interface on PostgreSQL.
// When the server cannot be reached it falls back to an in-memory SQLite
// database that is dumped to disk after every session.
package postgres

import (
	"fmt"

	"github.com/OCAP2/racesim/internal/config"
	"github.com/OCAP2/racesim/internal/database"
	"github.com/OCAP2/racesim/internal/logging"
	gormstorage "github.com/OCAP2/racesim/internal/storage/gorm"
	"github.com/OCAP2/racesim/pkg/core"
	"github.com/rs/zerolog"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	DB            config.DBConfig
	FallbackPath  string // SQLite dump path used when Postgres is unavailable
	LogManager    *logging.SlogManager
	Logger        zerolog.Logger
	SessionConfig any
	Version       string
}

// Backend wraps the GORM backend with a managed connection.
type Backend struct {
	*gormstorage.Backend
	deps    Dependencies
	manager *database.Manager
}

// New creates a new Postgres storage backend. The connection is opened by Init.
func New(deps Dependencies) *Backend {
	m := database.NewManager(deps.Logger)
	m.SqliteFilePath = deps.FallbackPath
	return &Backend{deps: deps, manager: m}
}

// Init connects, then initializes the embedded GORM backend.
func (b *Backend) Init() error {
	if err := b.manager.Connect(b.deps.DB); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:            b.manager.DB,
		LogManager:    b.deps.LogManager,
		SessionConfig: b.deps.SessionConfig,
		Version:       b.deps.Version,
	})
	return b.Backend.Init()
}

// Local reports whether the backend fell back to SQLite.
func (b *Backend) Local() bool {
	return b.manager.ShouldSaveLocal
}

// EndSession stores the results and, on the SQLite fallback, dumps to disk.
func (b *Backend) EndSession(r *core.SessionResult) error {
	if err := b.Backend.EndSession(r); err != nil {
		return err
	}
	return b.dumpLocal()
}

// Close closes the embedded GORM backend and the connection.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if err := b.dumpLocal(); err != nil {
		return err
	}
	if b.manager.SqlDB != nil && !b.manager.ShouldSaveLocal {
		return b.manager.SqlDB.Close()
	}
	return nil
}

func (b *Backend) dumpLocal() error {
	if !b.manager.ShouldSaveLocal || b.manager.SqliteFilePath == "" {
		return nil
	}
	return b.manager.DumpMemoryToDisk()
}
