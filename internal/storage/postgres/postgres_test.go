package postgres

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/racesim/internal/config"
	"github.com/OCAP2/racesim/internal/database"
	"github.com/OCAP2/racesim/internal/model"
	"github.com/OCAP2/racesim/pkg/core"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nothing listens on port 1
var unreachable = config.DBConfig{Host: "127.0.0.1", Port: "1", Username: "u", Password: "p", Database: "racesim"}

func TestNew(t *testing.T) {
	b := New(Dependencies{DB: unreachable, Logger: zerolog.Nop()})
	require.NotNil(t, b)
	require.NoError(t, b.Close())
}

func TestInit_FallsBackToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.db")
	b := New(Dependencies{DB: unreachable, FallbackPath: path, Logger: zerolog.Nop(), Version: "test"})
	require.NoError(t, b.Init())
	defer b.Close()

	assert.True(t, b.Local())
	assert.Equal(t, "sqlite", b.DB().Name())

	s := &core.Session{ID: ksuid.New().String(), Stage: core.StageRacing, Track: "fallback", Drivers: []string{"a"}, StartTime: time.Now()}
	require.NoError(t, b.StartSession(s))
	require.NoError(t, b.EndSession(&core.SessionResult{SessionID: s.ID, Cars: []core.CarResult{{Car: 0, Driver: "a"}}}))

	disk, err := database.GetSqliteDB(path)
	require.NoError(t, err)
	var sessions int64
	disk.Model(&model.Session{}).Where("id = ?", s.ID).Count(&sessions)
	assert.Equal(t, int64(1), sessions)
}
