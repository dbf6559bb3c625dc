package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/OCAP2/racesim/internal/config"
	"github.com/OCAP2/racesim/internal/influx"
	"github.com/OCAP2/racesim/internal/race"
	"github.com/OCAP2/racesim/internal/storage"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// liveStreamPath is appended to the results server URL when no websocket URL
// is configured.
const liveStreamPath = "/api/live"

func createStorageBackend(storageCfg config.StorageConfig, opts race.Options) (storage.Backend, error) {
	if storageCfg.Type == "websocket" && storageCfg.WebSocket.URL == "" {
		apiCfg := config.GetAPIConfig()
		storageCfg.WebSocket.URL = httpToWS(apiCfg.ServerURL) + liveStreamPath
		if storageCfg.WebSocket.Secret == "" {
			storageCfg.WebSocket.Secret = apiCfg.APIKey
		}
		Logger.Info("Streaming to results server", "url", storageCfg.WebSocket.URL)
	}

	return storage.NewBackend(storageCfg, storage.Dependencies{
		LogManager:    SlogManager,
		Logger:        zerologger(),
		DB:            config.GetDBConfig(),
		SessionConfig: sessionConfig(opts),
		Version:       Version,
	})
}

// sessionConfig is the copy of the options stored with every session row.
func sessionConfig(opts race.Options) map[string]any {
	return map[string]any{
		"deltaTime":          opts.Sim.DeltaTime,
		"surface":            opts.Sim.Model.Surface.String(),
		"powerTarget":        opts.Sim.Model.PowerTarget,
		"randomMotion":       opts.Sim.RandomMotion,
		"sideVision":         opts.Sim.SideVision,
		"laps":               opts.Sim.Laps,
		"miles":              opts.Miles,
		"practiceLaps":       opts.Sim.PracticeLaps,
		"qualifyingLaps":     opts.Sim.QualifyingLaps,
		"qualifyingMode":     opts.Sim.QualifyingMode.String(),
		"qualifyingSessions": opts.QualifyingSessions,
		"races":              opts.Races,
		"startOrder":         opts.StartOrder.String(),
		"seed":               opts.Seed,
	}
}

// connectInflux returns nil when influx is disabled. A server that does not
// answer leaves the manager writing to its gzip backup file.
func connectInflux() *influx.Manager {
	if !viper.GetBool("influx.enabled") {
		return nil
	}
	backup := filepath.Join(
		viper.GetString("logsDir"),
		fmt.Sprintf("influx_backup.%s.lp.gz", time.Now().Format("20060102_150405")),
	)
	m := influx.NewManager(zerologger(), backup)
	if err := m.Connect(); err != nil {
		Logger.Error("Failed to set up InfluxDB", "error", err)
		return nil
	}
	return m
}

// zerologger writes console-formatted lines to the log file, tagged with the
// running session.
func zerologger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("logLevel")))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        LogOut,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}).Level(level).With().Timestamp().Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			if sessionContext.Active() {
				e.Str("session", sessionContext.GetSession().ID)
			}
		}))
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
