package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OCAP2/racesim/internal/config"
	"github.com/OCAP2/racesim/internal/race"
	"github.com/OCAP2/racesim/internal/report"
	"github.com/OCAP2/racesim/internal/track"
	"github.com/OCAP2/racesim/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	config.SetDefaults()
	Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	t.Cleanup(viper.Reset)
}

func TestHttpToWS(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://localhost:5000", "ws://localhost:5000"},
		{"https://results.example.com/", "wss://results.example.com"},
		{"ws://already", "ws://already"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, httpToWS(tt.in))
	}
}

func TestBuildOptions_Defaults(t *testing.T) {
	resetConfig(t)

	opts, err := buildOptions()
	require.NoError(t, err)
	assert.Equal(t, 10, opts.Sim.Laps)
	assert.Equal(t, 0.0549, opts.Sim.DeltaTime)
	assert.Equal(t, 0.9975, opts.Sim.Model.PowerTarget)
	assert.True(t, opts.Sim.RandomMotion)
	assert.Equal(t, 1, opts.Races)
	assert.Equal(t, race.StartRandom, opts.StartOrder)
	assert.Equal(t, core.QualifyBestLap, opts.Sim.QualifyingMode)
	assert.Equal(t, "Race", opts.Tag)
	assert.Equal(t, 9, opts.SampleEvery)
}

func TestBuildOptions_Overrides(t *testing.T) {
	resetConfig(t)
	viper.Set("race.laps", 0)
	viper.Set("race.miles", 50.0)
	viper.Set("race.startOrder", "reverse")
	viper.Set("race.qualifyingMode", "avgspeed")
	viper.Set("race.races", 0)

	opts, err := buildOptions()
	require.NoError(t, err)
	assert.Equal(t, 0, opts.Sim.Laps)
	assert.Equal(t, 50.0, opts.Miles)
	assert.Equal(t, race.StartReverse, opts.StartOrder)
	assert.Equal(t, core.QualifyAvgSpeed, opts.Sim.QualifyingMode)
	assert.Equal(t, 1, opts.Races, "at least one race runs")
}

func TestBuildOptions_Invalid(t *testing.T) {
	for key, value := range map[string]any{
		"sim.surface":         9,
		"race.startOrder":     "sideways",
		"race.qualifyingMode": "fastest",
	} {
		t.Run(key, func(t *testing.T) {
			resetConfig(t)
			viper.Set(key, value)
			_, err := buildOptions()
			assert.Error(t, err)
		})
	}
}

func TestBuildOptions_NoRaceLength(t *testing.T) {
	resetConfig(t)
	viper.Set("race.laps", 0)

	_, err := buildOptions()
	assert.ErrorContains(t, err, "race length not set")
}

func TestFlagsOverrideConfig(t *testing.T) {
	resetConfig(t)
	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--laps", "3", "-d", "Tutorial4,Reverse", "--storage", "none"}))

	cfg := config.GetRaceConfig()
	assert.Equal(t, 3, cfg.Laps)
	assert.Equal(t, []string{"Tutorial4", "Reverse"}, cfg.Drivers)
	assert.Equal(t, "none", config.GetStorageConfig().Type)
	assert.Equal(t, 1, cfg.Races, "unset flags keep the config value")
}

func TestTrackOutline(t *testing.T) {
	resetConfig(t)
	oval := track.Oval()

	local := trackOutline(oval, "")
	assert.True(t, strings.HasPrefix(local, "MULTILINESTRING"))

	anchored := trackOutline(oval, "-86.2353,39.7950")
	assert.NotEqual(t, local, anchored)

	assert.Equal(t, local, trackOutline(oval, "not,a,place"), "a bad anchor falls back to track feet")
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	results := []*core.SessionResult{{
		SessionID: "race-1",
		Stage:     core.StageRacing,
		Track:     "oval",
		Cars: []core.CarResult{
			{Car: 0, Driver: "Tutorial4", Finish: 0, Started: 1, Laps: 2, LapsLed: 2, Done: true},
			{Car: 1, Driver: "Gruppe12", Finish: 1, Started: 0, Laps: 2, Done: true},
		},
	}}

	var out bytes.Buffer
	require.NoError(t, writeReport(&out, results, dir))
	assert.Contains(t, out.String(), "Tutorial4")

	txt, err := os.ReadFile(filepath.Join(dir, reportTextFile))
	require.NoError(t, err)
	assert.Equal(t, out.String(), string(txt))

	data, err := os.ReadFile(filepath.Join(dir, reportJSONFile))
	require.NoError(t, err)
	var season report.Season
	require.NoError(t, json.Unmarshal(data, &season))
	require.Len(t, season.Standings, 2)
	assert.Equal(t, "Tutorial4", season.Standings[0].Driver)
}

func TestSessionConfig(t *testing.T) {
	opts := race.DefaultOptions()
	opts.StartOrder = race.StartKeep
	cfg := sessionConfig(opts)
	assert.Equal(t, "keep", cfg["startOrder"])
	assert.Equal(t, 10, cfg["laps"])
	_, err := json.Marshal(cfg)
	assert.NoError(t, err)
}
