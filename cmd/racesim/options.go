package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OCAP2/racesim/internal/config"
	"github.com/OCAP2/racesim/internal/geo"
	"github.com/OCAP2/racesim/internal/physics"
	"github.com/OCAP2/racesim/internal/race"
	"github.com/OCAP2/racesim/internal/report"
	"github.com/OCAP2/racesim/internal/track"
	"github.com/OCAP2/racesim/pkg/core"

	"github.com/spf13/viper"
)

// buildOptions turns the sim and race config into orchestrator options.
func buildOptions() (race.Options, error) {
	simCfg := config.GetSimConfig()
	raceCfg := config.GetRaceConfig()

	opts := race.DefaultOptions()

	surface, err := physics.ParseSurface(simCfg.Surface)
	if err != nil {
		return opts, err
	}
	model := physics.NewModel(surface)
	model.PowerTarget = simCfg.PowerTarget

	mode, err := core.ParseQualifyingMode(raceCfg.QualifyingMode)
	if err != nil {
		return opts, err
	}
	order, err := race.ParseStartOrder(raceCfg.StartOrder)
	if err != nil {
		return opts, err
	}

	if simCfg.DeltaTime > 0 {
		opts.Sim.DeltaTime = simCfg.DeltaTime
	}
	opts.Sim.Model = model
	opts.Sim.RandomMotion = simCfg.RandomMotion
	opts.Sim.SideVision = simCfg.SideVision
	opts.Sim.Laps = raceCfg.Laps
	opts.Sim.PracticeLaps = raceCfg.PracticeLaps
	opts.Sim.QualifyingLaps = raceCfg.QualifyingLaps
	opts.Sim.QualifyingMode = mode

	if raceCfg.Laps <= 0 && raceCfg.Miles <= 0 {
		return opts, fmt.Errorf("race length not set: laps %d, miles %.1f", raceCfg.Laps, raceCfg.Miles)
	}
	opts.Miles = raceCfg.Miles
	opts.Seed = simCfg.Seed
	opts.Races = max(raceCfg.Races, 1)
	opts.QualifyingSessions = max(raceCfg.QualifyingSessions, 1)
	opts.StartOrder = order
	opts.SampleEvery = max(raceCfg.SampleEvery, 0)
	opts.Tag = viper.GetString("defaultTag")
	return opts, nil
}

// trackOutline renders the track walls as WKT, in lon/lat when anchor names
// a real-world origin and in track feet otherwise.
func trackOutline(t *track.Track, anchor string) string {
	a, ok, err := geo.ParseAnchor(anchor)
	if err != nil {
		Logger.Warn("Ignoring track anchor", "error", err, "anchor", anchor)
		ok = false
	}
	var p *geo.Projector
	if ok {
		if p, err = geo.NewProjector(a); err != nil {
			Logger.Warn("Ignoring track anchor", "error", err, "anchor", anchor)
			p = nil
		}
	}
	return geo.OutlineWKT(t, p)
}

// writeReport prints the season to w and saves a text and a JSON copy in
// dir when it is set.
func writeReport(w io.Writer, results []*core.SessionResult, dir string) error {
	season := report.Build(results)
	if err := season.WriteText(w); err != nil {
		return err
	}
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating report directory: %w", err)
	}

	txt, err := os.Create(filepath.Join(dir, reportTextFile))
	if err != nil {
		return err
	}
	if err := season.WriteText(txt); err != nil {
		txt.Close()
		return err
	}
	if err := txt.Close(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(season, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, reportJSONFile), data, 0o644)
}
