// internal/storage/memory/export_test.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OCAP2/racesim/internal/config"
	"github.com/OCAP2/racesim/pkg/core"
)

func testResult(s *core.Session) *core.SessionResult {
	return &core.SessionResult{
		SessionID: s.ID,
		Stage:     s.Stage,
		Track:     s.Track,
		SimTime:   321.5,
		Ticks:     5856,
		Cars: []core.CarResult{
			{Car: 1, Driver: "Gruppe12", Finish: 0, Started: 1, Laps: 10, Done: true, Points: 21, LapTimes: []float64{30, 29}},
			{Car: 0, Driver: "Tutorial4", Finish: 1, Started: 0, Laps: 4, Out: true},
		},
		Record: core.LapRecord{Speed: 210, Driver: "Gruppe12"},
	}
}

func readExport(t *testing.T, path string, compressed bool) SessionExport {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	var export SessionExport
	if compressed {
		gz, err := gzip.NewReader(f)
		if err != nil {
			t.Fatalf("gzip reader: %v", err)
		}
		defer gz.Close()
		err = json.NewDecoder(gz).Decode(&export)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		return export
	}
	if err := json.NewDecoder(f).Decode(&export); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return export
}

func TestBuildExport(t *testing.T) {
	b := New(config.MemoryConfig{})
	s := testSession()
	_ = b.StartSession(s)

	_ = b.RecordLap(&core.LapEvent{Car: 1, Lap: 1, Time: 31, LapTime: 30, LapSpeed: 116, Position: 1, Fuel: 140, Damage: 0})
	_ = b.RecordPitStop(&core.PitEvent{Car: 0, Lap: 3, Time: 95, State: core.PitStopped, Repair: 50, Fuel: 20, Duration: 8})
	_ = b.RecordCarSample(&core.CarSample{Car: 0, Time: .5, X: 100, Y: 5, Heading: 1.5, Speed: 80, Lap: 0, Position: 2})
	_ = b.RecordRetirement(&core.RetireEvent{Car: 0, Lap: 4, Time: 120, Reason: "damage"})
	_ = b.RecordCollision(&core.CollisionEvent{Car: 0, Other: 1, Time: 60, Damage: 40, OtherDamage: 10, X: 1, Y: 2})
	b.result = testResult(s)

	export := b.buildExport()

	if export.Version != FormatVersion {
		t.Errorf("expected version %s, got %s", FormatVersion, export.Version)
	}
	if export.Stage != "racing" || export.Track != "oval" {
		t.Errorf("unexpected header %s/%s", export.Stage, export.Track)
	}
	if export.SimTime != 321.5 || export.Ticks != 5856 {
		t.Errorf("unexpected timing %f/%d", export.SimTime, export.Ticks)
	}
	if export.Record.Driver != "Gruppe12" {
		t.Errorf("unexpected record %+v", export.Record)
	}
	if len(export.Cars) != 2 {
		t.Fatalf("expected 2 cars, got %d", len(export.Cars))
	}

	// sorted by id
	c0, c1 := export.Cars[0], export.Cars[1]
	if c0.ID != 0 || c1.ID != 1 {
		t.Fatalf("cars not sorted: %d, %d", c0.ID, c1.ID)
	}
	if c0.Result == nil || !c0.Result.Out || c0.Result.Finish != 1 {
		t.Errorf("unexpected result for car 0: %+v", c0.Result)
	}
	if len(c0.Pits) != 1 || c0.Pits[0][2] != "stopped" {
		t.Errorf("unexpected pits %v", c0.Pits)
	}
	if len(c0.Positions) != 1 {
		t.Errorf("expected 1 position, got %d", len(c0.Positions))
	}
	if len(c0.Retired) != 3 || c0.Retired[2] != "damage" {
		t.Errorf("unexpected retirement %v", c0.Retired)
	}
	if len(c1.Laps) != 1 || c1.Laps[0][0] != 1 {
		t.Errorf("unexpected laps %v", c1.Laps)
	}
	if c1.Result.Points != 21 {
		t.Errorf("expected 21 points, got %d", c1.Result.Points)
	}
	if len(export.Collisions) != 1 {
		t.Errorf("expected 1 collision, got %d", len(export.Collisions))
	}
}

func TestEndSession_WritesGzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	s := testSession()
	s.Track = "big oval"
	_ = b.StartSession(s)
	_ = b.RecordLap(&core.LapEvent{Car: 0, Lap: 1})

	if err := b.EndSession(testResult(s)); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	path := b.GetExportedFilePath()
	want := filepath.Join(dir, "big_oval_racing_20260524_120000.json.gz")
	if path != want {
		t.Errorf("expected %s, got %s", want, path)
	}

	export := readExport(t, path, true)
	if export.SessionID != s.ID {
		t.Errorf("unexpected session id %s", export.SessionID)
	}

	meta := b.GetExportMetadata()
	if meta.TrackName != "big oval" || meta.SessionName != "racing 1" || meta.Duration != 321.5 || meta.Tag != "Race" {
		t.Errorf("unexpected metadata %+v", meta)
	}

	// the session is closed after export
	if err := b.RecordLap(&core.LapEvent{}); err != ErrNoSession {
		t.Errorf("expected ErrNoSession after end, got %v", err)
	}
}

func TestEndSession_PlainJSONAndCounter(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})

	var paths []string
	for range 2 {
		s := testSession()
		_ = b.StartSession(s)
		if err := b.EndSession(testResult(s)); err != nil {
			t.Fatalf("EndSession: %v", err)
		}
		paths = append(paths, b.GetExportedFilePath())
	}

	if !strings.HasSuffix(paths[0], "oval_racing_20260524_120000.json") {
		t.Errorf("unexpected first path %s", paths[0])
	}
	if !strings.HasSuffix(paths[1], "oval_racing_20260524_120000_2.json") {
		t.Errorf("unexpected second path %s", paths[1])
	}
	export := readExport(t, paths[1], false)
	if len(export.Cars) != 2 {
		t.Errorf("expected 2 cars, got %d", len(export.Cars))
	}
}

func TestSafeName(t *testing.T) {
	if got := safeName(`a b:c/d\e`); got != "a_b_c_d_e" {
		t.Errorf("safeName = %s", got)
	}
}
