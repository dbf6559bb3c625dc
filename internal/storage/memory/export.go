// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/OCAP2/racesim/pkg/core"
)

// FormatVersion is written to every export
const FormatVersion = "1"

// SessionExport is the root JSON structure
type SessionExport struct {
	Version     string     `json:"version"`
	SessionID   string     `json:"sessionId"`
	Stage       string     `json:"stage"`
	Index       int        `json:"index"`
	Track       string     `json:"track"`
	TrackLength float64    `json:"trackLength"`
	Outline     string     `json:"outline,omitempty"`
	Laps        int        `json:"laps"`
	DeltaTime   float64    `json:"deltaTime"`
	Seed        uint32     `json:"seed"`
	Tag         string     `json:"tag,omitempty"`
	StartTime   time.Time  `json:"startTime"`
	SimTime     float64    `json:"simTime"`
	Ticks       int        `json:"ticks"`
	Cancelled   bool       `json:"cancelled"`
	Record      RecordJSON `json:"record"`
	Cars        []CarJSON  `json:"cars"`
	Collisions  [][]any    `json:"collisions"`
}

// RecordJSON is the lap record at the end of the session
type RecordJSON struct {
	Speed  float64 `json:"speed"`
	Driver string  `json:"driver"`
}

// CarJSON is one car and its history
type CarJSON struct {
	ID        int         `json:"id"`
	Driver    string      `json:"driver"`
	Result    *ResultJSON `json:"result,omitempty"`
	Laps      [][]any     `json:"laps"`
	Pits      [][]any     `json:"pits"`
	Positions [][]any     `json:"positions"`
	Retired   []any       `json:"retired,omitempty"`
}

// ResultJSON is the end-of-session line of a car
type ResultJSON struct {
	Finish       int       `json:"finish"`
	Started      int       `json:"started"`
	Laps         int       `json:"laps"`
	LapsLed      int       `json:"lapsLed"`
	AvgSpeed     float64   `json:"avgSpeed"`
	BestLapSpeed float64   `json:"bestLapSpeed"`
	MaxSpeed     float64   `json:"maxSpeed"`
	Damage       int       `json:"damage"`
	Fuel         float64   `json:"fuel"`
	PitStops     int       `json:"pitStops"`
	Done         bool      `json:"done"`
	Out          bool      `json:"out"`
	DNQ          bool      `json:"dnq"`
	Points       int       `json:"points"`
	LapTimes     []float64 `json:"lapTimes"`
}

// safeName keeps file names portable
func safeName(s string) string {
	return strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_").Replace(s)
}

// exportJSON writes the session data to a (gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	base := fmt.Sprintf("%s_%s_%s", safeName(b.session.Track), b.session.Stage, b.session.StartTime.Format("20060102_150405"))
	ext := ".json"
	if b.cfg.CompressOutput {
		ext = ".json.gz"
	}

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// sessions started in the same second get a counter
	outputPath := filepath.Join(b.cfg.OutputDir, base+ext)
	for n := 2; ; n++ {
		if _, err := os.Stat(outputPath); errors.Is(err, fs.ErrNotExist) {
			break
		}
		outputPath = filepath.Join(b.cfg.OutputDir, fmt.Sprintf("%s_%d%s", base, n, ext))
	}

	var err error
	if b.cfg.CompressOutput {
		err = b.writeGzipJSON(outputPath, export)
	} else {
		err = b.writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	b.lastMetadata = core.UploadMetadata{
		TrackName:   b.session.Track,
		SessionName: fmt.Sprintf("%s %d", b.session.Stage, b.session.Index+1),
		Duration:    export.SimTime,
		Tag:         b.session.Tag,
	}
	return nil
}

func (b *Backend) buildExport() SessionExport {
	s := b.session
	export := SessionExport{
		Version:     FormatVersion,
		SessionID:   s.ID,
		Stage:       s.Stage.String(),
		Index:       s.Index,
		Track:       s.Track,
		TrackLength: s.TrackLength,
		Outline:     s.Outline,
		Laps:        s.Laps,
		DeltaTime:   s.DeltaTime,
		Seed:        s.Seed,
		Tag:         s.Tag,
		StartTime:   s.StartTime,
		Cars:        make([]CarJSON, 0, len(b.cars)),
		Collisions:  make([][]any, 0, len(b.collisions)),
	}

	results := map[int]core.CarResult{}
	if r := b.result; r != nil {
		export.SimTime = r.SimTime
		export.Ticks = r.Ticks
		export.Cancelled = r.Cancelled
		export.Record = RecordJSON{Speed: r.Record.Speed, Driver: r.Record.Driver}
		for _, c := range r.Cars {
			results[c.Car] = c
		}
	}

	ids := make([]int, 0, len(b.cars))
	for id := range b.cars {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		record := b.cars[id]
		car := CarJSON{
			ID:        record.Car,
			Driver:    record.Driver,
			Laps:      make([][]any, 0, len(record.Laps)),
			Pits:      make([][]any, 0, len(record.Pits)),
			Positions: make([][]any, 0, len(record.Samples)),
		}
		if c, ok := results[id]; ok {
			if car.Driver == "" {
				car.Driver = c.Driver
			}
			car.Result = &ResultJSON{
				Finish:       c.Finish,
				Started:      c.Started,
				Laps:         c.Laps,
				LapsLed:      c.LapsLed,
				AvgSpeed:     c.AvgSpeed,
				BestLapSpeed: c.BestLapSpeed,
				MaxSpeed:     c.MaxSpeed,
				Damage:       c.Damage,
				Fuel:         c.Fuel,
				PitStops:     c.PitStops,
				Done:         c.Done,
				Out:          c.Out,
				DNQ:          c.DNQ,
				Points:       c.Points,
				LapTimes:     c.LapTimes,
			}
		}

		// Format: [lap, time, lapTime, lapSpeed, position, fuel, damage]
		for _, l := range record.Laps {
			car.Laps = append(car.Laps, []any{l.Lap, l.Time, l.LapTime, l.LapSpeed, l.Position, l.Fuel, l.Damage})
		}

		// Format: [time, lap, state, repair, fuel, duration]
		for _, p := range record.Pits {
			car.Pits = append(car.Pits, []any{p.Time, p.Lap, p.State.String(), p.Repair, p.Fuel, p.Duration})
		}

		// Format: [time, [x, y], heading, speed, lap, position]
		for _, smp := range record.Samples {
			car.Positions = append(car.Positions, []any{
				smp.Time,
				[]float64{smp.X, smp.Y},
				smp.Heading,
				smp.Speed,
				smp.Lap,
				smp.Position,
			})
		}

		// Format: [time, lap, reason]
		if r := record.Retired; r != nil {
			car.Retired = []any{r.Time, r.Lap, r.Reason}
		}

		export.Cars = append(export.Cars, car)
	}

	// Format: [time, car, other, damage, otherDamage, [x, y]]
	for _, c := range b.collisions {
		export.Collisions = append(export.Collisions, []any{
			c.Time, c.Car, c.Other, c.Damage, c.OtherDamage, []float64{c.X, c.Y},
		})
	}

	return export
}

func (b *Backend) writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
