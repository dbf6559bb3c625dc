package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/OCAP2/racesim/pkg/core"
)

const (
	BucketRace = "race_data"
	BucketSim  = "sim_performance"
)

// DefaultBucketNames are the InfluxDB buckets the simulator writes to.
var DefaultBucketNames = []string{BucketRace, BucketSim}

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	backupFile *os.File
	backupMu   sync.Mutex
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// Connect establishes a connection to InfluxDB.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influxdb.Enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(context.Background())

	if err != nil || !running {
		m.IsValid = false
		// create backup writer
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %v", err)
			}
			m.backupFile = file
			m.BackupWriter = gzip.NewWriter(file)
		}
	} else {
		m.IsValid = true
	}

	if m.IsValid {
		err = m.setupOrganizationAndBuckets()
		if err != nil {
			return err
		}
		m.CreateWriters()
		m.Logger.Info().Msg("InfluxDB client initialized")
	} else {
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
	}

	return nil
}

func (m *Manager) setupOrganizationAndBuckets() error {
	ctx := context.Background()
	orgName := viper.GetString("influx.org")

	// ensure org exists
	_, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		_, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// get influxOrg
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Error().Err(err).Str("org", orgName).Msg("Error getting organization")
		return err
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		_, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket)
		if err != nil {
			m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

			rule := domain.RetentionRuleTypeExpire
			_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
				Type:         &rule,
				EverySeconds: 60 * 60 * 24 * 90, // 90 days
			})
			if err != nil {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
				return err
			}
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Logger.Trace().Str("bucket", bucket).Msg("Creating InfluxDB writer")
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)

		m.Logger.Trace().Str("bucket", bucket).Msg("InfluxDB writer created")
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		if _, ok := m.Writers[bucket]; !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		m.Writers[bucket].WritePoint(point)
	} else {
		if m.BackupWriter == nil {
			return fmt.Errorf("influxDB client not initialized and backup writer not available")
		}

		// the encoded line already ends in a newline
		lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
		m.backupMu.Lock()
		_, err := m.BackupWriter.Write([]byte(lineProtocol))
		m.backupMu.Unlock()
		if err != nil {
			return fmt.Errorf("error writing to InfluxDB backup file: %s", err)
		}
	}

	return nil
}

// Close flushes pending writes, closes the backup file and the client.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
	if m.BackupWriter != nil {
		err := m.BackupWriter.Close()
		if m.backupFile != nil {
			if cerr := m.backupFile.Close(); err == nil {
				err = cerr
			}
		}
		return err
	}
	return nil
}

// RecordLap writes a completed lap to the race bucket.
func (m *Manager) RecordLap(ctx context.Context, e *core.LapEvent) error {
	return m.WritePoint(ctx, BucketRace, LapPoint(e, time.Now()))
}

// RecordSample writes a car sample to the race bucket.
func (m *Manager) RecordSample(ctx context.Context, e *core.CarSample) error {
	return m.WritePoint(ctx, BucketRace, SamplePoint(e, time.Now()))
}

// RecordPitStop writes a finished pit stop to the race bucket.
func (m *Manager) RecordPitStop(ctx context.Context, e *core.PitEvent) error {
	return m.WritePoint(ctx, BucketRace, PitPoint(e, time.Now()))
}

// LapPoint converts a lap to a point stamped at ts.
func LapPoint(e *core.LapEvent, ts time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint("lap",
		map[string]string{
			"session": e.SessionID,
			"stage":   e.Stage.String(),
			"driver":  e.Driver,
			"car":     strconv.Itoa(e.Car),
		},
		map[string]any{
			"lap":          e.Lap,
			"lap_time":     e.LapTime,
			"lap_speed":    e.LapSpeed,
			"position":     e.Position,
			"fuel":         e.Fuel,
			"fuel_mileage": e.FuelMileage,
			"damage":       e.Damage,
			"sim_time":     e.Time,
			"new_record":   e.NewRecord,
		},
		ts)
}

// SamplePoint converts a car sample to a point stamped at ts.
func SamplePoint(e *core.CarSample, ts time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint("car_state",
		map[string]string{
			"session": e.SessionID,
			"car":     strconv.Itoa(e.Car),
		},
		map[string]any{
			"x":        e.X,
			"y":        e.Y,
			"heading":  e.Heading,
			"speed":    e.Speed,
			"lap":      e.Lap,
			"distance": e.Distance,
			"fuel":     e.Fuel,
			"damage":   e.Damage,
			"position": e.Position,
			"sim_time": e.Time,
		},
		ts)
}

// PitPoint converts a pit event to a point stamped at ts.
func PitPoint(e *core.PitEvent, ts time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint("pit",
		map[string]string{
			"session": e.SessionID,
			"driver":  e.Driver,
			"car":     strconv.Itoa(e.Car),
			"state":   e.State.String(),
		},
		map[string]any{
			"lap":      e.Lap,
			"repair":   e.Repair,
			"fuel":     e.Fuel,
			"duration": e.Duration,
			"sim_time": e.Time,
		},
		ts)
}

// RecordPerformance writes a pipeline snapshot to the sim bucket.
func (m *Manager) RecordPerformance(ctx context.Context, sessionID string, tick int, simTime float64, queues map[string]int) error {
	return m.WritePoint(ctx, BucketSim, PerformancePoint(sessionID, tick, simTime, queues, time.Now()))
}

// PerformancePoint converts a pipeline snapshot to a point stamped at ts.
// Every queue becomes a "queue_<name>" field.
func PerformancePoint(sessionID string, tick int, simTime float64, queues map[string]int, ts time.Time) *influxdb2_write.Point {
	fields := map[string]any{
		"tick":     tick,
		"sim_time": simTime,
	}
	for name, n := range queues {
		fields["queue_"+name] = n
	}
	return influxdb2_write.NewPoint("performance",
		map[string]string{"session": sessionID},
		fields,
		ts)
}
