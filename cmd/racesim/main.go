package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/OCAP2/racesim/internal/api"
	"github.com/OCAP2/racesim/internal/config"
	"github.com/OCAP2/racesim/internal/dispatcher"
	"github.com/OCAP2/racesim/internal/driver"
	"github.com/OCAP2/racesim/internal/logging"
	"github.com/OCAP2/racesim/internal/monitor"
	"github.com/OCAP2/racesim/internal/movie"
	intOtel "github.com/OCAP2/racesim/internal/otel"
	"github.com/OCAP2/racesim/internal/race"
	"github.com/OCAP2/racesim/internal/session"
	"github.com/OCAP2/racesim/internal/storage"
	"github.com/OCAP2/racesim/internal/track"
	"github.com/OCAP2/racesim/internal/worker"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

const appName = "racesim"

// files written next to the storage output
const (
	reportTextFile = "season.txt"
	reportJSONFile = "season.json"
)

var (
	SlogManager *logging.SlogManager
	Logger      *slog.Logger

	OTelProvider *intOtel.Provider

	// LogOut receives the zerolog output of the database and influx managers
	LogOut io.Writer = os.Stdout

	sessionContext = session.NewContext()
	orchestrator   atomic.Pointer[race.Orchestrator]
)

func main() {
	flags := newFlagSet()
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if v, _ := flags.GetBool("version"); v {
		fmt.Printf("%s %s (built %s)\n", appName, Version, BuildDate)
		return
	}
	if l, _ := flags.GetBool("list-drivers"); l {
		for _, name := range driver.Names() {
			fmt.Println(name)
		}
		return
	}

	configDir, _ := flags.GetString("config")
	closeLog := setupLogging(configDir, time.Now())
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		Logger.Error("Run failed", "error", err)
		closeLog()
		os.Exit(1)
	}
}

// newFlagSet declares the command line. Flags bound to a config key
// override the config file when set.
func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.StringP("config", "c", ".", "directory holding "+config.FileName)
	fs.Bool("version", false, "print the version and exit")
	fs.Bool("list-drivers", false, "print the registered drivers and exit")

	fs.StringP("track", "t", "", "track file (.trk), empty for the built-in oval")
	fs.StringSliceP("drivers", "d", nil, "comma separated driver names")
	fs.IntP("laps", "l", 0, "laps per race")
	fs.IntP("races", "r", 0, "number of races")
	fs.Int("qualifying-laps", 0, "qualifying laps, 0 disables qualifying")
	fs.Int("practice-laps", 0, "practice laps")
	fs.Uint32("seed", 0, "random seed")
	fs.String("start-order", "", "keep, random or reverse")
	fs.String("movie", "", "record the first race to this file")
	fs.String("replay", "", "replay the first race from this movie")
	fs.String("storage", "", "memory, sqlite, postgres, websocket or none")

	bind := map[string]string{
		"track":           "race.track",
		"drivers":         "race.drivers",
		"laps":            "race.laps",
		"races":           "race.races",
		"qualifying-laps": "race.qualifyingLaps",
		"practice-laps":   "race.practiceLaps",
		"seed":            "sim.seed",
		"start-order":     "race.startOrder",
		"movie":           "race.movie",
		"replay":          "race.replay",
		"storage":         "storage.type",
	}
	for flag, key := range bind {
		_ = viper.BindPFlag(key, fs.Lookup(flag))
	}
	return fs
}

// setupLogging loads the config, opens the log file and wires slog to it and
// to OTel when enabled. The returned func flushes and closes everything.
func setupLogging(configDir string, start time.Time) func() {
	SlogManager = logging.NewSlogManager()
	SlogManager.SetContextProvider(logAttrs)
	SlogManager.Setup(nil, "INFO", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "file", viper.ConfigFileUsed())
	}

	logPath := logging.LogFilePath(viper.GetString("logsDir"), appName, start)
	logFile, err := logging.OpenLogFile(logPath)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", logPath)
		logFile = nil
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled && logFile != nil {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			Version:      Version,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
			Attributes: map[string]string{
				"race.track": viper.GetString("race.track"),
				"race.seed":  viper.GetString("sim.seed"),
				"race.tag":   viper.GetString("defaultTag"),
			},
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		} else {
			Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	var sinks []io.Writer
	if logFile != nil {
		sinks = append(sinks, logFile)
	}
	graylog := connectGraylog()
	if graylog != nil {
		sinks = append(sinks, graylog)
	}
	if len(sinks) > 0 {
		LogOut = io.MultiWriter(sinks...)
		if OTelProvider != nil {
			SlogManager.Setup(LogOut, viper.GetString("logLevel"), OTelProvider.LoggerProvider())
		} else {
			SlogManager.Setup(LogOut, viper.GetString("logLevel"), nil)
		}
	}
	Logger = SlogManager.Logger()
	Logger.Info("Starting up", "version", Version, "log", logPath)

	var once atomic.Bool
	return func() {
		if !once.CompareAndSwap(false, true) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if OTelProvider != nil {
			if err := OTelProvider.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "otel shutdown: %v\n", err)
			}
		}
		_ = SlogManager.Flush(ctx)
		if graylog != nil {
			_ = graylog.Close()
		}
		if logFile != nil {
			_ = logFile.Close()
		}
	}
}

// connectGraylog returns a GELF writer when graylog is enabled. Writes are
// UDP, so an absent server only loses the copies.
func connectGraylog() *gelf.Writer {
	cfg := config.GetGraylogConfig()
	if !cfg.Enabled {
		return nil
	}
	w, err := gelf.NewWriter(cfg.Address)
	if err != nil {
		Logger.Error("Failed to connect to Graylog", "error", err, "address", cfg.Address)
		return nil
	}
	w.Facility = appName
	Logger.Info("Sending logs to Graylog", "address", cfg.Address)
	return w
}

// logAttrs decorates every record with the running session and its tick.
func logAttrs() []slog.Attr {
	attrs := sessionContext.LogAttrs()
	if attrs == nil {
		return nil
	}
	if o := orchestrator.Load(); o != nil {
		attrs = append(attrs, slog.Int("tick", o.Status().Tick))
	}
	return attrs
}

func run(ctx context.Context) error {
	opts, err := buildOptions()
	if err != nil {
		return err
	}
	raceCfg := config.GetRaceConfig()
	storageCfg := config.GetStorageConfig()

	t, err := loadTrack(raceCfg.Track)
	if err != nil {
		return err
	}
	opts.Outline = trackOutline(t, raceCfg.Anchor)

	drivers, err := driver.NewAll(raceCfg.Drivers)
	if err != nil {
		return err
	}
	Logger.Info("Field ready", "track", t.Name, "cars", len(drivers), "laps", opts.Sim.Laps, "races", opts.Races)

	checkServerStatus(ctx)

	backend, err := createStorageBackend(storageCfg, opts)
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if backend != nil {
		if err := backend.Init(); err != nil {
			return fmt.Errorf("failed to initialize storage backend: %w", err)
		}
		defer func() {
			if err := backend.Close(); err != nil {
				Logger.Error("Failed to close storage backend", "error", err)
			}
		}()
		Logger.Info("Storage backend initialized", "type", storageCfg.Type)
	} else {
		Logger.Info("Storage disabled")
	}

	influxManager := connectInflux()
	if influxManager != nil {
		defer func() {
			if err := influxManager.Close(); err != nil {
				Logger.Error("Failed to close InfluxDB", "error", err)
			}
		}()
	}

	eventDispatcher, err := dispatcher.New(logging.NewKVLogger(zerologger(), "dispatcher"))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	defer eventDispatcher.Close()

	workerManager := worker.NewManager(worker.Dependencies{
		LogManager:     SlogManager,
		SessionContext: sessionContext,
		Influx:         influxManager,
	}, backend)
	workerManager.RegisterHandlers(eventDispatcher)
	sink := worker.NewSink(eventDispatcher, Logger)

	deps := race.Dependencies{Sink: sink, Logger: Logger}
	var recorder *movie.Recorder
	if raceCfg.Movie != "" {
		recorder = movie.NewRecorder(t.Name, opts.Sim.DeltaTime)
		deps.Tracer = recorder
	}
	if raceCfg.Replay != "" {
		player, err := movie.Open(raceCfg.Replay)
		if err != nil {
			return fmt.Errorf("failed to open replay: %w", err)
		}
		deps.Replayer = player
		Logger.Info("Replaying first race", "file", raceCfg.Replay, "frames", player.Frames())
	}

	o, err := race.New(t, drivers, opts, deps)
	if err != nil {
		return err
	}
	orchestrator.Store(o)

	monitorService := monitor.NewService(monitor.Dependencies{
		LogManager:     SlogManager,
		SessionContext: sessionContext,
		WorkerManager:  workerManager,
		Status:         o.Status,
		QueueSizes:     eventDispatcher.QueueSizes,
		Performance:    performanceRecorder(backend),
		Influx:         influxManager,
		OutputDir:      storageCfg.Memory.OutputDir,
	})
	if err := monitorService.Start(); err != nil {
		Logger.Warn("Failed to start status monitor", "error", err)
	}

	results, runErr := o.Run(ctx)
	monitorService.Stop()
	if ctx.Err() != nil {
		Logger.Warn("Interrupted, writing partial results")
	}
	if n := sink.Dropped(); n > 0 {
		Logger.Warn("Events dropped during the run", "count", n)
	}
	for cmd, st := range eventDispatcher.Stats() {
		if st.Failed > 0 || st.Dropped > 0 {
			Logger.Warn("Event handler trouble", "command", cmd, "processed", st.Processed, "failed", st.Failed, "dropped", st.Dropped)
		}
	}

	if recorder != nil && recorder.Ticks() > 0 {
		if err := recorder.Save(raceCfg.Movie); err != nil {
			Logger.Error("Failed to save movie", "error", err, "path", raceCfg.Movie)
		} else {
			Logger.Info("Saved movie", "path", raceCfg.Movie, "ticks", recorder.Ticks())
		}
	}

	if len(results) > 0 {
		if err := writeReport(os.Stdout, results, storageCfg.Memory.OutputDir); err != nil {
			Logger.Error("Failed to write report", "error", err)
		}
	}

	if viper.GetBool("api.upload") {
		uploadResults(backend)
	}
	return runErr
}

// uploadResults sends the last exported file to the results server.
func uploadResults(backend storage.Backend) {
	up, ok := backend.(storage.Uploadable)
	if !ok {
		Logger.Warn("Storage backend has nothing to upload")
		return
	}
	path := up.GetExportedFilePath()
	if path == "" {
		Logger.Warn("No exported results to upload")
		return
	}

	cfg := config.GetAPIConfig()
	client := api.New(cfg.ServerURL, cfg.APIKey)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := client.Healthcheck(ctx); err != nil {
		Logger.Error("Results server unavailable, skipping upload", "error", err)
		return
	}
	if err := client.Upload(ctx, path, up.GetExportMetadata()); err != nil {
		Logger.Error("Failed to upload results", "error", err, "path", path)
		return
	}
	Logger.Info("Uploaded results", "path", path)
}

// checkServerStatus logs whether the results server answers.
func checkServerStatus(ctx context.Context) {
	cfg := config.GetAPIConfig()
	if cfg.ServerURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := api.New(cfg.ServerURL, cfg.APIKey).Healthcheck(ctx); err != nil {
		Logger.Info("Results server is offline")
	} else {
		Logger.Info("Results server is online")
	}
}

func performanceRecorder(b storage.Backend) monitor.PerformanceRecorder {
	if p, ok := b.(monitor.PerformanceRecorder); ok {
		return p
	}
	return nil
}

func loadTrack(path string) (*track.Track, error) {
	if path == "" {
		return track.Oval(), nil
	}
	t, err := track.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load track %s: %w", filepath.Base(path), err)
	}
	return t, nil
}
