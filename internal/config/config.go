package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "racesim.cfg.json"

// SimConfig holds the physics and timestep settings
type SimConfig struct {
	DeltaTime    float64 `json:"deltaTime" mapstructure:"deltaTime"`
	Seed         uint32  `json:"seed" mapstructure:"seed"`
	PowerTarget  float64 `json:"powerTarget" mapstructure:"powerTarget"`
	Surface      int     `json:"surface" mapstructure:"surface"`
	RandomMotion bool    `json:"randomMotion" mapstructure:"randomMotion"`
	SideVision   bool    `json:"sideVision" mapstructure:"sideVision"`
}

// RaceConfig holds the season layout and the field
type RaceConfig struct {
	Laps               int      `json:"laps" mapstructure:"laps"`
	Miles              float64  `json:"miles" mapstructure:"miles"`
	Races              int      `json:"races" mapstructure:"races"`
	PracticeLaps       int      `json:"practiceLaps" mapstructure:"practiceLaps"`
	QualifyingLaps     int      `json:"qualifyingLaps" mapstructure:"qualifyingLaps"`
	QualifyingSessions int      `json:"qualifyingSessions" mapstructure:"qualifyingSessions"`
	QualifyingMode     string   `json:"qualifyingMode" mapstructure:"qualifyingMode"`
	StartOrder         string   `json:"startOrder" mapstructure:"startOrder"`
	Drivers            []string `json:"drivers" mapstructure:"drivers"`
	Track              string   `json:"track" mapstructure:"track"`
	Movie              string   `json:"movie" mapstructure:"movie"`
	Replay             string   `json:"replay" mapstructure:"replay"`
	SampleEvery        int      `json:"sampleEvery" mapstructure:"sampleEvery"`
	Anchor             string   `json:"anchor" mapstructure:"anchor"` // "long,lat" of the track origin
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// WebSocketConfig holds live stream settings
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// DBConfig holds the Postgres connection
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds the InfluxDB connection
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// GraylogConfig holds the GELF log sink
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// APIConfig holds the results server settings
type APIConfig struct {
	ServerURL string `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string `json:"apiKey" mapstructure:"apiKey"`
	Upload    bool   `json:"upload" mapstructure:"upload"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers the default of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "INFO")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("defaultTag", "Race")

	viper.SetDefault("sim.deltaTime", 0.0549)
	viper.SetDefault("sim.seed", 1)
	viper.SetDefault("sim.powerTarget", 0.9975)
	viper.SetDefault("sim.surface", 1)
	viper.SetDefault("sim.randomMotion", true)
	viper.SetDefault("sim.sideVision", false)

	viper.SetDefault("race.laps", 10)
	viper.SetDefault("race.miles", 0)
	viper.SetDefault("race.races", 1)
	viper.SetDefault("race.practiceLaps", 0)
	viper.SetDefault("race.qualifyingLaps", 0)
	viper.SetDefault("race.qualifyingSessions", 1)
	viper.SetDefault("race.qualifyingMode", "bestlap")
	viper.SetDefault("race.startOrder", "random")
	viper.SetDefault("race.drivers", []string{"Tutorial4", "Gruppe12"})
	viper.SetDefault("race.track", "")
	viper.SetDefault("race.movie", "")
	viper.SetDefault("race.replay", "")
	viper.SetDefault("race.sampleEvery", 9)
	viper.SetDefault("race.anchor", "")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./results")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.websocket.url", "")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "racesim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "racesim")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "racesim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", false)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSimConfig returns the simulation settings.
func GetSimConfig() SimConfig {
	return SimConfig{
		DeltaTime:    viper.GetFloat64("sim.deltaTime"),
		Seed:         viper.GetUint32("sim.seed"),
		PowerTarget:  viper.GetFloat64("sim.powerTarget"),
		Surface:      viper.GetInt("sim.surface"),
		RandomMotion: viper.GetBool("sim.randomMotion"),
		SideVision:   viper.GetBool("sim.sideVision"),
	}
}

// GetRaceConfig returns the race settings.
func GetRaceConfig() RaceConfig {
	return RaceConfig{
		Laps:               viper.GetInt("race.laps"),
		Miles:              viper.GetFloat64("race.miles"),
		Races:              viper.GetInt("race.races"),
		PracticeLaps:       viper.GetInt("race.practiceLaps"),
		QualifyingLaps:     viper.GetInt("race.qualifyingLaps"),
		QualifyingSessions: viper.GetInt("race.qualifyingSessions"),
		QualifyingMode:     viper.GetString("race.qualifyingMode"),
		StartOrder:         viper.GetString("race.startOrder"),
		Drivers:            viper.GetStringSlice("race.drivers"),
		Track:              viper.GetString("race.track"),
		Movie:              viper.GetString("race.movie"),
		Replay:             viper.GetString("race.replay"),
		SampleEvery:        viper.GetInt("race.sampleEvery"),
		Anchor:             viper.GetString("race.anchor"),
	}
}

// GetStorageConfig returns the storage settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetDBConfig returns the Postgres settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns the GELF log sink settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetAPIConfig returns the results server settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
		Upload:    viper.GetBool("api.upload"),
	}
}
