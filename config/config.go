// Package config loads the daemon's configuration: a TOML file for
// defaults (github.com/pelletier/go-toml/v2 - spec.md §6 names TOML
// explicitly as the on-disk configuration format), with the database
// settings, log level, scheduler tick, storage dir, asset roots and durable
// admission flag overridable by environment variables; actor, rules and
// runner settings come from the file only. Grounded on the
// teacher's config.LoadDBConfig/config.LoadAppConfig "defaults, then env
// override" shape, generalized from a photo-service's ad hoc env reads into
// one TOML-backed struct tree.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"catalogd/internal/rules"
	"catalogd/internal/runner"
)

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DBName   string `toml:"dbname"`
	SSL      string `toml:"sslmode"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSL)
}

// ServerConfig controls logging and the scheduler's timer cadence.
type ServerConfig struct {
	LogLevel          string `toml:"log_level"`
	SchedulerTickSecs int    `toml:"scheduler_tick_seconds"`
}

// ActorConfig sizes one operation kind's Actor (spec.md §4.4).
type ActorConfig struct {
	MaxTasks     int `toml:"max_tasks"`
	MaxQueueSize int `toml:"max_queue_size"`
}

// ActorsConfig sizes every operation kind's Actor.
type ActorsConfig struct {
	Thumbnail      ActorConfig `toml:"thumbnail"`
	ImageConvert   ActorConfig `toml:"image_convert"`
	VideoPackaging ActorConfig `toml:"video_packaging"`
	Indexing       ActorConfig `toml:"indexing"`
}

// RulesConfig mirrors internal/rules.Config for TOML decoding (kept
// separate from that package's type so the rules engine itself never
// depends on the config/TOML stack).
type RulesConfig struct {
	AcceptableVideoCodecs       []string `toml:"acceptable_video_codecs"`
	AcceptableAudioCodecs       []string `toml:"acceptable_audio_codecs"`
	AcceptableImageFormats      []string `toml:"acceptable_image_formats"`
	DefaultAudioTranscodeTarget string   `toml:"default_audio_transcode_target"`
	DefaultVideoTranscodeTarget string   `toml:"default_video_transcode_target"`
}

func (r RulesConfig) ToRules() rules.Config {
	return rules.Config{
		AcceptableVideoCodecs:       r.AcceptableVideoCodecs,
		AcceptableAudioCodecs:       r.AcceptableAudioCodecs,
		AcceptableImageFormats:      r.AcceptableImageFormats,
		DefaultAudioTranscodeTarget: r.DefaultAudioTranscodeTarget,
		DefaultVideoTranscodeTarget: r.DefaultVideoTranscodeTarget,
	}
}

// RunnerPaths mirrors internal/runner.Paths for TOML decoding.
type RunnerPaths struct {
	FFmpeg        string `toml:"ffmpeg"`
	FFprobe       string `toml:"ffprobe"`
	ShakaPackager string `toml:"shaka_packager"`
	MpdGenerator  string `toml:"mpd_generator"`
	Exiftool      string `toml:"exiftool"`
}

func (p RunnerPaths) ToRunnerPaths() runner.Paths {
	return runner.Paths{
		FFmpeg:        p.FFmpeg,
		FFprobe:       p.FFprobe,
		ShakaPackager: p.ShakaPackager,
		MpdGenerator:  p.MpdGenerator,
		Exiftool:      p.Exiftool,
	}
}

// AppConfig is the whole of the daemon's configuration tree.
type AppConfig struct {
	Database   DatabaseConfig `toml:"database"`
	Server     ServerConfig   `toml:"server"`
	Actors     ActorsConfig   `toml:"actors"`
	Rules      RulesConfig    `toml:"rules"`
	Runners    RunnerPaths    `toml:"runners"`
	AssetRoots []string       `toml:"asset_roots"`
	StorageDir string         `toml:"storage_dir"`

	// DurableAdmission additionally records thumbnail-job admission
	// through a River-backed front door (internal/actor.DurableFront) so
	// a crash between admission and pickup loses no work. Off by default
	// since it requires River's own schema (river_job) to already exist
	// in the target database, applied separately from catalog.Migrate.
	DurableAdmission bool `toml:"durable_admission"`
}

func defaultConfig() AppConfig {
	return AppConfig{
		Database: DatabaseConfig{
			Host: "localhost", Port: "5432", User: "postgres",
			Password: "postgres", DBName: "catalogd", SSL: "disable",
		},
		Server: ServerConfig{LogLevel: "info", SchedulerTickSecs: 30},
		Actors: ActorsConfig{
			Thumbnail:      ActorConfig{MaxTasks: 4, MaxQueueSize: 64},
			ImageConvert:   ActorConfig{MaxTasks: 2, MaxQueueSize: 64},
			VideoPackaging: ActorConfig{MaxTasks: 1, MaxQueueSize: 16},
			Indexing:       ActorConfig{MaxTasks: 2, MaxQueueSize: 8},
		},
		Rules: RulesConfig{
			AcceptableVideoCodecs:       []string{"av1", "vp9", "h264"},
			AcceptableAudioCodecs:       []string{"opus", "aac"},
			AcceptableImageFormats:      []string{"avif", "jpg"},
			DefaultAudioTranscodeTarget: "opus",
			DefaultVideoTranscodeTarget: "av1",
		},
		Runners:    runnerPathsFromDefault(),
		StorageDir: "./data/storage",
	}
}

func runnerPathsFromDefault() RunnerPaths {
	d := runner.DefaultPaths()
	return RunnerPaths{
		FFmpeg:        d.FFmpeg,
		FFprobe:       d.FFprobe,
		ShakaPackager: d.ShakaPackager,
		MpdGenerator:  d.MpdGenerator,
		Exiftool:      d.Exiftool,
	}
}

// Load reads path (if present) over a built-in default, then applies
// environment-variable overrides on top. A missing file is not an error -
// the daemon must still boot on bare defaults plus env vars alone, the way
// the teacher's LoadDBConfig/LoadAppConfig never require a .env file.
func Load(path string) (AppConfig, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		cfg.Database.Port = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.DBName = v
	}
	if v := os.Getenv("DB_SSL"); v != "" {
		cfg.Database.SSL = v
	}
	if v := os.Getenv("SERVER_LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("SCHEDULER_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Server.SchedulerTickSecs = n
		}
	}
	if v := os.Getenv("STORAGE_DIR"); v != "" {
		cfg.StorageDir = v
	}
	if v := os.Getenv("ASSET_ROOTS"); v != "" {
		cfg.AssetRoots = strings.Split(v, ",")
	}
	if v := os.Getenv("DURABLE_ADMISSION"); v != "" {
		cfg.DurableAdmission = v == "1" || strings.EqualFold(v, "true")
	}
}
