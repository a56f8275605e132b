// Package config loads the immutable runtime configuration for the training
// command and the prediction server.
//
// Values are resolved once at startup in this order: built-in defaults, an
// optional YAML file, STUDENTPERF_* environment variables. The result is
// validated and every path is made absolute before it is handed out.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STUDENTPERF_"

// Artifact file names inside the artifacts directory.
const (
	RawDataFile      = "data.csv"
	TrainDataFile    = "train.csv"
	TestDataFile     = "test.csv"
	ModelFile        = "model.gob"
	PreprocessorFile = "preprocessor.gob"
)

// Config holds the application configuration. Treat it as read-only after
// Load returns; components receive copies.
type Config struct {
	Data     DataConfig     `yaml:"data"`
	Training TrainingConfig `yaml:"training"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DataConfig describes the source dataset and the train/test split.
type DataConfig struct {
	SourcePath   string  `yaml:"source_path"`
	ArtifactsDir string  `yaml:"artifacts_dir"`
	TestSize     float64 `yaml:"test_size"`
	RandomState  int     `yaml:"random_state"`
}

// TrainingConfig controls model selection.
type TrainingConfig struct {
	CVFolds  int     `yaml:"cv_folds"`
	MinScore float64 `yaml:"min_score"`
	// NJobs bounds grid search workers; 0 means one per CPU.
	NJobs int `yaml:"n_jobs"`
	// ReportPlot, when set, is the PNG/SVG path of the r2 bar chart.
	ReportPlot string `yaml:"report_plot"`
	// Grids replaces the hyperparameter grid of the named registry entries.
	Grids map[string]map[string][]interface{} `yaml:"grids"`
}

// ServerConfig configures the prediction web front-end.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// PreserveScoreSwap reproduces the legacy form mapping where the
	// reading_score feature is read from the writing_score field and vice versa.
	PreserveScoreSwap   bool `yaml:"preserve_score_swap"`
	ReadTimeoutSeconds  int  `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int  `yaml:"write_timeout_seconds"`
}

// LoggingConfig selects the log backend.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console or slog
	Dir    string `yaml:"dir"`    // empty disables the log file
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Data: DataConfig{
			SourcePath:   filepath.Join("notebook", "data", "stud.csv"),
			ArtifactsDir: "artifacts",
			TestSize:     0.2,
			RandomState:  42,
		},
		Training: TrainingConfig{
			CVFolds:  3,
			MinScore: 0.6,
		},
		Server: ServerConfig{
			Addr:                "0.0.0.0:5000",
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Dir:    "logs",
		},
	}
}

// Load reads the configuration from path (optional) and the process
// environment.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.NewIOFailureError("config.Load", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, errors.Wrapf(err, "config: parse %s", path)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if err := cfg.resolvePaths(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+key, "must be an integer", v)
		}
		*dst = n
		return nil
	}
	float := func(key string, dst *float64) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+key, "must be a number", v)
		}
		*dst = f
		return nil
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+key, "must be a boolean", v)
		}
		*dst = b
		return nil
	}

	str("SOURCE_PATH", &cfg.Data.SourcePath)
	str("ARTIFACTS_DIR", &cfg.Data.ArtifactsDir)
	str("REPORT_PLOT", &cfg.Training.ReportPlot)
	str("ADDR", &cfg.Server.Addr)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	if v, ok := lookup(EnvPrefix + "LOG_DIR"); ok {
		cfg.Logging.Dir = v // empty is meaningful here
	}

	for _, err := range []error{
		float("TEST_SIZE", &cfg.Data.TestSize),
		integer("RANDOM_STATE", &cfg.Data.RandomState),
		integer("CV_FOLDS", &cfg.Training.CVFolds),
		float("MIN_SCORE", &cfg.Training.MinScore),
		integer("N_JOBS", &cfg.Training.NJobs),
		boolean("PRESERVE_SCORE_SWAP", &cfg.Server.PreserveScoreSwap),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate checks every field once. It is called by Load; call it again
// only after building a Config by hand.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Data.SourcePath) == "":
		return errors.NewValidationError("data.source_path", "must not be empty", c.Data.SourcePath)
	case strings.TrimSpace(c.Data.ArtifactsDir) == "":
		return errors.NewValidationError("data.artifacts_dir", "must not be empty", c.Data.ArtifactsDir)
	case c.Data.TestSize <= 0 || c.Data.TestSize >= 1:
		return errors.NewValidationError("data.test_size", "must be in (0, 1)", c.Data.TestSize)
	case c.Training.CVFolds < 2:
		return errors.NewValidationError("training.cv_folds", "must be at least 2", c.Training.CVFolds)
	case c.Training.MinScore > 1:
		return errors.NewValidationError("training.min_score", "r2 can never exceed 1", c.Training.MinScore)
	case c.Training.NJobs < 0:
		return errors.NewValidationError("training.n_jobs", "must be >= 0", c.Training.NJobs)
	case c.Server.Addr == "":
		return errors.NewValidationError("server.addr", "must not be empty", c.Server.Addr)
	}
	switch c.Logging.Format {
	case "json", "console", "slog":
	default:
		return errors.NewValidationError("logging.format", "must be json, console or slog", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.NewValidationError("logging.level", "must be debug, info, warn or error", c.Logging.Level)
	}
	for _, name := range sortedKeys(c.Training.Grids) {
		for param, values := range c.Training.Grids[name] {
			if len(values) == 0 {
				return errors.NewValidationError("training.grids."+name+"."+param, "must list at least one value", values)
			}
		}
	}
	return nil
}

func (c *Config) resolvePaths() error {
	for _, p := range []*string{&c.Data.SourcePath, &c.Data.ArtifactsDir, &c.Training.ReportPlot, &c.Logging.Dir} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return errors.Wrapf(err, "config: resolve %s", *p)
		}
		*p = abs
	}
	return nil
}

// RawDataPath is where ingestion copies the source dataset.
func (c Config) RawDataPath() string { return filepath.Join(c.Data.ArtifactsDir, RawDataFile) }

// TrainDataPath is the train split written by ingestion.
func (c Config) TrainDataPath() string { return filepath.Join(c.Data.ArtifactsDir, TrainDataFile) }

// TestDataPath is the test split written by ingestion.
func (c Config) TestDataPath() string { return filepath.Join(c.Data.ArtifactsDir, TestDataFile) }

// ModelPath is the persisted best estimator.
func (c Config) ModelPath() string { return filepath.Join(c.Data.ArtifactsDir, ModelFile) }

// PreprocessorPath is the persisted fitted preprocessing pipeline.
func (c Config) PreprocessorPath() string {
	return filepath.Join(c.Data.ArtifactsDir, PreprocessorFile)
}

// Grid returns a copy of the configured override for a registry entry.
func (c Config) Grid(name string) (map[string][]interface{}, bool) {
	g, ok := c.Training.Grids[name]
	if !ok {
		return nil, false
	}
	out := make(map[string][]interface{}, len(g))
	for k, v := range g {
		out[k] = append([]interface{}(nil), v...)
	}
	return out, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
