package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 0.2, cfg.Data.TestSize)
	assert.Equal(t, 42, cfg.Data.RandomState)
	assert.Equal(t, 3, cfg.Training.CVFolds)
	assert.Equal(t, 0.6, cfg.Training.MinScore)
	assert.False(t, cfg.Server.PreserveScoreSwap)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ResolvesAbsolutePaths(t *testing.T) {
	cfg, err := LoadWithEnv("", envMap(nil))
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.Data.SourcePath))
	assert.True(t, filepath.IsAbs(cfg.Data.ArtifactsDir))
	assert.Equal(t, filepath.Join(cfg.Data.ArtifactsDir, "model.gob"), cfg.ModelPath())
	assert.Equal(t, filepath.Join(cfg.Data.ArtifactsDir, "preprocessor.gob"), cfg.PreprocessorPath())
	assert.Equal(t, filepath.Join(cfg.Data.ArtifactsDir, "train.csv"), cfg.TrainDataPath())
	assert.Equal(t, filepath.Join(cfg.Data.ArtifactsDir, "test.csv"), cfg.TestDataPath())
	assert.Equal(t, filepath.Join(cfg.Data.ArtifactsDir, "data.csv"), cfg.RawDataPath())
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "studentperf.yaml")
	content := `
data:
  source_path: "` + filepath.Join(dir, "stud.csv") + `"
  artifacts_dir: "` + filepath.Join(dir, "artifacts") + `"
training:
  min_score: 0.7
  n_jobs: 2
  grids:
    "Decision Tree":
      criterion: ["squared_error"]
    "Random Forest":
      n_estimators: [8, 16]
server:
  addr: "127.0.0.1:9000"
  preserve_score_swap: true
logging:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadWithEnv(path, envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, 0.7, cfg.Training.MinScore)
	assert.Equal(t, 2, cfg.Training.NJobs)
	assert.Equal(t, 3, cfg.Training.CVFolds, "unset keys keep their defaults")
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.True(t, cfg.Server.PreserveScoreSwap)
	assert.Equal(t, "console", cfg.Logging.Format)

	grid, ok := cfg.Grid("Random Forest")
	require.True(t, ok)
	assert.Equal(t, []interface{}{8, 16}, grid["n_estimators"])

	grid["n_estimators"][0] = 999
	again, _ := cfg.Grid("Random Forest")
	assert.Equal(t, 8, again["n_estimators"][0], "Grid must return a copy")

	_, ok = cfg.Grid("AdaBoost Regressor")
	assert.False(t, ok)
}

func TestLoad_UnknownYAMLKeyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("training:\n  min_scroe: 0.5\n"), 0o644))

	_, err := LoadWithEnv(path, envMap(nil))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil))
	require.Error(t, err)
	assert.True(t, errors.IsIOFailure(err))
	assert.True(t, errors.IsNotFound(err))
}

func TestLoad_EnvOverrides(t *testing.T) {
	cfg, err := LoadWithEnv("", envMap(map[string]string{
		"STUDENTPERF_MIN_SCORE":           "0.75",
		"STUDENTPERF_CV_FOLDS":            "5",
		"STUDENTPERF_PRESERVE_SCORE_SWAP": "true",
		"STUDENTPERF_LOG_DIR":             "",
		"STUDENTPERF_ADDR":                ":8081",
	}))
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.Training.MinScore)
	assert.Equal(t, 5, cfg.Training.CVFolds)
	assert.True(t, cfg.Server.PreserveScoreSwap)
	assert.Equal(t, "", cfg.Logging.Dir)
	assert.Equal(t, ":8081", cfg.Server.Addr)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"non numeric min score", map[string]string{"STUDENTPERF_MIN_SCORE": "high"}},
		{"test size out of range", map[string]string{"STUDENTPERF_TEST_SIZE": "1.5"}},
		{"single fold", map[string]string{"STUDENTPERF_CV_FOLDS": "1"}},
		{"bad log format", map[string]string{"STUDENTPERF_LOG_FORMAT": "xml"}},
		{"bad bool", map[string]string{"STUDENTPERF_PRESERVE_SCORE_SWAP": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithEnv("", envMap(tt.env))
			require.Error(t, err)
			var vErr *errors.ValidationError
			assert.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
		})
	}
}
