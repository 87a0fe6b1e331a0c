package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSourceMethods(t *testing.T) {
	source := NewFileSource()
	assert.Equal(t, "file", source.Name())
	assert.Equal(t, 100, source.Priority())

	sourceWithPriority := NewFileSourceWithPriority(200)
	assert.Equal(t, 200, sourceWithPriority.Priority())
}

func TestEnvironmentSourceMethods(t *testing.T) {
	source := NewEnvironmentSource()
	assert.Equal(t, "environment", source.Name())
	assert.Equal(t, 200, source.Priority())

	sourceWithPrefix := NewEnvironmentSourceWithPrefix("CUSTOM_")
	assert.Equal(t, "CUSTOM_", sourceWithPrefix.prefix)

	sourceWithOptions := NewEnvironmentSourceWithOptions(300, "CUSTOM_")
	assert.Equal(t, 300, sourceWithOptions.Priority())
	assert.Equal(t, "CUSTOM_", sourceWithOptions.prefix)
}

func TestEnvironmentSourceSetSearchValue(t *testing.T) {
	source := NewEnvironmentSource()
	search := &SearchConfig{}

	tests := []struct {
		key   string
		value string
	}{
		{"pop.size", "40"},
		{"popsize", "40"},
		{"n.retries", "50"},
		{"max.age", "5"},
		{"alignment.interval", "20"},
		{"generations", "100"},
		{"workers", "8"},
		{"seed", "1234"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := source.setSearchValue(search, tt.key, tt.value)
			require.NoError(t, err)
		})
	}

	assert.Equal(t, 40, search.PopSize)
	assert.Equal(t, 50, search.NRetries)
	assert.Equal(t, 5, search.MaxAge)
	assert.Equal(t, 20, search.AlignmentInterval)
	assert.Equal(t, 100, search.Generations)
	assert.Equal(t, 8, search.Workers)
	assert.Equal(t, int64(1234), search.Seed)

	// Test invalid values
	err := source.setSearchValue(search, "pop.size", "invalid")
	assert.Error(t, err)

	err = source.setSearchValue(search, "seed", "invalid")
	assert.Error(t, err)

	err = source.setSearchValue(search, "unsupported.key", "value")
	assert.NoError(t, err) // Unknown keys are silently ignored
}

func TestEnvironmentSourceSetArchiveValue(t *testing.T) {
	source := NewEnvironmentSource()
	archive := &ArchiveConfig{}

	require.NoError(t, source.setArchiveValue(archive, "bins.x", "16"))
	require.NoError(t, source.setArchiveValue(archive, "bins.y", "12"))
	require.NoError(t, source.setArchiveValue(archive, "bin.pop.size", "10"))
	require.NoError(t, source.setArchiveValue(archive, "epsilon.f", "0.001"))
	require.NoError(t, source.setArchiveValue(archive, "infeas.fitness.idx", "2"))
	require.NoError(t, source.setArchiveValue(archive, "allow.aging", "false"))
	require.NoError(t, source.setArchiveValue(archive, "allow.res.increase", "true"))
	require.NoError(t, source.setArchiveValue(archive, "enforce.qnt", "true"))
	require.NoError(t, source.setArchiveValue(archive, "emitter", "greedy"))

	assert.Equal(t, 16, archive.BinsX)
	assert.Equal(t, 12, archive.BinsY)
	assert.Equal(t, 10, archive.BinPopSize)
	assert.Equal(t, 0.001, archive.EpsilonF)
	assert.Equal(t, 2, archive.InfeasFitnessIdx)
	assert.False(t, archive.AllowAging)
	assert.True(t, archive.AllowResIncrease)
	assert.True(t, archive.EnforceQnt)
	assert.Equal(t, "greedy", archive.Emitter)

	assert.Error(t, source.setArchiveValue(archive, "bins.x", "not-a-number"))
	assert.Error(t, source.setArchiveValue(archive, "epsilon.f", "not-a-float"))
	assert.Error(t, source.setArchiveValue(archive, "allow.aging", "not-a-bool"))
}

func TestEnvironmentSourceSetEstimatorValue(t *testing.T) {
	source := NewEnvironmentSource()
	estimator := &EstimatorConfig{}

	require.NoError(t, source.setEstimatorValue(estimator, "kind", "gaussian"))
	require.NoError(t, source.setEstimatorValue(estimator, "buffer.size", "512"))
	require.NoError(t, source.setEstimatorValue(estimator, "hidden.size", "64"))
	require.NoError(t, source.setEstimatorValue(estimator, "epochs", "30"))
	require.NoError(t, source.setEstimatorValue(estimator, "learning.rate", "0.005"))

	assert.Equal(t, "gaussian", estimator.Kind)
	assert.Equal(t, 512, estimator.BufferSize)
	assert.Equal(t, 64, estimator.HiddenSize)
	assert.Equal(t, 30, estimator.Epochs)
	assert.Equal(t, 0.005, estimator.LearningRate)

	assert.Error(t, source.setEstimatorValue(estimator, "epochs", "invalid"))
	assert.Error(t, source.setEstimatorValue(estimator, "learning.rate", "invalid"))
}

func TestEnvironmentSourceSetGrammarValue(t *testing.T) {
	source := NewEnvironmentSource()
	grammar := &GrammarConfig{}

	require.NoError(t, source.setGrammarValue(grammar, "max.x.size", "30"))
	require.NoError(t, source.setGrammarValue(grammar, "max.y.size", "25"))
	require.NoError(t, source.setGrammarValue(grammar, "max.z.size", "35"))
	require.NoError(t, source.setGrammarValue(grammar, "iterations", "4"))
	require.NoError(t, source.setGrammarValue(grammar, "x.range.min", "3"))
	require.NoError(t, source.setGrammarValue(grammar, "x.range.max", "30"))
	require.NoError(t, source.setGrammarValue(grammar, "z.range.min", "2"))

	assert.Equal(t, 30, grammar.MaxXSize)
	assert.Equal(t, 25, grammar.MaxYSize)
	assert.Equal(t, 35, grammar.MaxZSize)
	assert.Equal(t, 4, grammar.Iterations)
	assert.Equal(t, 3, grammar.XRange.Min)
	assert.Equal(t, 30, grammar.XRange.Max)
	assert.Equal(t, 2, grammar.ZRange.Min)

	assert.Error(t, source.setGrammarValue(grammar, "iterations", "invalid"))
	assert.Error(t, source.setGrammarValue(grammar, "x.range.min", "invalid"))
}

func TestEnvironmentSourceSetHullValue(t *testing.T) {
	source := NewEnvironmentSource()
	hull := &HullConfig{}

	require.NoError(t, source.setHullValue(hull, "erosion", "grey"))
	require.NoError(t, source.setHullValue(hull, "apply.erosion", "true"))
	require.NoError(t, source.setHullValue(hull, "apply.smoothing", "true"))
	require.NoError(t, source.setHullValue(hull, "iterations", "3"))

	assert.Equal(t, "grey", hull.Erosion)
	assert.True(t, hull.ApplyErosion)
	assert.True(t, hull.ApplySmoothing)
	assert.Equal(t, 3, hull.Iterations)

	assert.Error(t, source.setHullValue(hull, "apply.erosion", "not-a-bool"))
	assert.Error(t, source.setHullValue(hull, "iterations", "invalid"))
}

func TestEnvironmentSourceSetLoggingValue(t *testing.T) {
	source := NewEnvironmentSource()
	logging := &LoggingConfig{}

	require.NoError(t, source.setLoggingValue(logging, "level", "DEBUG"))
	require.NoError(t, source.setLoggingValue(logging, "sample.rate", "10"))

	assert.Equal(t, "DEBUG", logging.Level)
	assert.Equal(t, uint32(10), logging.SampleRate)

	assert.Error(t, source.setLoggingValue(logging, "sample.rate", "invalid"))
}

func TestEnvironmentSourceSetStorageValue(t *testing.T) {
	source := NewEnvironmentSource()
	storage := &StorageConfig{}

	require.NoError(t, source.setStorageValue(storage, "type", "memory"))
	require.NoError(t, source.setStorageValue(storage, "path", "/tmp/runs.db"))
	require.NoError(t, source.setStorageValue(storage, "wal", "false"))

	assert.Equal(t, "memory", storage.Type)
	assert.Equal(t, "/tmp/runs.db", storage.Path)
	assert.False(t, storage.WAL)

	assert.Error(t, source.setStorageValue(storage, "wal", "not-a-bool"))
}

func TestEnvironmentSourceLoad(t *testing.T) {
	os.Setenv("EVOSHIP_SEARCH_POP_SIZE", "35")
	os.Setenv("EVOSHIP_ARCHIVE_EMITTER", "optimising")
	os.Setenv("EVOSHIP_LOGGING_LEVEL", "WARN")
	defer func() {
		os.Unsetenv("EVOSHIP_SEARCH_POP_SIZE")
		os.Unsetenv("EVOSHIP_ARCHIVE_EMITTER")
		os.Unsetenv("EVOSHIP_LOGGING_LEVEL")
	}()

	config := GetDefaultConfig()
	source := NewEnvironmentSource()

	err := source.Load(config, nil)
	require.NoError(t, err)

	assert.Equal(t, 35, config.Search.PopSize)
	assert.Equal(t, "optimising", config.Archive.Emitter)
	assert.Equal(t, "WARN", config.Logging.Level)

	// Untouched fields keep their defaults
	assert.Equal(t, 8, config.Archive.BinsX)
}

func TestFileSourceLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "evoship.yaml")

	configYAML := `
search:
  pop_size: 45
hull:
  erosion: grey
  apply_smoothing: true
`
	err := os.WriteFile(configPath, []byte(configYAML), 0644)
	require.NoError(t, err)

	config := GetDefaultConfig()
	source := NewFileSource()

	err = source.Load(config, []string{configPath})
	require.NoError(t, err)

	// File values override defaults
	assert.Equal(t, 45, config.Search.PopSize)
	assert.Equal(t, "grey", config.Hull.Erosion)
	assert.True(t, config.Hull.ApplySmoothing)

	// Keys not present in the file keep their defaults
	assert.Equal(t, 100, config.Search.NRetries)
	assert.True(t, config.Hull.ApplyErosion)
}

func TestFileSourceLoadInvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "bad.yaml")

	err := os.WriteFile(configPath, []byte("search: [not: valid"), 0644)
	require.NoError(t, err)

	config := GetDefaultConfig()
	source := NewFileSource()

	err = source.Load(config, []string{configPath})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestFileSourceLoadMissingFile(t *testing.T) {
	config := GetDefaultConfig()
	source := NewFileSource()

	// Missing files are skipped, not an error
	err := source.Load(config, []string{"/no/such/file.yaml"})
	assert.NoError(t, err)
	assert.Equal(t, 20, config.Search.PopSize)
}

func TestCommandLineSource(t *testing.T) {
	args := []string{
		"--config.search.pop-size=25",
		"--config.archive.emitter=greedy",
		"-c", "logging.level=ERROR",
	}

	source := NewCommandLineSource(args)
	assert.Equal(t, "command_line", source.Name())
	assert.Equal(t, 300, source.Priority())

	config := GetDefaultConfig()
	err := source.Load(config, nil)
	require.NoError(t, err)

	assert.Equal(t, 25, config.Search.PopSize)
	assert.Equal(t, "greedy", config.Archive.Emitter)
	assert.Equal(t, "ERROR", config.Logging.Level)
}

func TestCommandLineSourceWithPriority(t *testing.T) {
	source := NewCommandLineSourceWithPriority(500, nil)
	assert.Equal(t, 500, source.Priority())
}

func TestMultiSource(t *testing.T) {
	fileSource := NewFileSource()
	envSource := NewEnvironmentSource()

	multi := NewMultiSource(envSource, fileSource)
	assert.Equal(t, "multi_source", multi.Name())
	assert.Equal(t, 200, multi.Priority())

	// Sources load in ascending priority so later ones override
	sorted := multi.sortSourcesByPriority()
	assert.Equal(t, "file", sorted[0].Name())
	assert.Equal(t, "environment", sorted[1].Name())

	// AddSource / RemoveSource / GetSources
	multi.AddSource(NewCommandLineSource(nil))
	assert.Len(t, multi.GetSources(), 3)

	multi.RemoveSource("command_line")
	assert.Len(t, multi.GetSources(), 2)
}

func TestMultiSourceLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "evoship.yaml")

	configYAML := `
search:
  pop_size: 50
`
	err := os.WriteFile(configPath, []byte(configYAML), 0644)
	require.NoError(t, err)

	os.Setenv("EVOSHIP_SEARCH_POP_SIZE", "70")
	defer os.Unsetenv("EVOSHIP_SEARCH_POP_SIZE")

	config := GetDefaultConfig()
	multi := NewMultiSource(NewEnvironmentSource(), NewFileSource())

	err = multi.Load(config, []string{configPath})
	require.NoError(t, err)

	// Environment (priority 200) overrides file (priority 100)
	assert.Equal(t, 70, config.Search.PopSize)
}

func TestRemoteSource(t *testing.T) {
	source := NewRemoteSource("https://example.com/config.yaml")
	assert.Equal(t, "remote", source.Name())
	assert.Equal(t, 50, source.Priority())

	config := GetDefaultConfig()
	err := source.Load(config, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not implemented")
}

func TestCreateDefaultSources(t *testing.T) {
	sources := CreateDefaultSources()
	require.Len(t, sources, 2)
	assert.Equal(t, "file", sources[0].Name())
	assert.Equal(t, "environment", sources[1].Name())
}

func TestCreateAllSources(t *testing.T) {
	sources := CreateAllSources([]string{"--config.search.pop-size=10"})
	require.Len(t, sources, 3)
	assert.Equal(t, "command_line", sources[2].Name())
}

func TestLoadFromSources(t *testing.T) {
	config := GetDefaultConfig()
	err := LoadFromSources(config, CreateDefaultSources(), nil)
	require.NoError(t, err)
	assert.NotNil(t, config)
}
