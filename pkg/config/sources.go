package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source represents a configuration source.
type Source interface {
	// Load loads configuration from the source into the provided config
	Load(config *Config, paths []string) error

	// Name returns the name of the source
	Name() string

	// Priority returns the priority of the source (higher priority overrides lower)
	Priority() int
}

// FileSource loads configuration from YAML files.
type FileSource struct {
	priority int
}

// NewFileSource creates a new file source.
func NewFileSource() *FileSource {
	return &FileSource{priority: 100}
}

// NewFileSourceWithPriority creates a new file source with custom priority.
func NewFileSourceWithPriority(priority int) *FileSource {
	return &FileSource{priority: priority}
}

// Name returns the name of the file source.
func (fs *FileSource) Name() string {
	return "file"
}

// Priority returns the priority of the file source.
func (fs *FileSource) Priority() int {
	return fs.priority
}

// Load loads configuration from YAML files.
func (fs *FileSource) Load(config *Config, paths []string) error {
	for _, path := range paths {
		if !fileExists(path) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal directly into the target so only keys present in the
		// file override values already loaded from defaults or earlier files.
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML from %s: %w", path, err)
		}
	}

	return nil
}

// EnvironmentSource loads configuration from environment variables.
type EnvironmentSource struct {
	priority int
	prefix   string
}

// NewEnvironmentSource creates a new environment source.
func NewEnvironmentSource() *EnvironmentSource {
	return &EnvironmentSource{
		priority: 200, // Higher priority than file source
		prefix:   "EVOSHIP_",
	}
}

// NewEnvironmentSourceWithPrefix creates a new environment source with custom prefix.
func NewEnvironmentSourceWithPrefix(prefix string) *EnvironmentSource {
	return &EnvironmentSource{
		priority: 200,
		prefix:   prefix,
	}
}

// NewEnvironmentSourceWithOptions creates a new environment source with custom options.
func NewEnvironmentSourceWithOptions(priority int, prefix string) *EnvironmentSource {
	return &EnvironmentSource{
		priority: priority,
		prefix:   prefix,
	}
}

// Name returns the name of the environment source.
func (es *EnvironmentSource) Name() string {
	return "environment"
}

// Priority returns the priority of the environment source.
func (es *EnvironmentSource) Priority() int {
	return es.priority
}

// Load loads configuration from environment variables.
func (es *EnvironmentSource) Load(config *Config, paths []string) error {
	envVars := es.getEnvironmentVariables()

	// Sort keys to ensure consistent processing order
	// Process longer keys first, then shorter ones (so shorter/abbreviated forms take precedence)
	keys := make([]string, 0, len(envVars))
	for key := range envVars {
		keys = append(keys, key)
	}

	// Sort by length (descending) then alphabetically for consistent ordering
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	// Apply environment variable overrides in sorted order
	for _, key := range keys {
		value := envVars[key]
		if err := es.setConfigValue(config, key, value); err != nil {
			return fmt.Errorf("failed to set config value %s=%s: %w", key, value, err)
		}
	}

	return nil
}

// getEnvironmentVariables gets all environment variables with the configured prefix.
func (es *EnvironmentSource) getEnvironmentVariables() map[string]string {
	envVars := make(map[string]string)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key, value := parts[0], parts[1]

		// Only process environment variables with our specific prefix
		if strings.HasPrefix(key, es.prefix) {
			// Convert environment variable to config key
			configKey := strings.ToLower(strings.TrimPrefix(key, es.prefix))
			configKey = strings.ReplaceAll(configKey, "_", ".")
			envVars[configKey] = value
		}
	}

	return envVars
}

// setConfigValue sets a configuration value using dot notation.
func (es *EnvironmentSource) setConfigValue(config *Config, key, value string) error {
	// Handle common configuration paths
	switch {
	case strings.HasPrefix(key, "search."):
		return es.setSearchValue(&config.Search, strings.TrimPrefix(key, "search."), value)
	case strings.HasPrefix(key, "archive."):
		return es.setArchiveValue(&config.Archive, strings.TrimPrefix(key, "archive."), value)
	case strings.HasPrefix(key, "estimator."):
		return es.setEstimatorValue(&config.Estimator, strings.TrimPrefix(key, "estimator."), value)
	case strings.HasPrefix(key, "grammar."):
		return es.setGrammarValue(&config.Grammar, strings.TrimPrefix(key, "grammar."), value)
	case strings.HasPrefix(key, "hull."):
		return es.setHullValue(&config.Hull, strings.TrimPrefix(key, "hull."), value)
	case strings.HasPrefix(key, "logging."):
		return es.setLoggingValue(&config.Logging, strings.TrimPrefix(key, "logging."), value)
	case strings.HasPrefix(key, "storage."):
		return es.setStorageValue(&config.Storage, strings.TrimPrefix(key, "storage."), value)
	default:
		// For unhandled paths, simply ignore them rather than failing
		// This allows for more flexible environment variable usage
		return nil
	}
}

// setSearchValue sets search-loop configuration values.
func (es *EnvironmentSource) setSearchValue(search *SearchConfig, key, value string) error {
	switch key {
	case "pop.size", "popsize":
		if popSize, err := strconv.Atoi(value); err == nil {
			search.PopSize = popSize
		} else {
			return fmt.Errorf("invalid pop size: %s", value)
		}
	case "n.retries", "nretries":
		if retries, err := strconv.Atoi(value); err == nil {
			search.NRetries = retries
		} else {
			return fmt.Errorf("invalid n retries: %s", value)
		}
	case "max.age", "maxage":
		if maxAge, err := strconv.Atoi(value); err == nil {
			search.MaxAge = maxAge
		} else {
			return fmt.Errorf("invalid max age: %s", value)
		}
	case "alignment.interval", "alignmentinterval":
		if interval, err := strconv.Atoi(value); err == nil {
			search.AlignmentInterval = interval
		} else {
			return fmt.Errorf("invalid alignment interval: %s", value)
		}
	case "generations":
		if generations, err := strconv.Atoi(value); err == nil {
			search.Generations = generations
		} else {
			return fmt.Errorf("invalid generations: %s", value)
		}
	case "workers":
		if workers, err := strconv.Atoi(value); err == nil {
			search.Workers = workers
		} else {
			return fmt.Errorf("invalid workers: %s", value)
		}
	case "seed":
		if seed, err := strconv.ParseInt(value, 10, 64); err == nil {
			search.Seed = seed
		} else {
			return fmt.Errorf("invalid seed: %s", value)
		}
	default:
		return nil
	}
	return nil
}

// setArchiveValue sets archive configuration values.
func (es *EnvironmentSource) setArchiveValue(archive *ArchiveConfig, key, value string) error {
	switch key {
	case "bins.x", "binsx":
		if bins, err := strconv.Atoi(value); err == nil {
			archive.BinsX = bins
		} else {
			return fmt.Errorf("invalid bins x: %s", value)
		}
	case "bins.y", "binsy":
		if bins, err := strconv.Atoi(value); err == nil {
			archive.BinsY = bins
		} else {
			return fmt.Errorf("invalid bins y: %s", value)
		}
	case "bin.pop.size", "binpopsize":
		if size, err := strconv.Atoi(value); err == nil {
			archive.BinPopSize = size
		} else {
			return fmt.Errorf("invalid bin pop size: %s", value)
		}
	case "epsilon.f", "epsilonf":
		if eps, err := strconv.ParseFloat(value, 64); err == nil {
			archive.EpsilonF = eps
		} else {
			return fmt.Errorf("invalid epsilon f: %s", value)
		}
	case "infeas.fitness.idx", "infeasfitnessidx":
		if idx, err := strconv.Atoi(value); err == nil {
			archive.InfeasFitnessIdx = idx
		} else {
			return fmt.Errorf("invalid infeas fitness idx: %s", value)
		}
	case "allow.aging", "allowaging":
		if allow, err := strconv.ParseBool(value); err == nil {
			archive.AllowAging = allow
		} else {
			return fmt.Errorf("invalid allow aging flag: %s", value)
		}
	case "allow.res.increase", "allowresincrease":
		if allow, err := strconv.ParseBool(value); err == nil {
			archive.AllowResIncrease = allow
		} else {
			return fmt.Errorf("invalid allow res increase flag: %s", value)
		}
	case "enforce.qnt", "enforceqnt":
		if enforce, err := strconv.ParseBool(value); err == nil {
			archive.EnforceQnt = enforce
		} else {
			return fmt.Errorf("invalid enforce qnt flag: %s", value)
		}
	case "emitter":
		archive.Emitter = value
	default:
		return nil
	}
	return nil
}

// setEstimatorValue sets estimator configuration values.
func (es *EnvironmentSource) setEstimatorValue(estimator *EstimatorConfig, key, value string) error {
	switch key {
	case "kind":
		estimator.Kind = value
	case "buffer.size", "buffersize":
		if size, err := strconv.Atoi(value); err == nil {
			estimator.BufferSize = size
		} else {
			return fmt.Errorf("invalid buffer size: %s", value)
		}
	case "hidden.size", "hiddensize":
		if size, err := strconv.Atoi(value); err == nil {
			estimator.HiddenSize = size
		} else {
			return fmt.Errorf("invalid hidden size: %s", value)
		}
	case "epochs":
		if epochs, err := strconv.Atoi(value); err == nil {
			estimator.Epochs = epochs
		} else {
			return fmt.Errorf("invalid epochs: %s", value)
		}
	case "learning.rate", "learningrate":
		if rate, err := strconv.ParseFloat(value, 64); err == nil {
			estimator.LearningRate = rate
		} else {
			return fmt.Errorf("invalid learning rate: %s", value)
		}
	default:
		return nil
	}
	return nil
}

// setGrammarValue sets grammar configuration values.
func (es *EnvironmentSource) setGrammarValue(grammar *GrammarConfig, key, value string) error {
	switch key {
	case "max.x.size", "maxxsize":
		if size, err := strconv.Atoi(value); err == nil {
			grammar.MaxXSize = size
		} else {
			return fmt.Errorf("invalid max x size: %s", value)
		}
	case "max.y.size", "maxysize":
		if size, err := strconv.Atoi(value); err == nil {
			grammar.MaxYSize = size
		} else {
			return fmt.Errorf("invalid max y size: %s", value)
		}
	case "max.z.size", "maxzsize":
		if size, err := strconv.Atoi(value); err == nil {
			grammar.MaxZSize = size
		} else {
			return fmt.Errorf("invalid max z size: %s", value)
		}
	case "iterations":
		if iterations, err := strconv.Atoi(value); err == nil {
			grammar.Iterations = iterations
		} else {
			return fmt.Errorf("invalid iterations: %s", value)
		}
	case "x.range.min":
		return es.setRangeBound(&grammar.XRange, true, value)
	case "x.range.max":
		return es.setRangeBound(&grammar.XRange, false, value)
	case "y.range.min":
		return es.setRangeBound(&grammar.YRange, true, value)
	case "y.range.max":
		return es.setRangeBound(&grammar.YRange, false, value)
	case "z.range.min":
		return es.setRangeBound(&grammar.ZRange, true, value)
	case "z.range.max":
		return es.setRangeBound(&grammar.ZRange, false, value)
	default:
		return nil
	}
	return nil
}

// setRangeBound sets one end of a dimension range.
func (es *EnvironmentSource) setRangeBound(r *DimRange, min bool, value string) error {
	bound, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid range bound: %s", value)
	}
	if min {
		r.Min = bound
	} else {
		r.Max = bound
	}
	return nil
}

// setHullValue sets hull post-processor configuration values.
func (es *EnvironmentSource) setHullValue(hull *HullConfig, key, value string) error {
	switch key {
	case "erosion":
		hull.Erosion = value
	case "apply.erosion", "applyerosion":
		if apply, err := strconv.ParseBool(value); err == nil {
			hull.ApplyErosion = apply
		} else {
			return fmt.Errorf("invalid apply erosion flag: %s", value)
		}
	case "apply.smoothing", "applysmoothing":
		if apply, err := strconv.ParseBool(value); err == nil {
			hull.ApplySmoothing = apply
		} else {
			return fmt.Errorf("invalid apply smoothing flag: %s", value)
		}
	case "iterations":
		if iterations, err := strconv.Atoi(value); err == nil {
			hull.Iterations = iterations
		} else {
			return fmt.Errorf("invalid iterations: %s", value)
		}
	default:
		return nil
	}
	return nil
}

// setLoggingValue sets logging configuration values.
func (es *EnvironmentSource) setLoggingValue(logging *LoggingConfig, key, value string) error {
	switch key {
	case "level":
		logging.Level = value
	case "sample.rate", "samplerate":
		if sampleRate, err := strconv.ParseUint(value, 10, 32); err == nil {
			logging.SampleRate = uint32(sampleRate)
		} else {
			return fmt.Errorf("invalid sample rate: %s", value)
		}
	default:
		return nil
	}
	return nil
}

// setStorageValue sets storage configuration values.
func (es *EnvironmentSource) setStorageValue(storage *StorageConfig, key, value string) error {
	switch key {
	case "type":
		storage.Type = value
	case "path":
		storage.Path = value
	case "wal":
		if wal, err := strconv.ParseBool(value); err == nil {
			storage.WAL = wal
		} else {
			return fmt.Errorf("invalid wal flag: %s", value)
		}
	default:
		return nil
	}
	return nil
}

// CommandLineSource loads configuration from command line arguments.
type CommandLineSource struct {
	priority int
	args     []string
}

// NewCommandLineSource creates a new command line source.
func NewCommandLineSource(args []string) *CommandLineSource {
	return &CommandLineSource{
		priority: 300, // Highest priority
		args:     args,
	}
}

// NewCommandLineSourceWithPriority creates a new command line source with custom priority.
func NewCommandLineSourceWithPriority(priority int, args []string) *CommandLineSource {
	return &CommandLineSource{
		priority: priority,
		args:     args,
	}
}

// Name returns the name of the command line source.
func (cls *CommandLineSource) Name() string {
	return "command_line"
}

// Priority returns the priority of the command line source.
func (cls *CommandLineSource) Priority() int {
	return cls.priority
}

// Load loads configuration from command line arguments.
func (cls *CommandLineSource) Load(config *Config, paths []string) error {
	// Parse command line arguments
	configArgs := cls.parseConfigArgs()

	// Apply command line overrides
	for key, value := range configArgs {
		es := &EnvironmentSource{} // Reuse environment source logic
		if err := es.setConfigValue(config, key, value); err != nil {
			return fmt.Errorf("failed to set config value from command line %s=%s: %w", key, value, err)
		}
	}

	return nil
}

// parseConfigArgs parses configuration arguments from command line.
func (cls *CommandLineSource) parseConfigArgs() map[string]string {
	configArgs := make(map[string]string)

	for i, arg := range cls.args {
		// Handle --config-key=value format
		if strings.HasPrefix(arg, "--config.") || strings.HasPrefix(arg, "--config-") {
			parts := strings.SplitN(arg, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimPrefix(parts[0], "--config.")
				key = strings.TrimPrefix(key, "--config-")
				key = strings.ReplaceAll(key, "-", ".")
				configArgs[key] = parts[1]
			} else if i+1 < len(cls.args) && !strings.HasPrefix(cls.args[i+1], "--") {
				// Handle --config-key value format
				key := strings.TrimPrefix(arg, "--config.")
				key = strings.TrimPrefix(key, "--config-")
				key = strings.ReplaceAll(key, "-", ".")
				configArgs[key] = cls.args[i+1]
			}
		}

		// Handle -c key=value format
		if arg == "-c" && i+1 < len(cls.args) {
			parts := strings.SplitN(cls.args[i+1], "=", 2)
			if len(parts) == 2 {
				configArgs[parts[0]] = parts[1]
			}
		}
	}

	return configArgs
}

// MultiSource combines multiple configuration sources.
type MultiSource struct {
	sources []Source
}

// NewMultiSource creates a new multi-source configuration loader.
func NewMultiSource(sources ...Source) *MultiSource {
	return &MultiSource{sources: sources}
}

// Name returns the name of the multi-source.
func (ms *MultiSource) Name() string {
	return "multi_source"
}

// Priority returns the highest priority among all sources.
func (ms *MultiSource) Priority() int {
	maxPriority := 0
	for _, source := range ms.sources {
		if priority := source.Priority(); priority > maxPriority {
			maxPriority = priority
		}
	}
	return maxPriority
}

// Load loads configuration from all sources in priority order.
func (ms *MultiSource) Load(config *Config, paths []string) error {
	// Sort sources by priority (lowest first, so higher priority overrides)
	sources := ms.sortSourcesByPriority()

	// Load from each source
	for _, source := range sources {
		if err := source.Load(config, paths); err != nil {
			return fmt.Errorf("failed to load from source %s: %w", source.Name(), err)
		}
	}

	return nil
}

// sortSourcesByPriority sorts sources by priority (ascending).
func (ms *MultiSource) sortSourcesByPriority() []Source {
	sources := make([]Source, len(ms.sources))
	copy(sources, ms.sources)

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority() < sources[j].Priority()
	})

	return sources
}

// AddSource adds a source to the multi-source.
func (ms *MultiSource) AddSource(source Source) {
	ms.sources = append(ms.sources, source)
}

// RemoveSource removes a source from the multi-source.
func (ms *MultiSource) RemoveSource(sourceName string) {
	for i, source := range ms.sources {
		if source.Name() == sourceName {
			ms.sources = append(ms.sources[:i], ms.sources[i+1:]...)
			break
		}
	}
}

// GetSources returns all sources.
func (ms *MultiSource) GetSources() []Source {
	return ms.sources
}

// RemoteSource loads configuration from a remote URL (placeholder for future implementation).
type RemoteSource struct {
	priority int
	url      string
	headers  map[string]string
	timeout  time.Duration
}

// NewRemoteSource creates a new remote source (placeholder).
func NewRemoteSource(url string) *RemoteSource {
	return &RemoteSource{
		priority: 50, // Lower priority than file source
		url:      url,
		headers:  make(map[string]string),
		timeout:  30 * time.Second,
	}
}

// Name returns the name of the remote source.
func (rs *RemoteSource) Name() string {
	return "remote"
}

// Priority returns the priority of the remote source.
func (rs *RemoteSource) Priority() int {
	return rs.priority
}

// Load loads configuration from a remote URL (placeholder implementation).
func (rs *RemoteSource) Load(config *Config, paths []string) error {
	// This would implement HTTP(S) fetching of configuration
	// For now, it's a placeholder
	return fmt.Errorf("failed to fetch remote config from %s: remote source not implemented", rs.url)
}

// Convenience functions

// CreateDefaultSources creates the default set of configuration sources.
func CreateDefaultSources() []Source {
	return []Source{
		NewFileSource(),
		NewEnvironmentSource(),
	}
}

// CreateAllSources creates all available configuration sources.
func CreateAllSources(args []string) []Source {
	return []Source{
		NewFileSource(),
		NewEnvironmentSource(),
		NewCommandLineSource(args),
	}
}

// LoadFromSources loads configuration from multiple sources.
func LoadFromSources(config *Config, sources []Source, paths []string) error {
	multiSource := NewMultiSource(sources...)
	return multiSource.Load(config, paths)
}
