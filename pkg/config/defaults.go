package config

// GetDefaultConfig returns a configuration with sensible default values.
func GetDefaultConfig() *Config {
	return &Config{
		Search:    getDefaultSearchConfig(),
		Archive:   getDefaultArchiveConfig(),
		Estimator: getDefaultEstimatorConfig(),
		Grammar:   getDefaultGrammarConfig(),
		Hull:      getDefaultHullConfig(),
		Logging:   getDefaultLoggingConfig(),
		Storage:   getDefaultStorageConfig(),
	}
}

func getDefaultSearchConfig() SearchConfig {
	return SearchConfig{
		PopSize:           20,
		NRetries:          100,
		MaxAge:            10,
		AlignmentInterval: 10,
		Generations:       25,
		Workers:           4,
		Seed:              0,
	}
}

func getDefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		BinsX:            8,
		BinsY:            8,
		BinPopSize:       5,
		EpsilonF:         1e-4,
		InfeasFitnessIdx: 1,
		AllowAging:       true,
		AllowResIncrease: true,
		EnforceQnt:       true,
		Emitter:          "random",
	}
}

func getDefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		Kind:         "",
		BufferSize:   256,
		HiddenSize:   32,
		Epochs:       20,
		LearningRate: 0.01,
	}
}

func getDefaultGrammarConfig() GrammarConfig {
	return GrammarConfig{
		MaxXSize:   20,
		MaxYSize:   20,
		MaxZSize:   20,
		Iterations: 3,
		XRange:     DimRange{Min: 2, Max: 20},
		YRange:     DimRange{Min: 2, Max: 20},
		ZRange:     DimRange{Min: 2, Max: 20},
	}
}

func getDefaultHullConfig() HullConfig {
	return HullConfig{
		Erosion:        "bin",
		ApplyErosion:   true,
		ApplySmoothing: false,
		Iterations:     2,
	}
}

func getDefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level: "INFO",
		Outputs: []LogOutputConfig{
			{
				Type:   "console",
				Colors: true,
			},
		},
		SampleRate:    0,
		DefaultFields: map[string]interface{}{},
	}
}

func getDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Type: "sqlite",
		Path: "evoship.db",
		WAL:  true,
	}
}

// MergeWithDefaults merges a partial configuration with defaults.
// Zero-valued sections are replaced wholesale with their defaults.
func MergeWithDefaults(partial *Config) *Config {
	if partial == nil {
		return GetDefaultConfig()
	}

	merged := *partial

	if isEmptySearchConfig(merged.Search) {
		merged.Search = getDefaultSearchConfig()
	}
	if isEmptyArchiveConfig(merged.Archive) {
		merged.Archive = getDefaultArchiveConfig()
	}
	if isEmptyEstimatorConfig(merged.Estimator) {
		merged.Estimator = getDefaultEstimatorConfig()
	}
	if isEmptyGrammarConfig(merged.Grammar) {
		merged.Grammar = getDefaultGrammarConfig()
	}
	if isEmptyHullConfig(merged.Hull) {
		merged.Hull = getDefaultHullConfig()
	}
	if isEmptyLoggingConfig(merged.Logging) {
		merged.Logging = getDefaultLoggingConfig()
	}
	if isEmptyStorageConfig(merged.Storage) {
		merged.Storage = getDefaultStorageConfig()
	}

	return &merged
}

func isEmptySearchConfig(config SearchConfig) bool {
	return config.PopSize == 0 && config.NRetries == 0 && config.MaxAge == 0
}

func isEmptyArchiveConfig(config ArchiveConfig) bool {
	return config.BinsX == 0 && config.BinsY == 0 && config.BinPopSize == 0
}

func isEmptyEstimatorConfig(config EstimatorConfig) bool {
	return config.Kind == "" && config.BufferSize == 0 && config.Epochs == 0
}

func isEmptyGrammarConfig(config GrammarConfig) bool {
	return config.MaxXSize == 0 && config.MaxYSize == 0 && config.MaxZSize == 0
}

func isEmptyHullConfig(config HullConfig) bool {
	return config.Erosion == "" && !config.ApplyErosion && !config.ApplySmoothing
}

func isEmptyLoggingConfig(config LoggingConfig) bool {
	return config.Level == "" && len(config.Outputs) == 0
}

func isEmptyStorageConfig(config StorageConfig) bool {
	return config.Type == "" && config.Path == ""
}

// ValidateDefaults verifies that the default configuration passes validation.
func ValidateDefaults() error {
	return GetDefaultConfig().Validate()
}
