package config

// Config represents the complete configuration for a search run.
type Config struct {
	// Search loop configuration
	Search SearchConfig `yaml:"search,omitempty" validate:"omitempty"`

	// Archive (behavior grid) configuration
	Archive ArchiveConfig `yaml:"archive,omitempty" validate:"omitempty"`

	// Surrogate estimator configuration
	Estimator EstimatorConfig `yaml:"estimator,omitempty" validate:"omitempty"`

	// Grammar configuration
	Grammar GrammarConfig `yaml:"grammar,omitempty" validate:"omitempty"`

	// Hull post-processing configuration
	Hull HullConfig `yaml:"hull,omitempty" validate:"omitempty"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,omitempty" validate:"omitempty"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage,omitempty" validate:"omitempty"`
}

// SearchConfig holds the generation-loop parameters.
type SearchConfig struct {
	// Size of the initial populations
	PopSize int `yaml:"pop_size" validate:"min=1"`

	// Number of attempts when bulk-generating the initial populations
	NRetries int `yaml:"n_retries" validate:"min=1"`

	// Age assigned to freshly evaluated individuals
	MaxAge int `yaml:"max_age" validate:"min=1"`

	// Generations between surrogate fitness realignments
	AlignmentInterval int `yaml:"alignment_interval" validate:"min=1"`

	// Number of generations to run (0 = until stopped)
	Generations int `yaml:"generations" validate:"min=0"`

	// Goroutines used for per-generation fan-out
	Workers int `yaml:"workers" validate:"min=1"`

	// Seed for the run RNG (0 = time-based)
	Seed int64 `yaml:"seed"`
}

// ArchiveConfig holds the behavior-grid parameters.
type ArchiveConfig struct {
	// Initial number of bins per axis
	BinsX int `yaml:"bins_x" validate:"min=1"`
	BinsY int `yaml:"bins_y" validate:"min=1"`

	// Per-population cap within each bin
	BinPopSize int `yaml:"bin_pop_size" validate:"min=1"`

	// Fitness assigned by an untrained estimator
	EpsilonF float64 `yaml:"epsilon_f" validate:"min=0"`

	// Order statistic used for infeasible composite fitness (0 min, 1 median, 2 max)
	InfeasFitnessIdx int `yaml:"infeas_fitness_idx" validate:"min=0,max=2"`

	// Whether individuals age each generation
	AllowAging bool `yaml:"allow_aging"`

	// Whether bins may subdivide when saturated
	AllowResIncrease bool `yaml:"allow_res_increase"`

	// Whether interactive steps must select exactly one bin
	EnforceQnt bool `yaml:"enforce_qnt"`

	// Emitter used by emitter-driven steps
	Emitter string `yaml:"emitter" validate:"omitempty,emitter_name"`
}

// EstimatorConfig holds the surrogate-model parameters.
type EstimatorConfig struct {
	// Estimator kind; empty disables the surrogate
	Kind string `yaml:"kind" validate:"omitempty,estimator_kind"`

	// Capacity of the training buffer
	BufferSize int `yaml:"buffer_size" validate:"min=1"`

	// Hidden layer width for the MLP estimators
	HiddenSize int `yaml:"hidden_size" validate:"min=1"`

	// Training epochs per fit
	Epochs int `yaml:"epochs" validate:"min=1"`

	// SGD learning rate
	LearningRate float64 `yaml:"learning_rate" validate:"gt=0"`
}

// DimRange is an inclusive size interval along one structure axis.
type DimRange struct {
	Min int `yaml:"min" validate:"min=0"`
	Max int `yaml:"max" validate:"min=0"`
}

// Contains reports whether v lies within the range.
func (r DimRange) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// GrammarConfig holds the production-engine parameters.
type GrammarConfig struct {
	// Normalization bounds for structure dimensions
	MaxXSize int `yaml:"max_x_size" validate:"min=1"`
	MaxYSize int `yaml:"max_y_size" validate:"min=1"`
	MaxZSize int `yaml:"max_z_size" validate:"min=1"`

	// Expansion iterations for the central module
	Iterations int `yaml:"iterations" validate:"min=1"`

	// Valid structure dimension ranges
	XRange DimRange `yaml:"x_range"`
	YRange DimRange `yaml:"y_range"`
	ZRange DimRange `yaml:"z_range"`
}

// HullConfig holds the hull post-processor parameters.
type HullConfig struct {
	// Erosion kind (bin or grey)
	Erosion string `yaml:"erosion" validate:"omitempty,oneof=bin grey"`

	// Whether to erode the hull mask
	ApplyErosion bool `yaml:"apply_erosion"`

	// Whether to smooth hull blocks into slopes and corners
	ApplySmoothing bool `yaml:"apply_smoothing"`

	// Erosion iterations for binary erosion
	Iterations int `yaml:"iterations" validate:"min=1"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Log level (DEBUG, INFO, WARN, ERROR, FATAL)
	Level string `yaml:"level" validate:"omitempty,log_level"`

	// Output configurations
	Outputs []LogOutputConfig `yaml:"outputs"`

	// Sampling rate for high-frequency events
	SampleRate uint32 `yaml:"sample_rate"`

	// Default fields to include in all logs
	DefaultFields map[string]interface{} `yaml:"default_fields"`
}

// LogOutputConfig represents a logging output destination.
type LogOutputConfig struct {
	// Type of output (console, trace)
	Type string `yaml:"type" validate:"required,output_type"`

	// File path (for trace outputs)
	FilePath string `yaml:"file_path"`

	// Whether to use colors (for console outputs)
	Colors bool `yaml:"colors"`

	// Log rotation configuration
	Rotation LogRotationConfig `yaml:"rotation"`
}

// LogRotationConfig holds trace rotation settings.
type LogRotationConfig struct {
	// Maximum file size in bytes before rotation
	MaxSize int64 `yaml:"max_size" validate:"min=0"`

	// Maximum number of old files to retain
	MaxFiles int `yaml:"max_files" validate:"min=0"`
}

// StorageConfig holds run-store configuration.
type StorageConfig struct {
	// Store backend (sqlite, memory)
	Type string `yaml:"type" validate:"omitempty,backend_type"`

	// Database path for the sqlite backend
	Path string `yaml:"path"`

	// Enable SQLite write-ahead logging
	WAL bool `yaml:"wal"`
}

// Validate validates the configuration using the default validator.
func (c *Config) Validate() error {
	validator, err := NewValidator()
	if err != nil {
		return err
	}
	return validator.ValidateConfig(c)
}
