package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestConfigValidate tests validation of complete configurations
func TestConfigValidate(t *testing.T) {
	t.Run("Default config is valid", func(t *testing.T) {
		config := GetDefaultConfig()
		err := config.Validate()
		assert.NoError(t, err)
	})

	t.Run("Invalid emitter name", func(t *testing.T) {
		config := GetDefaultConfig()
		config.Archive.Emitter = "simulated-annealing"
		err := config.Validate()
		assert.Error(t, err)
	})

	t.Run("Invalid estimator kind", func(t *testing.T) {
		config := GetDefaultConfig()
		config.Estimator.Kind = "transformer"
		err := config.Validate()
		assert.Error(t, err)
	})

	t.Run("Invalid log level", func(t *testing.T) {
		config := GetDefaultConfig()
		config.Logging.Level = "TRACE"
		err := config.Validate()
		assert.Error(t, err)
	})

	t.Run("Invalid storage backend", func(t *testing.T) {
		config := GetDefaultConfig()
		config.Storage.Type = "postgres"
		err := config.Validate()
		assert.Error(t, err)
	})

	t.Run("Negative pop size", func(t *testing.T) {
		config := GetDefaultConfig()
		config.Search.PopSize = -1
		err := config.Validate()
		assert.Error(t, err)
	})

	t.Run("Infeasible fitness index out of range", func(t *testing.T) {
		config := GetDefaultConfig()
		config.Archive.InfeasFitnessIdx = 3
		err := config.Validate()
		assert.Error(t, err)
	})

	t.Run("Inverted dimension range", func(t *testing.T) {
		config := GetDefaultConfig()
		config.Grammar.XRange = DimRange{Min: 30, Max: 2}
		err := config.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds maximum")
	})

	t.Run("Trace output without file path", func(t *testing.T) {
		config := GetDefaultConfig()
		config.Logging.Outputs = append(config.Logging.Outputs, LogOutputConfig{Type: "trace"})
		err := config.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "file path is required")
	})
}

// TestDimRangeContains tests dimension range membership
func TestDimRangeContains(t *testing.T) {
	r := DimRange{Min: 2, Max: 20}

	tests := []struct {
		name     string
		value    int
		expected bool
	}{
		{name: "Below minimum", value: 1, expected: false},
		{name: "At minimum", value: 2, expected: true},
		{name: "Inside range", value: 10, expected: true},
		{name: "At maximum", value: 20, expected: true},
		{name: "Above maximum", value: 21, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.Contains(tt.value))
		})
	}
}
