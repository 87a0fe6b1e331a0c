package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewError tests the basic creation of errors.
func TestNewError(t *testing.T) {
	tests := []struct {
		name    string
		code    ErrorCode
		message string
	}{
		{
			name:    "ValidationFailed",
			code:    ValidationFailed,
			message: "validation failed",
		},
		{
			name:    "UnsupportedEstimator",
			code:    UnsupportedEstimator,
			message: "unrecognized estimator kind",
		},
		{
			name:    "EmptyBuffer",
			code:    EmptyBuffer,
			message: "buffer is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)

			customErr, ok := err.(*Error)

			assert.True(t, ok, "should be a custom *Error")
			assert.Equal(t, tt.code, customErr.Code())
			assert.Equal(t, tt.message, customErr.Error())

			// Test nil original error for new errors
			assert.Nil(t, customErr.Unwrap())
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(UnsupportedEmitter, "unknown emitter %q", "optimising-v3")
	customErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, UnsupportedEmitter, customErr.Code())
	assert.Equal(t, `unknown emitter "optimising-v3"`, customErr.Error())
}

// TestWrapError tests error wrapping functionality.
func TestWrapError(t *testing.T) {
	originalErr := stderrors.New("original error")

	tests := []struct {
		name       string
		err        error
		code       ErrorCode
		wrapMsg    string
		expectNil  bool
		expectCode ErrorCode
	}{
		{
			name:       "Wrap normal error",
			err:        originalErr,
			code:       EvolutionFailed,
			wrapMsg:    "offspring generation context",
			expectNil:  false,
			expectCode: EvolutionFailed,
		},
		{
			name:      "Wrap nil error",
			err:       nil,
			code:      EvolutionFailed,
			wrapMsg:   "offspring generation context",
			expectNil: true,
		},
		{
			name:       "Wrap custom error",
			err:        New(ResourceNotFound, "not found"),
			code:       ValidationFailed,
			wrapMsg:    "validation context",
			expectNil:  false,
			expectCode: ValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := Wrap(tt.err, tt.code, tt.wrapMsg)

			if tt.expectNil {
				assert.Nil(t, wrapped)
				return
			}

			assert.NotNil(t, wrapped)

			ourErr := wrapped.(*Error)
			assert.Equal(t, tt.expectCode, ourErr.Code())
			assert.Contains(t, ourErr.Error(), tt.wrapMsg)

			// Verify original error is preserved
			unwrapped := ourErr.Unwrap()
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), unwrapped.Error())
			}
		})
	}
}

// TestErrorInterfaces tests compliance with Go error interfaces.
func TestErrorInterfaces(t *testing.T) {
	t.Run("errors.Is support", func(t *testing.T) {
		err1 := New(EvolutionFailed, "first")
		err2 := New(EvolutionFailed, "second")
		err3 := New(EmptyBuffer, "third")

		assert.True(t, stderrors.Is(err1, err2),
			"Errors with same code should match with Is")
		assert.False(t, stderrors.Is(err1, err3),
			"Errors with different codes should not match with Is")
	})

	t.Run("errors.As support", func(t *testing.T) {
		originalErr := New(ValidationFailed, "original")
		wrappedErr := Wrap(originalErr, ResourceNotFound, "wrapped")

		var customErr *Error
		assert.True(t, stderrors.As(wrappedErr, &customErr),
			"Should be able to extract custom error type")
		assert.Equal(t, ResourceNotFound, customErr.Code())
	})

	t.Run("error unwrapping", func(t *testing.T) {
		baseErr := stderrors.New("base error")
		wrapped := Wrap(baseErr, ValidationFailed, "wrapped error")

		unwrapped := stderrors.Unwrap(wrapped)
		assert.Equal(t, baseErr.Error(), unwrapped.Error())
	})
}

// TestErrorString tests the string representation of errors.
func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "Simple error",
			err:      New(ValidationFailed, "validation failed"),
			contains: []string{"validation failed"},
		},
		{
			name: "Wrapped error",
			err: Wrap(
				stderrors.New("original problem"),
				ValidationFailed,
				"validation context",
			),
			contains: []string{
				"validation context",
				"original problem",
			},
		},
		{
			name: "Multiple wraps",
			err: Wrap(
				Wrap(
					stderrors.New("root cause"),
					ResourceNotFound,
					"not found",
				),
				EvolutionFailed,
				"evolution failed",
			),
			contains: []string{
				"evolution failed",
				"not found",
				"root cause",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errString := tt.err.Error()
			for _, str := range tt.contains {
				assert.Contains(t, errString, str,
					"Error string should contain expected message")
			}
		})
	}
}

func TestErrorFields(t *testing.T) {
	t.Run("Empty fields", func(t *testing.T) {
		err := New(ValidationFailed, "error")
		customErr := err.(*Error)
		assert.Empty(t, customErr.Fields())
	})

	t.Run("Add fields", func(t *testing.T) {
		fields := Fields{
			"generation": 12,
			"bin":        "(3,4)",
			"feasible":   true,
		}
		err := WithFields(New(EvolutionFailed, "error"), fields)
		customErr := err.(*Error)
		assert.Equal(t, fields, customErr.Fields())
	})

	t.Run("Merge fields", func(t *testing.T) {
		err := WithFields(New(ValidationFailed, "error"), Fields{"a": 1})
		err = WithFields(err, Fields{"b": 2})
		customErr := err.(*Error)
		assert.Len(t, customErr.Fields(), 2)
		assert.Equal(t, 1, customErr.Fields()["a"])
		assert.Equal(t, 2, customErr.Fields()["b"])
	})

	t.Run("Fields returns copy not reference", func(t *testing.T) {
		err := WithFields(New(ValidationFailed, "error"), Fields{"key": "original"})
		customErr := err.(*Error)

		returned := customErr.Fields()
		returned["key"] = "modified"

		assert.Equal(t, "original", customErr.Fields()["key"])
	})
}

// TestWithFieldsEdgeCases tests edge cases in WithFields.
func TestWithFieldsEdgeCases(t *testing.T) {
	t.Run("WithFields on nil error", func(t *testing.T) {
		result := WithFields(nil, Fields{"key": "value"})
		assert.Nil(t, result)
	})

	t.Run("WithFields on non-Error type", func(t *testing.T) {
		baseErr := stderrors.New("base error")
		fields := Fields{"context": "test"}

		result := WithFields(baseErr, fields)
		assert.NotNil(t, result)

		customErr, ok := result.(*Error)
		require.True(t, ok)
		assert.Equal(t, Unknown, customErr.Code())
		assert.Equal(t, "test", customErr.Fields()["context"])
	})

	t.Run("WithFields field overwriting", func(t *testing.T) {
		err := WithFields(
			New(ValidationFailed, "test"),
			Fields{"key": "original", "other": "value"},
		)

		result := WithFields(err, Fields{"key": "overwritten", "new": "added"})

		customErr, ok := result.(*Error)
		require.True(t, ok)
		fields := customErr.Fields()
		assert.Equal(t, "overwritten", fields["key"])
		assert.Equal(t, "value", fields["other"])
		assert.Equal(t, "added", fields["new"])
	})
}

// CustomError is a test error type that's not our Error type.
type CustomError struct {
	msg string
}

func (c *CustomError) Error() string {
	return c.msg
}

func TestErrorAsMethod(t *testing.T) {
	t.Run("As method with correct target type", func(t *testing.T) {
		err := New(ValidationFailed, "validation error")
		var customErr *Error

		assert.True(t, stderrors.As(err, &customErr))
		assert.NotNil(t, customErr)
		assert.Equal(t, ValidationFailed, customErr.Code())
	})

	t.Run("As method with incorrect target type", func(t *testing.T) {
		err := New(ValidationFailed, "validation error")
		var wrongType *CustomError

		assert.False(t, stderrors.As(err, &wrongType))
		assert.Nil(t, wrongType)
	})

	t.Run("As method with non-pointer target", func(t *testing.T) {
		err := New(ValidationFailed, "validation error")
		customErr := err.(*Error)

		var wrongType string
		assert.False(t, customErr.As(wrongType))
	})
}

func TestErrorIsEdgeCases(t *testing.T) {
	t.Run("Is method with non-Error target", func(t *testing.T) {
		err := New(ValidationFailed, "test")
		baseErr := stderrors.New("base error")

		customErr := err.(*Error)
		assert.False(t, customErr.Is(baseErr))
	})

	t.Run("Is method with nil target", func(t *testing.T) {
		err := New(ValidationFailed, "test")
		customErr := err.(*Error)
		assert.False(t, customErr.Is(nil))
	})

	t.Run("Is method with same instance", func(t *testing.T) {
		err := New(ValidationFailed, "test")
		customErr := err.(*Error)
		assert.True(t, customErr.Is(customErr))
	})
}

// TestAllErrorCodes ensures every code constructs and round-trips.
func TestAllErrorCodes(t *testing.T) {
	testCases := []struct {
		code ErrorCode
		name string
	}{
		{Unknown, "Unknown"},
		{InvalidInput, "InvalidInput"},
		{ValidationFailed, "ValidationFailed"},
		{ResourceNotFound, "ResourceNotFound"},
		{Timeout, "Timeout"},
		{Canceled, "Canceled"},
		{EvolutionFailed, "EvolutionFailed"},
		{EmptyBuffer, "EmptyBuffer"},
		{GenerationFailed, "GenerationFailed"},
		{UnsupportedEstimator, "UnsupportedEstimator"},
		{UnsupportedEmitter, "UnsupportedEmitter"},
		{UnsupportedAgent, "UnsupportedAgent"},
		{UnsupportedMetric, "UnsupportedMetric"},
		{ContentAlreadySet, "ContentAlreadySet"},
		{InvalidMountpoint, "InvalidMountpoint"},
		{InvalidBinIndex, "InvalidBinIndex"},
		{NoValidBins, "NoValidBins"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := New(tc.code, "test error")
			customErr, ok := err.(*Error)
			require.True(t, ok)
			assert.Equal(t, tc.code, customErr.Code())
		})
	}
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"EvolutionFailed is recoverable", New(EvolutionFailed, "no offspring"), true},
		{"EmptyBuffer is recoverable", New(EmptyBuffer, "nothing to train on"), true},
		{"UnsupportedEstimator is fatal", New(UnsupportedEstimator, "bad kind"), false},
		{"ContentAlreadySet is fatal", New(ContentAlreadySet, "set twice"), false},
		{"plain error is fatal", stderrors.New("boom"), false},
		{"wrapped recoverable keeps code", Wrap(stderrors.New("inner"), EmptyBuffer, "outer"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRecoverable(tt.err))
		})
	}
}

// TestErrorChainIntegration tests complex error chains.
func TestErrorChainIntegration(t *testing.T) {
	t.Run("Deep error chain with fields", func(t *testing.T) {
		baseErr := stderrors.New("rule expansion produced no tokens")

		level1 := Wrap(baseErr, GenerationFailed, "axiom expansion failed")
		level1 = WithFields(level1, Fields{"module": "body"})

		level2 := Wrap(level1, EvolutionFailed, "offspring pool empty")
		level2 = WithFields(level2, Fields{"generation": 7})

		finalErr := level2.(*Error)
		assert.Equal(t, EvolutionFailed, finalErr.Code())
		assert.Contains(t, finalErr.Error(), "offspring pool empty")
		assert.Contains(t, finalErr.Error(), "axiom expansion failed")
		assert.Contains(t, finalErr.Error(), "rule expansion produced no tokens")
		assert.Contains(t, finalErr.Error(), "generation=7")

		unwrapped := finalErr.Unwrap().(*Error)
		assert.Equal(t, GenerationFailed, unwrapped.Code())
		assert.Contains(t, unwrapped.Fields()["module"], "body")
	})
}
