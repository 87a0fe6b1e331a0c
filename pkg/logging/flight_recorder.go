// Package logging provides structured logging, JSONL trace sessions for
// search runs, and runtime flight recording for failure diagnostics.
package logging

import (
	"os"
	"runtime/trace"
	"sync"
	"time"
)

const defaultFlightWindow = 10 * time.Second

// FlightRecorder keeps a bounded in-memory window of runtime trace data
// while a search runs. The window is cheap to maintain, so it can stay on
// for a whole overnight run and be dumped only when a generation step
// fails, capturing the scheduler and GC activity leading up to the error.
type FlightRecorder struct {
	mu       sync.Mutex
	recorder *trace.FlightRecorder
	config   trace.FlightRecorderConfig
	running  bool
}

// FlightRecorderOption configures a FlightRecorder.
type FlightRecorderOption func(*FlightRecorder)

// WithMinAge sets how far back the trace window reaches. Longer windows
// keep more history at the cost of memory.
func WithMinAge(d time.Duration) FlightRecorderOption {
	return func(fr *FlightRecorder) {
		fr.config.MinAge = d
	}
}

// WithMaxBytes caps the trace window size in bytes. The cap wins over
// MinAge; zero leaves the limit to the runtime.
func WithMaxBytes(n uint64) FlightRecorderOption {
	return func(fr *FlightRecorder) {
		fr.config.MaxBytes = n
	}
}

// NewFlightRecorder builds a recorder with a ten second window unless
// options say otherwise. The recorder is idle until Start.
func NewFlightRecorder(opts ...FlightRecorderOption) *FlightRecorder {
	fr := &FlightRecorder{
		config: trace.FlightRecorderConfig{MinAge: defaultFlightWindow},
	}
	for _, opt := range opts {
		opt(fr)
	}
	fr.recorder = trace.NewFlightRecorder(fr.config)
	return fr
}

// Start begins filling the trace window. Starting an already running
// recorder is a no-op.
func (fr *FlightRecorder) Start() error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.running {
		return nil
	}
	if err := fr.recorder.Start(); err != nil {
		return err
	}
	fr.running = true
	return nil
}

// Stop stops recording. The window contents are discarded.
func (fr *FlightRecorder) Stop() {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if !fr.running {
		return
	}
	fr.recorder.Stop()
	fr.running = false
}

// Enabled reports whether the recorder is currently collecting.
func (fr *FlightRecorder) Enabled() bool {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.running && fr.recorder.Enabled()
}

// Snapshot writes the current window to a file for later inspection with
// go tool trace. A stopped recorder writes nothing and returns nil.
func (fr *FlightRecorder) Snapshot(filename string) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if !fr.running {
		return nil
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fr.recorder.WriteTo(f)
	return err
}

// SnapshotOnError dumps the window when err is non-nil and passes err
// through, so a failing step can be wrapped without extra branching:
//
//	return fr.SnapshotOnError(archive.RandStep(ctx, gen), "step_error.trace")
func (fr *FlightRecorder) SnapshotOnError(err error, filename string) error {
	if err != nil {
		fr.Snapshot(filename)
	}
	return err
}

var (
	globalRecorder     *FlightRecorder
	globalRecorderOnce sync.Once
)

// GlobalFlightRecorder returns the process-wide recorder, or nil when
// InitGlobalFlightRecorder has not been called.
func GlobalFlightRecorder() *FlightRecorder {
	return globalRecorder
}

// InitGlobalFlightRecorder builds and starts the process-wide recorder.
// Only the first call has effect.
func InitGlobalFlightRecorder(opts ...FlightRecorderOption) {
	globalRecorderOnce.Do(func() {
		globalRecorder = NewFlightRecorder(opts...)
		globalRecorder.Start()
	})
}
