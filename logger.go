package gpuenc

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"weak"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

// liveDevices holds every device whose backend should follow SetLogger.
var (
	liveMu      sync.Mutex
	liveDevices []weak.Pointer[Device]
)

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for gpuenc and its backends.
// By default, gpuenc produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by gpuenc:
//   - [slog.LevelDebug]: silently dropped commands (overflow, destroyed
//     resources, zero-sized copies) and copy splitting
//   - [slog.LevelWarn]: device validation errors and invalidated encoders
//
// Example:
//
//	gpuenc.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	liveMu.Lock()
	kept := liveDevices[:0]
	for _, wp := range liveDevices {
		if d := wp.Value(); d != nil {
			propagateLogger(d.native, l)
			kept = append(kept, wp)
		}
	}
	clear(liveDevices[len(kept):])
	liveDevices = kept
	liveMu.Unlock()
}

// Logger returns the current logger used by gpuenc.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by backends that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to a backend if it implements
// the loggerSetter interface.
func propagateLogger(native any, l *slog.Logger) {
	if ls, ok := native.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

// trackDevice registers d for logger propagation.
func trackDevice(d *Device) {
	propagateLogger(d.native, Logger())
	liveMu.Lock()
	liveDevices = append(liveDevices, weak.Make(d))
	liveMu.Unlock()
}
