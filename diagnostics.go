package compositor

import (
	"context"
	"log/slog"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message
// formatting entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// NopLogger returns a logger that silently discards all output.
func NopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// Diagnostics carries the renderer's observability configuration: an
// injectable structured logger plus trace toggles for debugging
// specific render paths. It is an immutable value constructed with
// NewDiagnostics and passed into components at construction; there is
// no ambient global state. The zero value is silent.
type Diagnostics struct {
	logger *slog.Logger

	traceLines     bool
	tracePaths     bool
	traceWarm      bool
	sampleInterval int
}

// DiagnosticsOption configures a Diagnostics value.
type DiagnosticsOption func(*Diagnostics)

// WithLogger injects the structured logger all diagnostics flow
// through. A nil logger leaves the default nop logger in place.
func WithLogger(logger *slog.Logger) DiagnosticsOption {
	return func(d *Diagnostics) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithLineTracing enables trace logs for polyline rendering.
func WithLineTracing() DiagnosticsOption {
	return func(d *Diagnostics) { d.traceLines = true }
}

// WithPathTracing enables trace logs for path bounds and draw runs.
func WithPathTracing() DiagnosticsOption {
	return func(d *Diagnostics) { d.tracePaths = true }
}

// WithWarmPrimitiveTracing enables trace logs for unusually
// warm-colored primitives, useful when hunting stray debug fills.
func WithWarmPrimitiveTracing() DiagnosticsOption {
	return func(d *Diagnostics) { d.traceWarm = true }
}

// WithSampleInterval sets how many trace events are skipped between
// emitted ones. Zero or one emits every event.
func WithSampleInterval(n int) DiagnosticsOption {
	return func(d *Diagnostics) { d.sampleInterval = n }
}

// NewDiagnostics builds a diagnostics configuration.
func NewDiagnostics(opts ...DiagnosticsOption) Diagnostics {
	d := Diagnostics{}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Logger returns the configured logger, or a nop logger when none was
// injected. The result is never nil.
func (d Diagnostics) Logger() *slog.Logger {
	if d.logger == nil {
		return NopLogger()
	}
	return d.logger
}

// TraceLines reports whether polyline trace logging is enabled.
func (d Diagnostics) TraceLines() bool { return d.traceLines }

// TracePaths reports whether path trace logging is enabled.
func (d Diagnostics) TracePaths() bool { return d.tracePaths }

// TraceWarmPrimitives reports whether warm-primitive tracing is
// enabled.
func (d Diagnostics) TraceWarmPrimitives() bool { return d.traceWarm }

// SampleInterval returns the trace sampling interval, at least 1.
func (d Diagnostics) SampleInterval() int {
	if d.sampleInterval < 1 {
		return 1
	}
	return d.sampleInterval
}

// IsWarmColor reports whether c is in the orange-red range the warm
// tracer watches for.
func IsWarmColor(c Color) bool {
	return c.R > 0.8 && c.G < 0.6 && c.B < 0.4 && c.A > 0
}
