// Package klog is a minimal structured-logging seam for the kernel.
//
// The kernel core must stay allocation-free and deterministic on its hot
// path, so it never logs from inside a scheduling decision. The kernel
// consults Logger at one boundary only: Kernel.fail reports each failed
// service call through Error, next to ErrorHook. Callers must use Nop() rather
// than rely on the zero value, which wraps an unconfigured
// zerolog.Logger; Kernel.New does this before applying options, a
// default-disabled posture carried over from this module's event-loop
// ancestor.
package klog

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with the small, fixed set of kernel
// lifecycle events this module ever reports. Backed directly by zerolog
// rather than the pack's generic logiface facade: see DESIGN.md for why a
// single call-site family doesn't warrant the extra indirection.
type Logger struct {
	z zerolog.Logger
}

// New wraps an existing zerolog.Logger.
func New(z zerolog.Logger) Logger {
	return Logger{z: z}
}

// NewConsole builds a human-readable console logger at the given level,
// suitable for cmd/sdvossim trace output.
func NewConsole(level zerolog.Level) Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	return Logger{z: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// Error reports a failed kernel service, mirroring the (service, args...)
// shape ErrorContext records for ErrorHook.
func (l Logger) Error(service string, status string, args ...int32) {
	ev := l.z.Error().Str("service", service).Str("status", status)
	if len(args) > 0 {
		arr := zerolog.Arr()
		for _, a := range args {
			arr.Int32(a)
		}
		ev = ev.Array("args", arr)
	}
	ev.Msg("service failed")
}

// Info logs msg at info level with the given fields. No caller in this
// module uses it.
func (l Logger) Info(msg string, kv map[string]any) {
	ev := l.z.Info()
	for k, v := range kv {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Debug logs msg at debug level with the given fields. No caller in this
// module uses it; the dispatcher does not log.
func (l Logger) Debug(msg string, kv map[string]any) {
	ev := l.z.Debug()
	for k, v := range kv {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Nop returns a logger that discards everything, the default when no
// WithLogger option is supplied.
func Nop() Logger {
	return Logger{z: zerolog.Nop()}
}
