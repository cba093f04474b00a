// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/lumen/compose"
	"github.com/gogpu/lumen/gpu"
	"github.com/gogpu/lumen/graph"
	"github.com/gogpu/lumen/raytrace"
	"github.com/gogpu/lumen/ui"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for lumen and all its sub-packages.
// By default, lumen produces no log output.
//
// Log levels used by lumen:
//   - [slog.LevelDebug]: per-resource diagnostics (buffers, pipelines, passes)
//   - [slog.LevelInfo]: lifecycle events (adapter selected, graph built, resize)
//   - [slog.LevelWarn]: recoverable issues (out-of-date swapchain, dropped events)
//
// Pass nil to restore the silent default.
//
//	lumen.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
	graph.SetLogger(l)
	raytrace.SetLogger(l)
	compose.SetLogger(l)
	ui.SetLogger(l)
}

// Logger returns the current logger used by lumen.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func slogger() *slog.Logger { return loggerPtr.Load() }
