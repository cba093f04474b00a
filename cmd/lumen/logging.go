// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/gogpu/lumen"
)

// setupLogging routes library logs to stderr at the level selected by the
// global verbosity flags.
func setupLogging(ctx *cli.Context) error {
	level := slog.LevelWarn
	switch {
	case ctx.GlobalBool("vv"):
		level = slog.LevelDebug
	case ctx.GlobalBool("v"):
		level = slog.LevelInfo
	}
	lumen.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}
