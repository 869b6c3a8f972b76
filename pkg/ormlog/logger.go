// SPDX-License-Identifier: Apache-2.0

// Package ormlog carries the logging seam used by the persistence engine
// and the CLI: a small interface with a no-op implementation for tests and
// a pterm-backed implementation for interactive use.
package ormlog

import "github.com/pterm/pterm"

// Logger is the logging seam used throughout ormkit. Non-fatal conditions
// the engine wants surfaced but cannot return as an error (a zero-row
// UPDATE, a flush rollback) go through Warn; everything else goes
// through Info.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type ormLogger struct {
	logger pterm.Logger
}

type noopLogger struct{}

// NewLogger returns a Logger backed by pterm's default logger, used by the
// CLI.
func NewLogger() Logger {
	return &ormLogger{logger: pterm.DefaultLogger}
}

// NewNoopLogger returns a Logger whose methods do nothing, used where no
// Logger is configured.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

func (l *ormLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, l.logger.Args(args))
}

func (l *ormLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, l.logger.Args(args))
}

func (l *noopLogger) Info(msg string, args ...any) {}

func (l *noopLogger) Warn(msg string, args ...any) {}
