// Package log wires context-scoped logging for limount on top of the
// containerd log package, which in turn fronts logrus. Code should obtain
// its entry via G(ctx) so that fields attached upstream (operation, disk
// index, span ids) follow the call into helpers and goroutines.
package log

import (
	"context"
	"time"

	"github.com/containerd/log"
	"github.com/sirupsen/logrus"
)

// TimeFormat is used when rendering timestamps in log fields and history
// output.
const TimeFormat = log.RFC3339NanoFixed

// G returns the logrus entry scoped to ctx, or the default entry when none
// has been attached.
func G(ctx context.Context) *logrus.Entry {
	return log.G(ctx)
}

// L is the default entry used when no context is available.
var L = log.L

// WithLogger returns a context carrying entry, so that downstream G calls
// resolve to it.
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return log.WithLogger(ctx, entry)
}

// S attaches fields to the logger in ctx and returns the updated context.
func S(ctx context.Context, fields logrus.Fields) context.Context {
	return log.WithLogger(ctx, log.G(ctx).WithFields(fields))
}

// FormatTime renders t in the canonical log format.
func FormatTime(t time.Time) string {
	return t.Format(TimeFormat)
}
