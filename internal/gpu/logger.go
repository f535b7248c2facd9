package gpu

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// discardHandler drops every record. Enabled reports false so Frame.Step
// skips building its per-submission debug attributes.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

// DiscardLogger returns a logger that writes nothing.
func DiscardLogger() *slog.Logger { return slog.New(discardHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(DiscardLogger())
}

// slogger is the logger behind every message of the gpu layer:
//   - Debug: binding layout, pipeline and state creation, each frame submission
//   - Info: surface reconfiguration after a lost or outdated texture
//   - Warn: grid sizes that leave edge cells unsimulated, simulate programs
//     whose workgroup size does not match the dispatch
//   - Error: a failed frame or readback submission that loses the frame
func slogger() *slog.Logger { return loggerPtr.Load() }

// SetLogger replaces the gpu layer logger; nil discards again. The engine
// package forwards its own SetLogger here.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = DiscardLogger()
	}
	loggerPtr.Store(l)
}
