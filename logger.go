package life

import (
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/life/internal/gpu"
	"github.com/gogpu/wgpu/hal"
)

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(gpu.DiscardLogger())
}

// SetLogger routes the engine's messages to l, along with those of the gpu
// layer beneath it and the wgpu HAL. Engines are silent until it is called;
// nil silences them again. It may be called while engines are running.
//
// The engine logs its own creation and Close at [slog.LevelInfo], with the
// grid, dispatch and live cell counts. Resource creation and every submitted
// frame are logged at [slog.LevelDebug]; a grid that is not a multiple of the
// workgroup size at [slog.LevelWarn]; a submission that loses the engine at
// [slog.LevelError].
//
// The golife command passes a text handler at debug level when run with -v:
//
//	life.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = gpu.DiscardLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
	hal.SetLogger(l)
}

// Logger returns the logger set by SetLogger. The golife command hands it to
// device selection so adapter choice is logged alongside the engine.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
