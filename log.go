package engram

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// logger is the process-wide structured logger. Level is gated by the
// TRACE environment variable: unset or "0" keeps info-and-above only,
// matching the teacher's quiet-by-default log.Printf behavior; TRACE=1
// surfaces the trace-level messages used for recovered/degraded paths
// (e.g. VectorIndexUnavailable) that spec.md §7 says must not otherwise
// surface to the caller.
var (
	logOnce sync.Once
	logInst zerolog.Logger
)

func log() *zerolog.Logger {
	logOnce.Do(func() {
		level := zerolog.InfoLevel
		if os.Getenv("TRACE") == "1" {
			level = zerolog.TraceLevel
		}
		logInst = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			Level(level).
			With().Timestamp().Str("component", "engram").Logger()
	})
	return &logInst
}
