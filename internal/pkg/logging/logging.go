// Package logging configures the process-wide loggers once at startup.
//
// zap is the global error logger (zap.L()); logrus carries progress and
// per-observation lines at a level picked by the -v count.
package logging

import (
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var once sync.Once

// Setup installs the global loggers. Only the first call has any effect.
func Setup(verbosity int, quiet bool) {
	once.Do(func() {
		log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
		log.SetOutput(os.Stderr)
		log.SetLevel(Level(verbosity))
		if quiet {
			log.SetLevel(log.PanicLevel)
			log.SetOutput(io.Discard)
		}

		logger, err := zap.NewDevelopment(zap.AddStacktrace(zapcore.ErrorLevel))
		if err != nil {
			return
		}
		zap.ReplaceGlobals(logger)
	})
}

// Level maps the number of -v flags to a log level.
func Level(verbosity int) log.Level {
	switch {
	case verbosity <= 1:
		return log.ErrorLevel
	case verbosity == 2:
		return log.WarnLevel
	case verbosity == 3:
		return log.InfoLevel
	case verbosity == 4:
		return log.DebugLevel
	default:
		return log.TraceLevel
	}
}
