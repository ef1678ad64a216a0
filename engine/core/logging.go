package core

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// All packages log through one shared charmbracelet logger so the backends
// never carry logger handles around. The minimum level is read from
// IGLOO_LOG_LEVEL (debug, info, warn, error); unset means debug.
var (
	loggerOnce   sync.Once
	sharedLogger *log.Logger
)

func getLogger() *log.Logger {
	loggerOnce.Do(func() {
		sharedLogger = log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Prefix:          "Igloo 🧊 ",
		})
		sharedLogger.SetLevel(levelFromEnv())
	})
	return sharedLogger
}

func levelFromEnv() log.Level {
	switch strings.ToLower(os.Getenv("IGLOO_LOG_LEVEL")) {
	case "info":
		return log.InfoLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.DebugLevel
	}
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

// LogFatal logs and exits the process.
func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
