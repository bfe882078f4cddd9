// Package logger adapts rs/zerolog to the planner's logging contract.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"

	corelogger "github.com/kilianp07/blockplan/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns a Logger for the given component. The output format follows
// APP_ENV and the minimum level follows LOG_LEVEL (default info).
func New(component string) Logger {
	return NewZerologLogger(component)
}

// SetLevel sets the global minimum level from a name such as "debug" or
// "warn". Unknown names leave the level unchanged and return false.
func SetLevel(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return false
	}
	zerolog.SetGlobalLevel(lvl)
	return true
}

func init() {
	if !SetLevel(os.Getenv("LOG_LEVEL")) {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
