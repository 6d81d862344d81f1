package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var Log = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init initializes the global logger. Development logs at debug, everything
// else at info; a non-empty level overrides both. An unknown level keeps the
// environment default and is reported.
func Init(env, level string) error {
	zerolog.TimeFieldFormat = time.RFC3339

	if env == "development" {
		Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).
			Level(zerolog.DebugLevel).
			With().
			Timestamp().
			Caller().
			Logger()
	} else {
		Log = zerolog.New(os.Stdout).
			Level(zerolog.InfoLevel).
			With().
			Timestamp().
			Logger()
	}

	if level == "" {
		return nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	Log = Log.Level(lvl)
	return nil
}

// SetOutput redirects the global logger, used by tests to silence output.
func SetOutput(w io.Writer) {
	Log = Log.Output(w)
}

func Info() *zerolog.Event {
	return Log.Info()
}

func Error() *zerolog.Event {
	return Log.Error()
}

func Warn() *zerolog.Event {
	return Log.Warn()
}

func Debug() *zerolog.Event {
	return Log.Debug()
}

func Fatal() *zerolog.Event {
	return Log.Fatal()
}
