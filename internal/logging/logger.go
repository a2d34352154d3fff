// Package logging configures the zerolog logger used by cperconv.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvLevel names the environment variable that sets the log level when no
// flag does.
const EnvLevel = "CPERCONV_LOG_LEVEL"

// ResolveLevel picks the log level: the flag first, then EnvLevel, then the
// config file, then "info".
func ResolveLevel(flag, file string) string {
	if flag = strings.TrimSpace(flag); flag != "" {
		return flag
	}
	if env := strings.TrimSpace(os.Getenv(EnvLevel)); env != "" {
		return env
	}
	if file = strings.TrimSpace(file); file != "" {
		return file
	}

	return "info"
}

// New builds a console logger writing to w at level and installs it as the
// global logger. A nil w writes to stderr, leaving stdout for converted
// output.
func New(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
	}
	if w == nil {
		w = os.Stderr
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).Level(lvl).With().Timestamp().Str("app", "cperconv").Logger()
	log.Logger = logger

	return logger, nil
}
