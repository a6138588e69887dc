package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds the service-wide structured logger. Unknown level names fall
// back to info.
func New(level, service string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}
