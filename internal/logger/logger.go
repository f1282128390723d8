// Package logger wraps zerolog behind go-logr's Logger interface, the
// logging convention carried over from the reference bundler: every
// component accepts a logr.Logger rather than a concrete zerolog type.
package logger

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
)

func init() {
	zerologr.VerbosityFieldName = ""
}

// NewZeroLogr returns a console-writer zerolog logger adapted to logr.Logger.
func NewZeroLogr() logr.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	zl := zerolog.New(out).With().Timestamp().Logger()
	return zerologr.New(&zl)
}
