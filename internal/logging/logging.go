// Package logging is the zerolog-backed implementation of
// essentials.Logger used by cmd/tgbotd.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/royna2544/tgbotd/essentials"
)

type logger struct {
	z zerolog.Logger
}

// New builds a logger writing to w (os.Stdout by default if w is nil),
// console-pretty-printed when pretty is true and plain JSON lines
// otherwise. Any extra writers (e.g. tgproto.LogFanoutSink) always
// receive plain JSON regardless of pretty, since they're consumed by a
// program rather than a terminal.
func New(w io.Writer, debug, pretty bool, extra ...io.Writer) essentials.Logger {
	if w == nil {
		w = os.Stdout
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	dest := w
	if len(extra) > 0 {
		dest = zerolog.MultiLevelWriter(append([]io.Writer{w}, extra...)...)
	}

	z := zerolog.New(dest).Level(level).With().Timestamp().Logger()

	return logger{z: z}
}

func (l logger) Named(name string) essentials.Logger {
	return logger{z: l.z.With().Str("component", name).Logger()}
}

func (l logger) BindStr(key, value string) essentials.Logger {
	return logger{z: l.z.With().Str(key, value).Logger()}
}

func (l logger) BindInt(key string, value int) essentials.Logger {
	return logger{z: l.z.With().Int(key, value).Logger()}
}

func (l logger) Debug(msg string) {
	l.z.Debug().Msg(msg)
}

func (l logger) Info(msg string) {
	l.z.Info().Msg(msg)
}

func (l logger) Warning(msg string) {
	l.z.Warn().Msg(msg)
}

func (l logger) InfoError(msg string, err error) {
	l.z.Info().Err(err).Msg(msg)
}

func (l logger) WarningError(msg string, err error) {
	l.z.Warn().Err(err).Msg(msg)
}
