package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"udis/internal/mpy"
)

// newLogger returns a console logger on stderr.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// logFile reports a decoded file and its diagnostics.
func logFile(log zerolog.Logger, path string, f *mpy.File) {
	log.Info().
		Str("file", path).
		Uint8("version", uint8(f.Header.Version)).
		Str("arch", f.Header.Arch().String()).
		Int("window", f.WindowSize).
		Int("code_objects", f.Root.Count()).
		Int("qstrs", f.Table.Len()).
		Msg("decoded")
	for _, d := range f.Diags {
		log.Warn().
			Str("kind", string(d.Kind)).
			Uint64("offset", d.Offset).
			Msg(d.Msg)
	}
}
