package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"traffic-worker-go/internal/config"
)

// NewFileWriter returns a size-rotated JSON log file
func NewFileWriter(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // megabytes
		MaxBackups: 7,
		MaxAge:     7, // days
		Compress:   false,
	}
}

// Setup replaces the global logger with a console writer plus the optional
// file and Logdy sinks named in cfg. The returned func closes the file sink.
func Setup(cfg *config.Config) (func() error, error) {
	zerolog.TimeFieldFormat = time.RFC3339

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}}
	closeFn := func() error { return nil }

	if cfg.LogFile != "" {
		fw := NewFileWriter(cfg.LogFile)
		writers = append(writers, fw)
		closeFn = fw.Close
	}

	var sink *LogdySink
	if cfg.LogdyEnabled {
		var err error
		if sink, err = StartLogdy(cfg); err != nil {
			return closeFn, err
		}
		writers = append(writers, sink)
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	if sink != nil {
		log.Info().Str("url", sink.URL).Msg("Logdy UI available")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	return closeFn, nil
}
