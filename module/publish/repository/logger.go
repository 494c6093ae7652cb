package repository

import (
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// zerologAdapter routes retryablehttp's logging into the global logger.
type zerologAdapter struct {
	logger zerolog.Logger
}

var _ retryablehttp.LeveledLogger = zerologAdapter{}

func newLogger() zerologAdapter {
	return zerologAdapter{logger: log.With().Str("component", "http").Logger()}
}

func (l zerologAdapter) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l zerologAdapter) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l zerologAdapter) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Trace().Fields(keysAndValues).Msg(msg)
}

func (l zerologAdapter) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
