package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(DefaultLoggingConfig())
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)

	logger, err = NewLogger(LoggingConfig{Level: "debug", Format: "JSON"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestNewLoggerRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config LoggingConfig
		field  string
	}{
		{"unknown level", LoggingConfig{Level: "loud", Format: "text"}, "logging.level"},
		{"unknown format", LoggingConfig{Level: "info", Format: "xml"}, "logging.format"},
		{"empty level", LoggingConfig{Format: "text"}, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.config)
			require.Error(t, err)
			assert.Nil(t, logger)
			assert.True(t, errors.IsConfigurationError(err))

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, errors.CodeInvalidLogging, appErr.Code)
			assert.Contains(t, appErr.Context, tt.field)
		})
	}
}
