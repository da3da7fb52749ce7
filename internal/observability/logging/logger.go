package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/arx-deidentifier/gta-benchmark/pkg/constants"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
)

// LoggingConfig selects the level and the output format of the run logger
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// DefaultLoggingConfig returns info level text output
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  constants.LogLevelInfo,
		Format: constants.LogFormatText,
	}
}

// Validate rejects unknown levels and formats
func (c LoggingConfig) Validate() error {
	ve := errors.NewValidationErrors()
	c.AddValidationErrors(ve)
	return ve.Err()
}

// AddValidationErrors records every invalid field into ve
func (c LoggingConfig) AddValidationErrors(ve *errors.ValidationErrors) {
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		ve.Add("logging.level", errors.CodeInvalidLogging, "debug, info, warn or error", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case constants.LogFormatJSON, constants.LogFormatText:
	default:
		ve.Add("logging.format", errors.CodeInvalidLogging, "json or text", c.Format)
	}
}

// NewLogger builds a logger writing to stderr
func NewLogger(config LoggingConfig) (*logrus.Logger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, _ := logrus.ParseLevel(config.Level)
	logger.SetLevel(level)

	if strings.ToLower(config.Format) == constants.LogFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger, nil
}
