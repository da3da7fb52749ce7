package population

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/interfaces"
)

// Load builds a table from the vocabulary and frequency tables of a reference source
func Load(ctx context.Context, src interfaces.ReferenceSource, opts Options, logger *logrus.Logger) (*Table, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if src == nil {
		return nil, errors.NewConfigurationError(errors.CodeInvalidSource, "reference source cannot be nil")
	}
	if opts.VocabularyName == "" || opts.FrequenciesName == "" {
		return nil, errors.NewConfigurationError(errors.CodeInvalidSource, "vocabulary and frequencies names are required")
	}

	start := time.Now()

	vocabulary, err := src.Open(ctx, opts.VocabularyName)
	if err != nil {
		return nil, errors.WrapLoadError(err, opts.VocabularyName, 0, errors.CodeReadFailed, "failed to open vocabulary")
	}
	defer vocabulary.Close()

	frequencies, err := src.Open(ctx, opts.FrequenciesName)
	if err != nil {
		return nil, errors.WrapLoadError(err, opts.FrequenciesName, 0, errors.CodeReadFailed, "failed to open frequencies")
	}
	defer frequencies.Close()

	table, err := Build(vocabulary, frequencies, opts)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"vocabulary":  opts.VocabularyName,
			"frequencies": opts.FrequenciesName,
			"error":       err,
		}).Error("Failed to load population table")
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"rows":        table.Len(),
		"dimensions":  table.Dimensions(),
		"total":       table.Total(),
		"field_order": []int(table.order),
		"duration":    time.Since(start),
	}).Info("Loaded population table")

	return table, nil
}
