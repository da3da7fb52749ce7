package commands

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arx-deidentifier/gta-benchmark/internal/config"
	"github.com/arx-deidentifier/gta-benchmark/internal/hierarchy"
	"github.com/arx-deidentifier/gta-benchmark/internal/loss"
	"github.com/arx-deidentifier/gta-benchmark/internal/observability/logging"
	"github.com/arx-deidentifier/gta-benchmark/internal/observability/metrics"
	"github.com/arx-deidentifier/gta-benchmark/internal/population"
	"github.com/arx-deidentifier/gta-benchmark/internal/privacy"
	"github.com/arx-deidentifier/gta-benchmark/internal/quality"
	"github.com/arx-deidentifier/gta-benchmark/internal/storage"
	"github.com/arx-deidentifier/gta-benchmark/pkg/constants"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/interfaces"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

// runtime carries what every command needs once the configuration is loaded
type runtime struct {
	config  *config.Config
	logger  *logrus.Logger
	metrics *metrics.PrometheusMetrics
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfgFile, _ := cmd.Root().PersistentFlags().GetString("config")
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = constants.LogLevelDebug
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(cmd.ErrOrStderr())

	pm, err := metrics.NewPrometheusMetrics(&cfg.Metrics, logger)
	if err != nil {
		return nil, err
	}
	if err := pm.Start(cmd.Context()); err != nil {
		return nil, err
	}

	return &runtime{config: cfg, logger: logger, metrics: pm}, nil
}

func (rt *runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.metrics.Stop(ctx); err != nil {
		rt.logger.WithError(err).Warn("Failed to stop metrics server")
	}
}

// populationTable opens the configured reference source and loads the table
func (rt *runtime) populationTable(ctx context.Context) (*population.Table, error) {
	factory := storage.NewFactory(rt.logger)
	source, err := factory.CreateSource(ctx, &rt.config.Population.Source)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	return population.Load(ctx, source, rt.config.PopulationOptions(), rt.logger)
}

// inputOptions locate the dataset and its hierarchies
type inputOptions struct {
	Records          string
	Hierarchies      []string
	QuasiIdentifiers []string
	SampleColumn     string
	Microaggregated  []string
	Delimiter        string
}

func (o *inputOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Records, "records", "r", "", "Records file with a header row (required)")
	cmd.Flags().StringArrayVar(&o.Hierarchies, "hierarchy", nil, "Hierarchy file per quasi-identifier, in record field order (required)")
	cmd.Flags().StringSliceVar(&o.QuasiIdentifiers, "qi", nil, "Quasi-identifier columns (default: hierarchy file names)")
	cmd.Flags().StringVar(&o.SampleColumn, "sample-column", "", "Column marking the released records (1/true/yes)")
	cmd.Flags().StringSliceVar(&o.Microaggregated, "micro", nil, "Integer columns released as aggregates")
	cmd.Flags().StringVarP(&o.Delimiter, "delimiter", "d", constants.DefaultDelimiter, "Column delimiter of all input files")

	cmd.MarkFlagRequired("records")
	cmd.MarkFlagRequired("hierarchy")
}

func (o *inputOptions) delimiter() (rune, error) {
	if utf8.RuneCountInString(o.Delimiter) != 1 {
		return 0, errors.NewConfigurationError(errors.CodeInvalidDomain,
			fmt.Sprintf("delimiter must be a single character, got %q", o.Delimiter))
	}
	r, _ := utf8.DecodeRuneInString(o.Delimiter)
	return r, nil
}

// input is a loaded dataset with its hierarchies and loss model
type input struct {
	hierarchies []*hierarchy.Hierarchy
	dataset     *privacy.Dataset
	partitioner *privacy.Partitioner
	loss        *loss.Model
}

func (o *inputOptions) load(logger *logrus.Logger) (*input, error) {
	delim, err := o.delimiter()
	if err != nil {
		return nil, err
	}

	hierarchies := make([]*hierarchy.Hierarchy, 0, len(o.Hierarchies))
	for _, path := range o.Hierarchies {
		h, err := loadHierarchy(path, delim)
		if err != nil {
			return nil, err
		}
		hierarchies = append(hierarchies, h)
	}

	qis := o.QuasiIdentifiers
	if len(qis) == 0 {
		for _, h := range hierarchies {
			qis = append(qis, h.Name())
		}
	}
	if len(qis) != len(hierarchies) {
		return nil, errors.NewConfigurationError(errors.CodeInvalidDomain,
			fmt.Sprintf("%d quasi-identifiers given for %d hierarchies", len(qis), len(hierarchies)))
	}

	dataset, micro, err := o.readRecords(qis, delim)
	if err != nil {
		return nil, err
	}

	shares := make([]interfaces.DomainShare, len(hierarchies))
	for i, h := range hierarchies {
		shares[i] = h.Shares()
	}
	lossModel, err := loss.NewModel(shares, micro, len(shares), nil)
	if err != nil {
		return nil, err
	}

	partitioner, err := privacy.NewPartitioner(hierarchies, logger)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"records":     dataset.Len(),
		"hierarchies": len(hierarchies),
		"micro":       len(micro),
		"max_il":      lossModel.MaxInformationLoss(),
	}).Info("Loaded input")

	return &input{
		hierarchies: hierarchies,
		dataset:     dataset,
		partitioner: partitioner,
		loss:        lossModel,
	}, nil
}

func loadHierarchy(path string, delim rune) (*hierarchy.Hierarchy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapLoadError(err, path, 0, errors.CodeReadFailed, "failed to open hierarchy")
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return hierarchy.Load(name, f, delim)
}

func (o *inputOptions) readRecords(qis []string, delim rune) (*privacy.Dataset, []interfaces.MicroaggregationFunction, error) {
	f, err := os.Open(o.Records)
	if err != nil {
		return nil, nil, errors.WrapLoadError(err, o.Records, 0, errors.CodeReadFailed, "failed to open records")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = delim
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, errors.WrapLoadError(err, o.Records, 1, errors.CodeReadFailed, "failed to read header")
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	index := func(name string) (int, error) {
		i, ok := columns[name]
		if !ok {
			return 0, errors.NewRowError(o.Records, 1, errors.CodeUnknownDimension,
				fmt.Sprintf("column %q not found", name))
		}
		return i, nil
	}

	qiColumns := make([]int, len(qis))
	for i, name := range qis {
		if qiColumns[i], err = index(name); err != nil {
			return nil, nil, err
		}
	}
	microColumns := make([]int, len(o.Microaggregated))
	for i, name := range o.Microaggregated {
		if microColumns[i], err = index(name); err != nil {
			return nil, nil, err
		}
	}
	sampleColumn := -1
	if o.SampleColumn != "" {
		if sampleColumn, err = index(o.SampleColumn); err != nil {
			return nil, nil, err
		}
	}

	dataset := &privacy.Dataset{}
	if sampleColumn >= 0 {
		dataset.InSubset = []bool{}
	}
	minValues := make([]int, len(microColumns))
	maxValues := make([]int, len(microColumns))

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.WrapLoadError(err, o.Records, line, errors.CodeMalformedRow, "failed to read record")
		}

		labels := make([]string, len(qiColumns))
		for i, c := range qiColumns {
			labels[i] = strings.TrimSpace(record[c])
		}
		dataset.QuasiIdentifiers = append(dataset.QuasiIdentifiers, labels)

		if len(microColumns) > 0 {
			values := make([]int, len(microColumns))
			for i, c := range microColumns {
				v, err := strconv.Atoi(strings.TrimSpace(record[c]))
				if err != nil {
					return nil, nil, errors.WrapLoadError(err, o.Records, line, errors.CodeMalformedRow,
						fmt.Sprintf("column %q is not an integer", o.Microaggregated[i]))
				}
				if len(dataset.Microaggregated) == 0 || v < minValues[i] {
					minValues[i] = v
				}
				if len(dataset.Microaggregated) == 0 || v > maxValues[i] {
					maxValues[i] = v
				}
				values[i] = v
			}
			dataset.Microaggregated = append(dataset.Microaggregated, values)
		}

		if sampleColumn >= 0 {
			dataset.InSubset = append(dataset.InSubset, isTrue(record[sampleColumn]))
		}
	}

	micro := make([]interfaces.MicroaggregationFunction, len(microColumns))
	for i := range microColumns {
		share, err := loss.NewRangeShare(maxValues[i] - minValues[i] + 1)
		if err != nil {
			return nil, nil, err
		}
		micro[i] = share
	}

	return dataset, micro, nil
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// newCriterion builds the criterion of the configured attacker model. The
// census model is only used by the journalist model.
func (rt *runtime) newCriterion(pc privacy.ProfitabilityConfig, in *input, census *privacy.CensusModel) (interfaces.Criterion, error) {
	switch rt.config.AttackerModel() {
	case models.Prosecutor:
		return privacy.NewProsecutor(pc, in.loss, rt.metrics, rt.logger)
	default:
		return privacy.NewJournalist(pc, in.loss, in.dataset.Subset("sample"), census, rt.metrics, rt.logger)
	}
}

// newCensus loads the population table when census correction is enabled
func (rt *runtime) newCensus(ctx context.Context, in *input) (*privacy.CensusModel, error) {
	if !rt.config.Criterion.UseCensus {
		return nil, nil
	}
	table, err := rt.populationTable(ctx)
	if err != nil {
		return nil, err
	}
	hierarchies := make([]interfaces.CensusHierarchy, len(in.hierarchies))
	for i, h := range in.hierarchies {
		hierarchies[i] = h
	}
	return privacy.NewCensusModel(table, hierarchies, rt.metrics, rt.logger)
}

// partitions groups the dataset under every transformation and, when
// suppress is set, marks the classes the criterion rejects as outliers
func partitions(in *input, transformations []models.Transformation, criterion interfaces.Criterion, suppress bool) ([]quality.Partition, error) {
	result := make([]quality.Partition, 0, len(transformations))
	for _, t := range transformations {
		classes, err := in.partitioner.Group(t, in.dataset)
		if err != nil {
			return nil, err
		}
		if suppress {
			if _, err := in.partitioner.Suppress(t, classes, criterion); err != nil {
				return nil, err
			}
		}
		result = append(result, quality.Partition{
			ID:             t.String(),
			Transformation: t,
			Classes:        classes,
		})
	}
	return result, nil
}

func parseTransformations(values []string, in *input) ([]models.Transformation, error) {
	if len(values) == 0 {
		return in.partitioner.Transformations(), nil
	}
	result := make([]models.Transformation, 0, len(values))
	for _, v := range values {
		t, err := models.ParseTransformation(v)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeInvalidDomain, "invalid transformation")
		}
		result = append(result, t)
	}
	return result, nil
}

func sampleSize(d *privacy.Dataset) int {
	if d.InSubset == nil {
		return d.Len()
	}
	n := 0
	for _, released := range d.InSubset {
		if released {
			n++
		}
	}
	return n
}
