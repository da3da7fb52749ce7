package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arx-deidentifier/gta-benchmark/internal/population"
	"github.com/arx-deidentifier/gta-benchmark/internal/storage"
	"github.com/arx-deidentifier/gta-benchmark/internal/utils/encoding"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/interfaces"
)

func NewPopulationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "population",
		Short: "Inspect and publish the population frequency table",
	}

	cmd.AddCommand(newPopulationLookupCmd())
	cmd.AddCommand(newPopulationPublishCmd())

	return cmd
}

type LookupOptions struct {
	Labels []string
}

func newPopulationLookupCmd() *cobra.Command {
	opts := &LookupOptions{}

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Print the population size of one combination of labels",
		Long: `Look up how many individuals of the population share a combination of
quasi-identifier labels. Labels are given in record field order; combinations
absent from the table have size 0.`,
		Example: `  gta-cli population lookup --labels male,12345,30,white`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Labels, "labels", nil, "Labels in record field order (required)")
	cmd.MarkFlagRequired("labels")

	return cmd
}

func runLookup(cmd *cobra.Command, opts *LookupOptions) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	table, err := rt.populationTable(cmd.Context())
	if err != nil {
		return err
	}
	if len(opts.Labels) != table.Dimensions() {
		return errors.NewConfigurationError(errors.CodeInvalidDomain,
			fmt.Sprintf("%d labels given, the table has %d dimensions", len(opts.Labels), table.Dimensions()))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%g\n", strings.Join(opts.Labels, ","), table.LookupGroupSize(opts.Labels))
	return nil
}

type PublishOptions struct {
	Vocabulary  string
	Frequencies string
}

func newPopulationPublishCmd() *cobra.Command {
	opts := &PublishOptions{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload local population tables to the configured reference source",
		Long: `Copy a vocabulary and a frequency table into the configured reference source
under the configured names. Names ending in .gz are stored compressed.`,
		Example: `  GTA_POPULATION_SOURCE_TYPE=s3 gta-cli population publish \
    --vocabulary vocabulary.csv --frequencies frequencies.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Vocabulary, "vocabulary", "", "Local vocabulary table (required)")
	cmd.Flags().StringVar(&opts.Frequencies, "frequencies", "", "Local frequency table (required)")
	cmd.MarkFlagRequired("vocabulary")
	cmd.MarkFlagRequired("frequencies")

	return cmd
}

func runPublish(cmd *cobra.Command, opts *PublishOptions) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()
	ctx := cmd.Context()

	source, err := storage.NewFactory(rt.logger).CreateSource(ctx, &rt.config.Population.Source)
	if err != nil {
		return err
	}
	defer source.Close()

	publisher, ok := source.(interfaces.ReferencePublisher)
	if !ok {
		return errors.NewConfigurationError(errors.CodeInvalidSource,
			fmt.Sprintf("source type %q cannot be written", rt.config.Population.Source.Type))
	}

	// the tables must parse before anything is written
	vocabulary, err := readTable(opts.Vocabulary)
	if err != nil {
		return err
	}
	frequencies, err := readTable(opts.Frequencies)
	if err != nil {
		return err
	}
	popts := rt.config.PopulationOptions()
	table, err := population.Build(bytes.NewReader(vocabulary), bytes.NewReader(frequencies), popts)
	if err != nil {
		return err
	}
	rt.logger.WithFields(logrus.Fields{
		"rows":       table.Len(),
		"dimensions": table.Dimensions(),
	}).Info("Validated population tables")

	if err := put(cmd, publisher, popts.VocabularyName, vocabulary); err != nil {
		return err
	}
	return put(cmd, publisher, popts.FrequenciesName, frequencies)
}

// readTable returns the uncompressed content of a local table
func readTable(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapLoadError(err, path, 0, errors.CodeReadFailed, "failed to open table")
	}
	rc, err := encoding.DecompressReader(path, f)
	if err != nil {
		return nil, errors.WrapLoadError(err, path, 0, errors.CodeReadFailed, "failed to decompress table")
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.WrapLoadError(err, path, 0, errors.CodeReadFailed, "failed to read table")
	}
	return data, nil
}

func put(cmd *cobra.Command, publisher interfaces.ReferencePublisher, name string, data []byte) error {
	if encoding.IsGzip(name) {
		compressed, err := encoding.CompressGZIP(data)
		if err != nil {
			return errors.WrapStorageError(err, errors.CodeReadFailed, "failed to compress table")
		}
		data = compressed
	}
	if err := publisher.Put(cmd.Context(), name, bytes.NewReader(data)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Published %s (%d bytes)\n", name, len(data))
	return nil
}
