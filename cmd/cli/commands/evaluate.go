package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arx-deidentifier/gta-benchmark/internal/quality"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
)

type EvaluateOptions struct {
	Input           inputOptions
	Transformations []string
	NoSuppression   bool
	OutputFormat    string
}

func NewEvaluateCmd() *cobra.Command {
	opts := &EvaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score transformations of a dataset with the re-identification game",
		Long: `Group a dataset into equivalence classes under one or more transformations,
suppress the classes a rational adversary would profitably attack, and score each
transformation with the publisher payout metric.`,
		Example: `  # Score every transformation of the lattice
  gta-cli evaluate --records adult.csv --hierarchy sex.csv --hierarchy age.csv

  # Score two transformations and print JSON
  gta-cli evaluate -r adult.csv --hierarchy sex.csv --hierarchy age.csv \
    --transformation 0,1 --transformation 1,2 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, opts)
		},
	}

	opts.Input.addFlags(cmd)
	cmd.Flags().StringArrayVarP(&opts.Transformations, "transformation", "t", nil, "Generalization levels such as 1,0,2 (default: all)")
	cmd.Flags().BoolVar(&opts.NoSuppression, "no-suppression", false, "Score classes without suppressing unsafe ones")
	cmd.Flags().StringVar(&opts.OutputFormat, "format", "text", "Output format (text, json)")

	return cmd
}

type evaluationReport struct {
	RunID              string                     `json:"run_id"`
	Criterion          string                     `json:"criterion"`
	Metric             string                     `json:"metric"`
	Records            int                        `json:"records"`
	MaxInformationLoss float64                    `json:"max_information_loss"`
	Duration           string                     `json:"duration"`
	Best               string                     `json:"best,omitempty"`
	Results            []*quality.PartitionResult `json:"results"`
}

func runEvaluate(cmd *cobra.Command, opts *EvaluateOptions) error {
	if opts.OutputFormat != "text" && opts.OutputFormat != "json" {
		return errors.NewConfigurationError(errors.CodeInvalidDomain,
			fmt.Sprintf("unsupported output format %q", opts.OutputFormat))
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()
	ctx := cmd.Context()

	in, err := opts.Input.load(rt.logger)
	if err != nil {
		return err
	}
	transformations, err := parseTransformations(opts.Transformations, in)
	if err != nil {
		return err
	}

	census, err := rt.newCensus(ctx, in)
	if err != nil {
		return err
	}
	pc := rt.config.ProfitabilityConfig()
	criterion, err := rt.newCriterion(pc, in, census)
	if err != nil {
		return err
	}
	metric, err := quality.NewPublisherPayoutMetric(quality.PublisherPayoutConfig{
		Game:       pc.Game,
		GSFactor:   pc.GSFactor,
		NumRecords: sampleSize(in.dataset),
	}, criterion, in.loss, rt.metrics, rt.logger)
	if err != nil {
		return err
	}

	parts, err := partitions(in, transformations, criterion, !opts.NoSuppression)
	if err != nil {
		return err
	}

	batch, err := quality.NewBatchEvaluator(metric, rt.config.Workers, rt.metrics, rt.logger).Evaluate(ctx, parts)
	if err != nil {
		return err
	}

	report := &evaluationReport{
		RunID:              batch.RunID.String(),
		Criterion:          criterion.String(),
		Metric:             metric.String(),
		Records:            sampleSize(in.dataset),
		MaxInformationLoss: metric.MaxInformationLoss(),
		Duration:           batch.Duration.String(),
		Results:            batch.Results,
	}
	if best, ok := batch.Best(); ok {
		report.Best = best.PartitionID
	}

	if opts.OutputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printEvaluation(cmd.OutOrStdout(), report)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printEvaluation(w io.Writer, r *evaluationReport) {
	fmt.Fprintf(w, "Run: %s\n", r.RunID)
	fmt.Fprintf(w, "Criterion: %s\n", r.Criterion)
	fmt.Fprintf(w, "Metric: %s\n", r.Metric)
	fmt.Fprintf(w, "Records: %d\n", r.Records)
	fmt.Fprintf(w, "Max information loss: %.2f\n", r.MaxInformationLoss)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-16s %8s %10s %10s %14s %14s %14s\n",
		"TRANSFORMATION", "CLASSES", "ANONYMOUS", "SUPPRESSED", "LOSS", "BOUND", "PAYOUT")
	for _, res := range r.Results {
		fmt.Fprintf(w, "%-16s %8d %10d %10d %14.2f %14.2f %14.2f\n",
			res.PartitionID, res.Classes, res.AnonymousRecords, res.SuppressedRecords,
			res.Loss.Real, res.Loss.Bound, res.Loss.Metadata.TotalPayout)
	}
	if r.Best != "" {
		fmt.Fprintf(w, "\nBest transformation: %s\n", r.Best)
	}
}
