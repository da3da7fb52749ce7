package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arx-deidentifier/gta-benchmark/internal/quality"
	"github.com/arx-deidentifier/gta-benchmark/pkg/constants"
	"github.com/arx-deidentifier/gta-benchmark/pkg/errors"
	"github.com/arx-deidentifier/gta-benchmark/pkg/models"
)

// sweepParameters maps a game parameter to its default grid and setter
var sweepParameters = map[string]struct {
	grid []float64
	set  func(*models.CostBenefitConfig, float64)
}{
	"adversary_cost":    {constants.SweepAdversaryCost, func(c *models.CostBenefitConfig, v float64) { c.AdversaryCost = v }},
	"adversary_gain":    {constants.SweepAdversaryGain, func(c *models.CostBenefitConfig, v float64) { c.AdversaryGain = v }},
	"publisher_loss":    {constants.SweepPublisherLoss, func(c *models.CostBenefitConfig, v float64) { c.PublisherLoss = v }},
	"publisher_benefit": {constants.SweepPublisherBenefit, func(c *models.CostBenefitConfig, v float64) { c.PublisherBenefit = v }},
}

type SweepOptions struct {
	Input           inputOptions
	Parameter       string
	Values          []float64
	Transformations []string
	OutputFormat    string
}

func NewSweepCmd() *cobra.Command {
	opts := &SweepOptions{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Vary one game parameter and report the best transformation for each value",
		Long: `Re-run the evaluation for every value of one game parameter while the other
parameters keep their configured values. Without --values the built-in grid of
the parameter is used.`,
		Example: `  # Sweep the adversary cost over the built-in grid
  gta-cli sweep -r adult.csv --hierarchy sex.csv --hierarchy age.csv --parameter adversary_cost

  # Sweep the publisher benefit over given values
  gta-cli sweep -r adult.csv --hierarchy sex.csv --parameter publisher_benefit --values 500,1000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, opts)
		},
	}

	opts.Input.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Parameter, "parameter", "p", "", "Game parameter ("+strings.Join(sweepParameterNames(), ", ")+")")
	cmd.Flags().Float64SliceVar(&opts.Values, "values", nil, "Parameter values (default: built-in grid)")
	cmd.Flags().StringArrayVarP(&opts.Transformations, "transformation", "t", nil, "Generalization levels such as 1,0,2 (default: all)")
	cmd.Flags().StringVar(&opts.OutputFormat, "format", "text", "Output format (text, json)")

	cmd.MarkFlagRequired("parameter")

	return cmd
}

func sweepParameterNames() []string {
	names := make([]string, 0, len(sweepParameters))
	for name := range sweepParameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type sweepPoint struct {
	Value             float64 `json:"value"`
	Best              string  `json:"best"`
	Loss              float64 `json:"loss"`
	Payout            float64 `json:"payout"`
	MaxPayout         float64 `json:"max_payout"`
	SuppressedRecords int     `json:"suppressed_records"`
}

type sweepReport struct {
	Parameter string        `json:"parameter"`
	Points    []*sweepPoint `json:"points"`
}

func runSweep(cmd *cobra.Command, opts *SweepOptions) error {
	param, ok := sweepParameters[opts.Parameter]
	if !ok {
		return errors.NewConfigurationError(errors.CodeInvalidGameParameter,
			fmt.Sprintf("unknown parameter %q, expected one of %s", opts.Parameter, strings.Join(sweepParameterNames(), ", ")))
	}
	if opts.OutputFormat != "text" && opts.OutputFormat != "json" {
		return errors.NewConfigurationError(errors.CodeInvalidDomain,
			fmt.Sprintf("unsupported output format %q", opts.OutputFormat))
	}
	values := opts.Values
	if len(values) == 0 {
		values = param.grid
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

	report := &sweepReport{Parameter: opts.Parameter}
	for _, value := range values {
		pc := rt.config.ProfitabilityConfig()
		param.set(&pc.Game, value)

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

		parts, err := partitions(in, transformations, criterion, true)
		if err != nil {
			return err
		}
		batch, err := quality.NewBatchEvaluator(metric, rt.config.Workers, rt.metrics, rt.logger).Evaluate(ctx, parts)
		if err != nil {
			return err
		}

		best, ok := batch.Best()
		if !ok {
			continue
		}
		point := &sweepPoint{
			Value:             value,
			Best:              best.PartitionID,
			Loss:              best.Loss.Real,
			Payout:            best.Loss.Metadata.TotalPayout,
			MaxPayout:         best.Loss.Metadata.MaxPayout,
			SuppressedRecords: best.SuppressedRecords,
		}
		report.Points = append(report.Points, point)

		rt.logger.WithFields(logrus.Fields{
			"parameter": opts.Parameter,
			"value":     value,
			"best":      point.Best,
			"loss":      point.Loss,
		}).Info("Sweep point evaluated")
	}

	if opts.OutputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printSweep(cmd.OutOrStdout(), report)
	return nil
}

func printSweep(w io.Writer, r *sweepReport) {
	fmt.Fprintf(w, "%-12s %-16s %14s %14s %14s %10s\n",
		strings.ToUpper(r.Parameter), "BEST", "LOSS", "PAYOUT", "MAX PAYOUT", "SUPPRESSED")
	for _, p := range r.Points {
		fmt.Fprintf(w, "%-12g %-16s %14.2f %14.2f %14.2f %10d\n",
			p.Value, p.Best, p.Loss, p.Payout, p.MaxPayout, p.SuppressedRecords)
	}
}
