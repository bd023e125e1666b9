package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gotrubric/adapters/tabular"
	"gotrubric/internal/baseline"
	"gotrubric/internal/config"
	"gotrubric/internal/datacontext"
	"gotrubric/internal/errors"
	"gotrubric/internal/logging"
	"gotrubric/internal/metrics"
	"gotrubric/internal/scoring"
	"gotrubric/internal/trubric"
	"gotrubric/internal/validation"
	"gotrubric/ports"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List validation rules and built-in metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Rules:")
			for _, name := range validation.Rules() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			fmt.Fprintln(out, "Metrics:")
			for _, name := range scoring.NewResolver(nil).Names() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}
}

func newInspectCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [trubric-file]",
		Short: "Decode a trubric and print its invocations",
		Long: `Load a trubric (.json, .yaml or .yml), check every rule name and argument,
and print the invocations in replay order.

Example: trubric inspect titanic.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.reportPath(args)
			if err != nil {
				return err
			}
			t, err := trubric.Load(path)
			if err != nil {
				return errors.Wrapf(err, "load %s", path)
			}
			return printInvocations(cmd.OutOrStdout(), t)
		},
	}
}

func printInvocations(out io.Writer, t *trubric.Trubric) error {
	if t.Name != "" {
		fmt.Fprintf(out, "Trubric %s\n", t.Name)
	}
	for i, inv := range t.Invocations {
		args, err := json.Marshal(inv.Rule)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%3d  %-42s expect passed=%-5t %s\n", i+1, inv.Rule.RuleName(), inv.Expected.Passed, args)
	}
	return nil
}

type runOptions struct {
	testing     string
	training    string
	target      string
	strategy    string
	kind        string
	constant    string
	record      bool
	metricsFile string
}

func newRunCmd(opts *cliOptions) *cobra.Command {
	var ro runOptions

	cmd := &cobra.Command{
		Use:   "run [trubric-file]",
		Short: "Replay a trubric against a naive baseline model",
		Long: `Load testing and training data (CSV or XLSX), fit a naive baseline model on
the training labels, replay every invocation of the trubric and compare the
verdicts with the recorded expectations. Exits non-zero on any mismatch.

Dataset paths and the target default to TRUBRIC_TESTING_DATA,
TRUBRIC_TRAINING_DATA and TRUBRIC_TARGET. With --record the actual verdicts
are written back to the file instead.

Example: trubric run titanic.yaml --testing test.csv --training train.csv --target Survived`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.reportPath(args)
			if err != nil {
				return err
			}
			cfg := opts.cfg
			if cmd.Flags().Changed("testing") {
				cfg.Data.TestingPath = ro.testing
			}
			if cmd.Flags().Changed("training") {
				cfg.Data.TrainingPath = ro.training
			}
			if cmd.Flags().Changed("target") {
				cfg.Data.Target = ro.target
			}
			if cmd.Flags().Changed("baseline-strategy") {
				cfg.Baseline.Strategy = baseline.Strategy(ro.strategy)
			}
			if cmd.Flags().Changed("estimator-kind") {
				cfg.Baseline.EstimatorKind = ports.EstimatorKind(ro.kind)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.RequireData(); err != nil {
				return err
			}
			return runTrubric(cmd.Context(), cmd.OutOrStdout(), cfg, path, ro)
		},
	}

	cmd.Flags().StringVar(&ro.testing, "testing", "", "Testing data file (env TRUBRIC_TESTING_DATA)")
	cmd.Flags().StringVar(&ro.training, "training", "", "Training data file (env TRUBRIC_TRAINING_DATA)")
	cmd.Flags().StringVar(&ro.target, "target", "", "Target column (env TRUBRIC_TARGET)")
	cmd.Flags().StringVar(&ro.strategy, "baseline-strategy", "", "Baseline strategy (env TRUBRIC_BASELINE_STRATEGY)")
	cmd.Flags().StringVar(&ro.kind, "estimator-kind", "", "classifier|regressor (env TRUBRIC_ESTIMATOR_KIND)")
	cmd.Flags().StringVar(&ro.constant, "constant", "", "Prediction for the constant strategy")
	cmd.Flags().BoolVar(&ro.record, "record", false, "Store actual verdicts as the new expectations")
	cmd.Flags().StringVar(&ro.metricsFile, "metrics-file", "", "Write rule metrics in Prometheus text format to this file")

	return cmd
}

// parseConstant keeps numeric constants numeric so they compare with labels
func parseConstant(s string) any {
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func runTrubric(ctx context.Context, out io.Writer, cfg *config.Config, path string, ro runOptions) error {
	logger := logging.New("cli")

	t, err := trubric.Load(path)
	if err != nil {
		return errors.Wrapf(err, "load %s", path)
	}

	testData, err := tabular.Read(cfg.Data.TestingPath)
	if err != nil {
		return errors.Wrapf(err, "read testing data")
	}
	trainData, err := tabular.Read(cfg.Data.TrainingPath)
	if err != nil {
		return errors.Wrapf(err, "read training data")
	}
	dc, err := datacontext.New(testData, trainData, testData.Head(cfg.Data.MinimumRows), cfg.Data.Target)
	if err != nil {
		return errors.Wrap(err, "build data context")
	}

	model, err := fitBaseline(dc, cfg.Baseline.EstimatorKind, cfg.Baseline.Strategy, parseConstant(ro.constant))
	if err != nil {
		return errors.Wrap(err, "fit baseline model")
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return err
	}
	v := validation.New(dc, model,
		validation.WithLogger(logging.New("validator")),
		validation.WithMetrics(collector))
	logger.Info("replaying trubric",
		"path", path,
		"invocations", len(t.Invocations),
		"target", v.Data().Target(),
		"baseline", model.Strategy(),
		"session", v.Session().String())
	logger.Debug("metrics available", "metrics", v.Metrics())

	if ro.record {
		if err := t.Record(ctx, v); err != nil {
			return errors.Wrap(err, "record trubric")
		}
		if err := t.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Recorded %d invocations to %s\n", len(t.Invocations), path)
		return writeMetrics(ro.metricsFile, reg)
	}

	outcomes, runErr := t.Run(ctx, v)
	printOutcomes(out, outcomes)
	if err := writeMetrics(ro.metricsFile, reg); err != nil {
		return err
	}
	if runErr != nil {
		return errors.Wrapf(runErr, "replay stopped after %d invocations", len(outcomes))
	}

	summary := trubric.Summarize(outcomes)
	fmt.Fprintf(out, "\n%d invocations: %d matched, %d mismatched (%d passed, %d failed)\n",
		summary.Total, summary.Matched, summary.Mismatched, summary.Passed, summary.Failed)
	if !summary.OK() {
		return errors.New(errors.CodeMismatch, fmt.Sprintf("%d of %d verdicts do not match the trubric", summary.Mismatched, summary.Total))
	}
	return nil
}

func fitBaseline(dc *datacontext.DataContext, kind ports.EstimatorKind, strategy baseline.Strategy, constant any) (*baseline.Dummy, error) {
	_, y, err := dc.FeaturesAndLabels(datacontext.TrainingData)
	if err != nil {
		return nil, err
	}
	return baseline.Fit(kind, strategy, baseline.Params{Constant: constant}, y)
}

func writeMetrics(path string, g prometheus.Gatherer) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return errors.Wrapf(err, "write metrics to %s", path)
	}
	return nil
}

func printOutcomes(out io.Writer, outcomes []trubric.Outcome) {
	for i, o := range outcomes {
		status := "MATCH"
		if !o.Matched {
			status = "MISMATCH"
		}
		fmt.Fprintf(out, "%3d  %-8s %-42s passed=%-5t expected=%t\n", i+1, status, o.RuleName, o.Actual.Passed, o.Expected.Passed)
		if o.Diff != "" {
			for _, line := range strings.Split(strings.TrimRight(o.Diff, "\n"), "\n") {
				fmt.Fprintf(out, "       %s\n", line)
			}
		}
	}
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff [recorded] [replayed]",
		Short: "Compare the expected verdicts of two trubrics",
		Long: `Compare two trubric files invocation by invocation: rule names, arguments,
expected pass/fail and expected evidence. Exits non-zero when they differ.

Example: trubric diff v1.yaml v2.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := trubric.Load(args[0])
			if err != nil {
				return errors.Wrapf(err, "load %s", args[0])
			}
			b, err := trubric.Load(args[1])
			if err != nil {
				return errors.Wrapf(err, "load %s", args[1])
			}
			n := diffTrubrics(cmd.OutOrStdout(), a, b)
			if n > 0 {
				return errors.New(errors.CodeMismatch, fmt.Sprintf("%d invocations differ", n))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "trubrics agree")
			return nil
		},
	}
}

// diffTrubrics prints differing invocations and returns how many differ
func diffTrubrics(out io.Writer, a, b *trubric.Trubric) int {
	differ := 0
	n := max(len(a.Invocations), len(b.Invocations))
	for i := 0; i < n; i++ {
		if i >= len(a.Invocations) || i >= len(b.Invocations) {
			fmt.Fprintf(out, "%3d  present in only one trubric\n", i+1)
			differ++
			continue
		}
		x, y := a.Invocations[i], b.Invocations[i]
		if d := cmp.Diff(x.Rule, y.Rule); d != "" {
			fmt.Fprintf(out, "%3d  rule differs (-recorded +replayed):\n%s", i+1, d)
			differ++
			continue
		}
		if !trubric.EvidenceEqual(x.Expected, y.Expected) {
			fmt.Fprintf(out, "%3d  %s expected verdict differs: passed %t vs %t\n", i+1, x.Rule.RuleName(), x.Expected.Passed, y.Expected.Passed)
			differ++
		}
	}
	return differ
}
