package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/born-ml/autograd/internal/gradcheck"
	"github.com/born-ml/autograd/internal/telemetry"
)

// errChecksFailed signals a completed run with gradient mismatches.
var errChecksFailed = errors.New("gradient checks failed")

// cliOptions holds flags shared across subcommands.
type cliOptions struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "gradcheck",
		Short: "Cross-check autodiff gradients against finite differences",
		Long: `gradcheck builds scalar functions as computation graphs, backpropagates
through them, and compares every analytic derivative with a central
finite-difference estimate.

Examples:
  gradcheck list
  gradcheck check mixed --at 0.5,-1,2
  gradcheck run --config suite.yaml --metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newVersionCmd(),
		newListCmd(),
		newCheckCmd(opts),
		newRunCmd(opts),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gradcheck %s\n", version)
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List built-in functions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			for _, name := range gradcheck.Names() {
				c, _ := gradcheck.Lookup(name)
				fmt.Fprintf(out, "%-12s arity=%d\n", name, c.Arity)
			}
		},
	}
}

func newCheckCmd(opts *cliOptions) *cobra.Command {
	var (
		at      []float64
		checkOp = gradcheck.DefaultOptions()
	)

	cmd := &cobra.Command{
		Use:   "check FUNCTION",
		Short: "Check one built-in function at one point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ok := gradcheck.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown function %q (see 'gradcheck list')", args[0])
			}
			logger, err := newLogger(cmd.ErrOrStderr(), opts.logLevel)
			if err != nil {
				return err
			}

			res, err := gradcheck.NewRunner(gradcheck.WithLogger(logger)).Check(c, at, checkOp)
			if err != nil {
				return err
			}

			printResult(cmd.OutOrStdout(), res)
			if !res.Pass {
				return errChecksFailed
			}
			return nil
		},
	}

	cmd.Flags().Float64SliceVar(&at, "at", nil, "comma-separated point to check at")
	cmd.Flags().Float64Var(&checkOp.Epsilon, "epsilon", checkOp.Epsilon, "finite-difference step")
	cmd.Flags().Float64Var(&checkOp.Atol, "atol", checkOp.Atol, "absolute tolerance")
	cmd.Flags().Float64Var(&checkOp.Rtol, "rtol", checkOp.Rtol, "relative tolerance")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func newRunCmd(opts *cliOptions) *cobra.Command {
	var (
		configPath  string
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a suite of checks",
		Long: `Run every check of a YAML suite. Without --config the built-in suite
(every function at a few points) is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), opts.logLevel)
			if err != nil {
				return err
			}

			suite := gradcheck.BuiltinSuite()
			if configPath != "" {
				suite, err = gradcheck.LoadSuite(configPath)
				if err != nil {
					return err
				}
			}

			reg := prometheus.NewRegistry()
			runner := gradcheck.NewRunner(
				gradcheck.WithLogger(logger),
				gradcheck.WithObserver(telemetry.NewRecorder(reg)),
			)

			report, err := runner.Run(cmd.Context(), suite)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, res := range report.Results {
				printResult(out, res)
			}
			fmt.Fprintf(out, "suite %s (run %s): %d checks, %d failed in %s\n",
				report.Suite, report.RunID, len(report.Results), report.Failed, report.Duration)

			if showMetrics {
				if err := writeMetrics(out, reg); err != nil {
					return err
				}
			}
			if !report.Passed() {
				return errChecksFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML suite")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print Prometheus metrics after the run")
	return cmd
}

func printResult(w io.Writer, res gradcheck.Result) {
	status := "PASS"
	if !res.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%s %s%v = %.6g\n", status, res.Function, res.Point, res.Value)
	for _, a := range res.Args {
		fmt.Fprintf(w, "  d/dx%d analytic=%.8g numerical=%.8g abs_err=%.3g rel_err=%.3g\n",
			a.Arg, a.Analytic, a.Numerical, a.AbsErr, a.RelErr)
	}
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
