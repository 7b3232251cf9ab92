package gradcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Suite describes a batch of checks.
//
// Example:
//
//	name: smoke
//	concurrency: 4
//	defaults:
//	  epsilon: 1.0e-6
//	  atol: 1.0e-2
//	  rtol: 1.0e-2
//	checks:
//	  - function: mixed
//	    points: [[0.5, -1.0, 2.0]]
//	    atol: 1.0e-4
type Suite struct {
	Name        string      `yaml:"name" validate:"required"`
	Concurrency int         `yaml:"concurrency" validate:"gte=1,lte=256"`
	Defaults    Options     `yaml:"defaults"`
	Checks      []CheckSpec `yaml:"checks" validate:"required,min=1,dive"`
}

// CheckSpec selects a built-in case and the points to check it at.
// Nil tolerance fields inherit the suite defaults.
type CheckSpec struct {
	Function string      `yaml:"function" validate:"required"`
	Points   [][]float64 `yaml:"points" validate:"required,min=1"`
	Epsilon  *float64    `yaml:"epsilon,omitempty" validate:"omitempty,gt=0"`
	Atol     *float64    `yaml:"atol,omitempty" validate:"omitempty,gte=0"`
	Rtol     *float64    `yaml:"rtol,omitempty" validate:"omitempty,gte=0"`
}

// options resolves the effective options for the spec.
func (s CheckSpec) options(defaults Options) Options {
	opts := defaults
	if s.Epsilon != nil {
		opts.Epsilon = *s.Epsilon
	}
	if s.Atol != nil {
		opts.Atol = *s.Atol
	}
	if s.Rtol != nil {
		opts.Rtol = *s.Rtol
	}
	return opts
}

// DefaultSuite returns an empty suite with default settings.
func DefaultSuite() Suite {
	return Suite{
		Name:        "default",
		Concurrency: 4,
		Defaults:    DefaultOptions(),
	}
}

// BuiltinSuite checks every built-in case at a few points inside its domain.
func BuiltinSuite() Suite {
	s := DefaultSuite()
	s.Name = "builtin"
	for _, name := range Names() {
		c := builtins[name]
		var points [][]float64
		switch c.Arity {
		case 1:
			points = [][]float64{{0.5}, {1.7}, {3.0}}
		case 2:
			points = [][]float64{{0.5, 2.0}, {-1.5, 3.0}}
		default:
			points = [][]float64{{0.5, -1.0, 2.0}, {1.2, 0.3, 0.7}}
		}
		s.Checks = append(s.Checks, CheckSpec{Function: name, Points: points})
	}
	return s
}

var validate = validator.New()

// Validate checks field constraints, that every function is a known case, and
// that every point matches its case's arity.
func (s Suite) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid suite: %w", err)
	}

	var errs []error
	for i, spec := range s.Checks {
		c, ok := Lookup(spec.Function)
		if !ok {
			errs = append(errs, fmt.Errorf("check %d: unknown function %q", i, spec.Function))
			continue
		}
		for j, p := range spec.Points {
			if len(p) != c.Arity {
				errs = append(errs, fmt.Errorf("check %d point %d: %w: got %d values, want %d",
					i, j, ErrArity, len(p), c.Arity))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid suite: %w", errors.Join(errs...))
	}
	return nil
}

// ParseSuite decodes a YAML suite over DefaultSuite and validates it.
func ParseSuite(data []byte) (Suite, error) {
	s := DefaultSuite()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Suite{}, fmt.Errorf("failed to parse suite: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Suite{}, err
	}
	return s, nil
}

// LoadSuite reads and parses a YAML suite file.
func LoadSuite(path string) (Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, fmt.Errorf("failed to read suite: %w", err)
	}
	return ParseSuite(data)
}

// Report is the outcome of a suite run.
type Report struct {
	RunID    string        `json:"run_id" yaml:"run_id"`
	Suite    string        `json:"suite" yaml:"suite"`
	Results  []Result      `json:"results" yaml:"results"`
	Failed   int           `json:"failed" yaml:"failed"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	return r.Failed == 0
}

// Run executes every point of every check in s, at most s.Concurrency at a
// time. Results keep the suite's order. The first error (invalid point,
// graph violation, cancelled context) aborts the run.
func (r *Runner) Run(ctx context.Context, s Suite) (*Report, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx, span := r.tracer.Start(ctx, "gradcheck.Run", trace.WithAttributes(
		attribute.String("gradcheck.run_id", runID),
		attribute.String("gradcheck.suite", s.Name),
	))
	defer span.End()

	type job struct {
		c     Case
		point []float64
		opts  Options
	}
	var jobs []job
	for _, spec := range s.Checks {
		c, _ := Lookup(spec.Function)
		opts := spec.options(s.Defaults)
		for _, p := range spec.Points {
			jobs = append(jobs, job{c: c, point: p, opts: opts})
		}
	}

	logger := r.logger.With(slog.String("run_id", runID), slog.String("suite", s.Name))
	logger.Info("gradcheck suite started", slog.Int("checks", len(jobs)))
	start := time.Now()

	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)

	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, checkSpan := r.tracer.Start(gctx, "gradcheck.Check", trace.WithAttributes(
				attribute.String("gradcheck.function", j.c.Name),
				attribute.Float64Slice("gradcheck.point", j.point),
			))
			defer checkSpan.End()

			res, err := r.Check(j.c, j.point, j.opts)
			if err != nil {
				checkSpan.RecordError(err)
				checkSpan.SetStatus(codes.Error, err.Error())
				return err
			}
			checkSpan.SetAttributes(attribute.Bool("gradcheck.pass", res.Pass))
			if !res.Pass {
				logger.Warn("gradient mismatch",
					slog.String("function", res.Function),
					slog.Any("point", res.Point),
				)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("suite %s: %w", s.Name, err)
	}

	report := &Report{
		RunID:    runID,
		Suite:    s.Name,
		Results:  results,
		Duration: time.Since(start),
	}
	for _, res := range results {
		if !res.Pass {
			report.Failed++
		}
	}

	span.SetAttributes(
		attribute.Int("gradcheck.checks", len(results)),
		attribute.Int("gradcheck.failed", report.Failed),
	)
	logger.Info("gradcheck suite finished",
		slog.Int("checks", len(results)),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}
