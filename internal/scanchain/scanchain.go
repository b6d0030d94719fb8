// Package scanchain runs a NormalizedInput through an ordered chain of
// scanners — sanitize, then enrich, then detect — threading the input
// through each one in sequence the way the teacher's analyzer.Registry
// threads an AnalysisContext through ordered Analyzers. Unlike the
// teacher's registry, each scanner here gets its own timeout and the chain
// can fail fast once accumulated risk crosses a threshold, since an audit
// call is latency-sensitive in a way a CLI command-check is not.
package scanchain

import (
	"context"
	"time"

	"github.com/gzhole/schnabel/internal/auditerr"
	"github.com/gzhole/schnabel/internal/model"
)

// DefaultTimeout is applied to a scanner when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Scanner is one stage in the chain. Sanitize/enrich scanners may rewrite
// the NormalizedInput they receive (e.g. populating Views); detect scanners
// conventionally return the input unchanged.
type Scanner interface {
	Name() string
	Kind() model.FindingKind
	Scan(ctx context.Context, input model.NormalizedInput) (model.NormalizedInput, []model.Finding, error)
}

// Metric records one scanner's execution outcome.
type Metric struct {
	Scanner      string          `json:"scanner"`
	Kind         model.FindingKind `json:"kind"`
	DurationMs   float64         `json:"durationMs"`
	FindingCount int             `json:"findingCount"`
}

// Options controls chain execution.
type Options struct {
	// Timeout bounds each individual scanner's Scan call.
	Timeout time.Duration

	// FailFastRisk, if non-empty, stops the chain once any finding emitted
	// so far is at least this severe. Scanners already started are allowed
	// to finish; no further scanner is invoked.
	FailFastRisk model.RiskLevel
}

// Result is the chain's full output.
type Result struct {
	Input    model.NormalizedInput
	Findings []model.Finding
	Metrics  []Metric
	// StoppedAt is the index of the scanner after which the chain stopped
	// early due to FailFastRisk, or -1 if the full chain ran.
	StoppedAt int
}

// Run executes scanners in order against input, returning the final
// (possibly rewritten) input, all findings emitted, and per-scanner
// metrics. A scanner that errors produces a ChainError, and one that times
// out a ScannerTimeout, each wrapping the cause and annotated with the
// scanner's name and chain index
// per spec's diagnostic requirement.
func Run(ctx context.Context, input model.NormalizedInput, scanners []Scanner, opts Options) (Result, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	result := Result{Input: input, StoppedAt: -1}
	current := input

	for i, s := range scanners {
		if s.Name() == "" {
			return result, auditerr.New(auditerr.ScannerInvalid, "scanner at index has empty name").WithScanner("", i)
		}

		start := time.Now()
		scanCtx, cancel := context.WithTimeout(ctx, timeout)
		next, findings, err := runOne(scanCtx, s, current)
		cancel()

		if err != nil {
			if scanCtx.Err() == context.DeadlineExceeded {
				return result, auditerr.Wrap(auditerr.ScannerTimeout, "scanner exceeded timeout", err).WithScanner(s.Name(), i)
			}
			return result, auditerr.Wrap(auditerr.ChainError, "scanner failed", err).WithScanner(s.Name(), i)
		}

		result.Metrics = append(result.Metrics, Metric{
			Scanner:      s.Name(),
			Kind:         s.Kind(),
			DurationMs:   time.Since(start).Seconds() * 1000,
			FindingCount: len(findings),
		})

		current = next
		result.Findings = append(result.Findings, findings...)

		if opts.FailFastRisk != "" && maxFindingRisk(result.Findings).AtLeast(opts.FailFastRisk) {
			result.StoppedAt = i
			break
		}
	}

	result.Input = current
	return result, nil
}

func runOne(ctx context.Context, s Scanner, input model.NormalizedInput) (model.NormalizedInput, []model.Finding, error) {
	type outcome struct {
		input    model.NormalizedInput
		findings []model.Finding
		err      error
	}
	done := make(chan outcome, 1)

	go func() {
		next, findings, err := s.Scan(ctx, input)
		done <- outcome{next, findings, err}
	}()

	select {
	case <-ctx.Done():
		return input, nil, ctx.Err()
	case o := <-done:
		return o.input, o.findings, o.err
	}
}

func maxFindingRisk(findings []model.Finding) model.RiskLevel {
	risk := model.RiskNone
	for _, f := range findings {
		risk = model.MaxRisk(risk, f.Risk)
	}
	return risk
}
