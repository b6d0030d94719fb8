// Package audit implements runAudit: the orchestrator that wires
// normalize (L1) through sanitize/enrich (L2/L3) and the caller-supplied
// detect scanners into a single scanchain.Run call, renders a policy
// decision, packages the evidence, and appends the turn to history.
// Grounded on the teacher's cli/run.go (validate → analyze → decide →
// log), generalized from a single-shot shell-command check to a
// multi-stage audit of a structured request.
package audit

import (
	"context"
	"io"
	"time"

	"github.com/gzhole/schnabel/internal/approval"
	"github.com/gzhole/schnabel/internal/auditerr"
	"github.com/gzhole/schnabel/internal/enrich"
	"github.com/gzhole/schnabel/internal/evidence"
	"github.com/gzhole/schnabel/internal/history"
	"github.com/gzhole/schnabel/internal/model"
	"github.com/gzhole/schnabel/internal/normalize"
	"github.com/gzhole/schnabel/internal/policy"
	"github.com/gzhole/schnabel/internal/sanitize"
	"github.com/gzhole/schnabel/internal/scanchain"
)

// Options controls one runAudit call. Scanners holds the detect-stage
// scanners (e.g. RulePack, KeywordInjection) run after the fixed
// sanitize/enrich pair; the orchestrator supplies sanitize/enrich itself
// since every turn runs them identically.
type Options struct {
	Scanners          []scanchain.Scanner
	ScanOptions       scanchain.Options
	PolicyConfig      policy.Config
	History           history.Store
	MaxPromptLength   int
	DumpEvidence      func(evidence.Package) error
	DumpPolicy        func(model.PolicyDecision) error
	AutoCloseScanners bool

	// InteractiveChallenge, when true, prompts the operator (via
	// approval.Ask) to approve or deny the turn whenever the decision's
	// action is "challenge" and stdin is a terminal. The answer is
	// advisory: it is recorded on the appended history turn only, and
	// never changes Action, Risk, or the evidence package already built.
	InteractiveChallenge bool

	// Now lets tests stamp a deterministic generatedAtMs/createdAtMs; nil
	// defaults to time.Now().
	Now func() int64
}

// Run executes one audit turn end to end. On any error — validation,
// scanner chain, or an external dump hook — it returns before building or
// persisting anything: no evidence package is produced and history is not
// appended, per the documented failure semantics.
func Run(ctx context.Context, req *model.AuditRequest, opts Options) (evidence.Package, error) {
	if opts.AutoCloseScanners {
		defer closeAll(opts.Scanners)
	}

	normalized, err := normalize.Normalize(req, normalize.Options{MaxPromptLength: opts.MaxPromptLength})
	if err != nil {
		return evidence.Package{}, err
	}
	rawBefore := normalized.Clone()

	chain := buildChain(opts.Scanners)
	result, err := scanchain.Run(ctx, *normalized, chain, opts.ScanOptions)
	if err != nil {
		return evidence.Package{}, err
	}

	sessionID := sessionIDOf(req)
	var recent []model.HistoryTurn
	if opts.History != nil {
		recent, err = opts.History.Recent(sessionID, historyWindowOf(opts.PolicyConfig))
		if err != nil {
			return evidence.Package{}, auditerr.Wrap(auditerr.ChainError, "history lookup failed", err)
		}
	}

	decision := policy.Evaluate(result.Findings, opts.PolicyConfig, recent)
	if opts.DumpPolicy != nil {
		if err := opts.DumpPolicy(decision); err != nil {
			return evidence.Package{}, auditerr.Wrap(auditerr.ChainError, "dumpPolicy hook failed", err)
		}
	}

	// The evidence package hashes the decision exactly as rendered by
	// policy.Evaluate; an interactive challenge answer is collected after
	// and recorded only on the history turn, so it never perturbs rootHash.
	pkg := evidence.Build(req.RequestID, req, rawBefore, result.Input, result.Metrics, result.Findings, decision, nowMs(opts.Now))

	if opts.DumpEvidence != nil {
		if err := opts.DumpEvidence(pkg); err != nil {
			return evidence.Package{}, auditerr.Wrap(auditerr.ChainError, "dumpEvidence hook failed", err)
		}
	}

	challengeResponse := ""
	if opts.InteractiveChallenge && decision.Action == model.ActionChallenge && approval.IsInteractive() {
		ans := approval.Ask(approval.PromptFor(req.RequestID, decision))
		challengeResponse = ans.UserAction
	}

	if opts.History != nil {
		turn := historyTurnOf(req, result.Findings, decision, challengeResponse, nowMs(opts.Now))
		if err := opts.History.Append(sessionID, turn); err != nil {
			return evidence.Package{}, auditerr.Wrap(auditerr.ChainError, "history append failed", err)
		}
	}

	return pkg, nil
}

// buildChain prepends the two fixed L2/L3 stages to the caller's detect
// scanners, so every call runs the same sanitize → enrich → detect order.
func buildChain(detectScanners []scanchain.Scanner) []scanchain.Scanner {
	chain := make([]scanchain.Scanner, 0, len(detectScanners)+2)
	chain = append(chain, sanitizeStage{}, enrichStage{})
	chain = append(chain, detectScanners...)
	return chain
}

// sanitizeStage adapts sanitize.Run to scanchain.Scanner.
type sanitizeStage struct{}

func (sanitizeStage) Name() string                   { return "sanitize" }
func (sanitizeStage) Kind() model.FindingKind        { return model.KindSanitize }
func (sanitizeStage) Scan(_ context.Context, input model.NormalizedInput) (model.NormalizedInput, []model.Finding, error) {
	out, findings := sanitize.Run(input)
	if len(out.ToolCalls) > 0 {
		cleaned, toolCallsJSON := sanitize.CanonicalizeToolArgs(out.ToolCalls)
		out.ToolCalls = cleaned
		out.Canonical.ToolCallsJSON = toolCallsJSON
	}
	return out, findings, nil
}

// enrichStage adapts enrich.Run to scanchain.Scanner.
type enrichStage struct{}

func (enrichStage) Name() string                  { return "enrich" }
func (enrichStage) Kind() model.FindingKind       { return model.KindEnrich }
func (enrichStage) Scan(_ context.Context, input model.NormalizedInput) (model.NormalizedInput, []model.Finding, error) {
	out, findings := enrich.Run(input)
	return out, findings, nil
}

func sessionIDOf(req *model.AuditRequest) string {
	if req.Actor != nil && req.Actor.SessionID != "" {
		return req.Actor.SessionID
	}
	return req.RequestID
}

func historyWindowOf(cfg policy.Config) int {
	if cfg.HistoryWindow > 0 {
		return cfg.HistoryWindow
	}
	return policy.DefaultConfig().HistoryWindow
}

func nowMs(now func() int64) int64 {
	if now == nil {
		return time.Now().UnixMilli()
	}
	return now()
}

func historyTurnOf(req *model.AuditRequest, findings []model.Finding, decision model.PolicyDecision, challengeResponse string, createdAtMs int64) model.HistoryTurn {
	turn := model.HistoryTurn{
		RequestID:         req.RequestID,
		CreatedAtMs:       createdAtMs,
		Action:            decision.Action,
		Risk:              decision.Risk,
		RuleIDs:           decision.FindingIDs,
		ChallengeResponse: challengeResponse,
	}
	for _, r := range req.ToolResults {
		if r.Ok {
			turn.SucceededTools = append(turn.SucceededTools, r.ToolName)
		} else {
			turn.FailedTools = append(turn.FailedTools, r.ToolName)
		}
	}
	if req.ResponseText != "" {
		turn.ResponseSnippet = snippet(req.ResponseText, 200)
	}

	seenScanner := map[string]bool{}
	seenTag := map[string]bool{}
	for _, f := range findings {
		if !seenScanner[f.Scanner] {
			seenScanner[f.Scanner] = true
			turn.DetectScanners = append(turn.DetectScanners, f.Scanner)
		}
		for _, tag := range f.Tags {
			if !seenTag[tag] {
				seenTag[tag] = true
				turn.DetectTags = append(turn.DetectTags, tag)
			}
		}
	}
	turn.Categories = append([]string(nil), turn.DetectTags...)

	return turn
}

func snippet(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}

func closeAll(scanners []scanchain.Scanner) {
	for _, s := range scanners {
		if c, ok := s.(io.Closer); ok {
			c.Close()
		}
	}
}
