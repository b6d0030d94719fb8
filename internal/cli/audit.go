package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gzhole/schnabel/internal/audit"
	"github.com/gzhole/schnabel/internal/auditlog"
	"github.com/gzhole/schnabel/internal/config"
	"github.com/gzhole/schnabel/internal/detect"
	"github.com/gzhole/schnabel/internal/evidence"
	"github.com/gzhole/schnabel/internal/history"
	"github.com/gzhole/schnabel/internal/model"
	"github.com/gzhole/schnabel/internal/scanchain"
)

var auditRequestPath string

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run an audit turn",
}

var auditRunCmd = &cobra.Command{
	Use:   "run --request <file>",
	Short: "Audit one turn read from a JSON AuditRequest file",
	Long: `Read an AuditRequest from --request, run it through the full scanner
chain, and print the resulting EvidencePackage JSON to stdout.

Exit code reflects the rendered decision: 2 on block, 1 on challenge, 0
otherwise (allow / allow_with_warning). The exit code is advisory only —
schnabel never executes or blocks anything on the caller's behalf.`,
	RunE: auditRun,
}

func init() {
	auditRunCmd.Flags().StringVar(&auditRequestPath, "request", "", "path to a JSON AuditRequest file")
	_ = auditRunCmd.MarkFlagRequired("request")
	auditCmd.AddCommand(auditRunCmd)
	rootCmd.AddCommand(auditCmd)
}

func auditRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	req, err := readAuditRequest(auditRequestPath)
	if err != nil {
		return err
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	pack, err := loadConfiguredPack(cfg)
	if err != nil {
		return fmt.Errorf("failed to load rule pack: %w", err)
	}

	store := history.NewInMemoryStore(cfg.HistoryMaxTurns)

	alog, err := auditlog.New(auditlogPath(cfg))
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer alog.Close()

	started := time.Now()
	result, err := audit.Run(context.Background(), req, audit.Options{
		Scanners: []scanchain.Scanner{
			detect.RulePack{Pack: pack},
			detect.KeywordInjection{},
			detect.Uts39Confusables{},
			detect.ToolArgsSSRF{},
			detect.ToolArgsPathTraversal{},
			detect.ToolResultFactMismatch{},
			detect.ToolResultContradiction{},
			detect.HistoryContradiction{Store: store},
			detect.HistoryFlipFlop{Store: store},
		},
		ScanOptions:          scanchain.Options{Timeout: time.Duration(cfg.ScannerTimeoutMs) * time.Millisecond},
		PolicyConfig:         cfg.PolicyEngineConfig(),
		History:              store,
		MaxPromptLength:      cfg.MaxPromptLength,
		InteractiveChallenge: true,
	})

	logErr := alog.Log(auditLogEventOf(req, result, err, time.Since(started)))
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write audit log: %v\n", logErr)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	switch result.Decision.Action {
	case model.ActionBlock:
		os.Exit(2)
	case model.ActionChallenge:
		os.Exit(1)
	}
	return nil
}

func readAuditRequest(path string) (*model.AuditRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading request file: %w", err)
	}
	var req model.AuditRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parsing request JSON: %w", err)
	}
	return &req, nil
}

func auditlogPath(cfg *config.Config) string {
	return filepath.Join(cfg.ConfigDir, "audit.jsonl")
}

// auditLogEventOf builds the operational log record for one audit.Run
// call. pkg is the zero value when err is non-nil.
func auditLogEventOf(req *model.AuditRequest, pkg evidence.Package, err error, dur time.Duration) auditlog.Event {
	event := auditlog.Event{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		RequestID:     req.RequestID,
		DurationMs:    dur.Milliseconds(),
		PromptSnippet: snippetOf(req.Prompt, 200),
	}
	if err != nil {
		event.Error = err.Error()
		return event
	}

	event.Decision = string(pkg.Decision.Action)
	event.Risk = string(pkg.Decision.Risk)
	event.ScannerCount = len(pkg.Scanners)
	event.FindingCount = len(pkg.Findings)
	return event
}

func snippetOf(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}
