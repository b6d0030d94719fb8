package config

import (
	"testing"

	"github.com/gzhole/schnabel/internal/model"
)

func TestApplyDefaults_FillsUnsetFields(t *testing.T) {
	cfg := &Config{ConfigDir: "/home/u/.schnabel"}
	applyDefaults(cfg)

	if cfg.RulePackPath != "/home/u/.schnabel/rulepack.json" {
		t.Errorf("rulePackPath = %q", cfg.RulePackPath)
	}
	if cfg.PacksDir != "/home/u/.schnabel/packs" {
		t.Errorf("packsDir = %q", cfg.PacksDir)
	}
	if cfg.MaxPromptLength != 1<<20 {
		t.Errorf("maxPromptLength = %d, want 1MiB", cfg.MaxPromptLength)
	}
	if cfg.HistoryMaxTurns != 200 {
		t.Errorf("historyMaxTurns = %d, want 200", cfg.HistoryMaxTurns)
	}
	if cfg.ScannerTimeoutMs != 30000 {
		t.Errorf("scannerTimeoutMs = %d, want 30000", cfg.ScannerTimeoutMs)
	}
	if cfg.FailFastAt != "high" {
		t.Errorf("failFastAt = %q, want high", cfg.FailFastAt)
	}
	if cfg.Policy.BlockAt != "critical" {
		t.Errorf("policy.blockAt = %q, want critical", cfg.Policy.BlockAt)
	}
	if cfg.Policy.ChallengeScoreSumAt != 0.9 {
		t.Errorf("policy.challengeScoreSumAt = %v, want 0.9", cfg.Policy.ChallengeScoreSumAt)
	}
	if cfg.Policy.HistoryWindow != 5 {
		t.Errorf("policy.historyWindow = %d, want 5", cfg.Policy.HistoryWindow)
	}
}

func TestApplyDefaults_DoesNotOverrideExistingValues(t *testing.T) {
	cfg := &Config{
		ConfigDir:       "/home/u/.schnabel",
		RulePackPath:    "/custom/pack.json",
		MaxPromptLength: 4096,
		Policy:          PolicyConfig{BlockAt: "high", MaxReasons: 3},
	}
	applyDefaults(cfg)

	if cfg.RulePackPath != "/custom/pack.json" {
		t.Errorf("rulePackPath overridden: %q", cfg.RulePackPath)
	}
	if cfg.MaxPromptLength != 4096 {
		t.Errorf("maxPromptLength overridden: %d", cfg.MaxPromptLength)
	}
	if cfg.Policy.BlockAt != "high" {
		t.Errorf("policy.blockAt overridden: %q", cfg.Policy.BlockAt)
	}
	if cfg.Policy.MaxReasons != 3 {
		t.Errorf("policy.maxReasons overridden: %d", cfg.Policy.MaxReasons)
	}
}

func TestConfig_PolicyEngineConfig(t *testing.T) {
	cfg := &Config{Policy: PolicyConfig{
		BlockAt:             "critical",
		ChallengeAt:         "high",
		ChallengeScoreSumAt: 0.9,
		WarnScoreSumAt:      0.4,
		MaxReasons:          5,
		HistoryWindow:       5,
	}}
	pc := cfg.PolicyEngineConfig()

	if pc.BlockAt != model.RiskCritical {
		t.Errorf("blockAt = %v, want critical", pc.BlockAt)
	}
	if pc.ChallengeAt != model.RiskHigh {
		t.Errorf("challengeAt = %v, want high", pc.ChallengeAt)
	}
	if pc.HistoryWindow != 5 {
		t.Errorf("historyWindow = %d, want 5", pc.HistoryWindow)
	}
}
