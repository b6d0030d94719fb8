package cli

import (
	"encoding/json"
	"os"

	"github.com/gzhole/schnabel/internal/config"
	"github.com/gzhole/schnabel/internal/model"
	"github.com/gzhole/schnabel/internal/rulepack"
)

// loadConfiguredPack compiles cfg.RulePackPath (if present) and merges in
// cfg.PacksDir (if present), mirroring the teacher's policy-pack layering:
// a base file plus an optional directory of additional, individually
// enable/disable-able packs.
func loadConfiguredPack(cfg *config.Config) (*model.CompiledRulePack, error) {
	base := &model.CompiledRulePack{Path: cfg.RulePackPath}
	if _, err := os.Stat(cfg.RulePackPath); err == nil {
		pack, err := rulepack.Load(cfg.RulePackPath)
		if err != nil {
			return nil, err
		}
		base = pack
	}

	extra, err := rulepack.LoadDir(cfg.PacksDir)
	if err != nil {
		return nil, err
	}
	if len(extra.Rules) == 0 {
		return base, nil
	}

	return mergePacks(base, extra)
}

func mergePacks(a, b *model.CompiledRulePack) (*model.CompiledRulePack, error) {
	rules := make([]model.RuleSpec, 0, len(a.Rules)+len(b.Rules))
	rules = append(rules, specsOf(a.Rules)...)
	rules = append(rules, specsOf(b.Rules)...)

	version := a.Version
	if version == "" {
		version = b.Version
	}

	data, err := json.Marshal(model.RulePackFile{Version: version, Rules: rules})
	if err != nil {
		return nil, err
	}
	return rulepack.Compile(a.Path, data)
}

// specsOf reconstructs RuleSpecs from already-compiled rules so merged
// packs can be recompiled as one unit (dedup-by-signature applies across
// the merge, not just within each source).
func specsOf(rules []model.CompiledRule) []model.RuleSpec {
	out := make([]model.RuleSpec, len(rules))
	for i, r := range rules {
		out[i] = model.RuleSpec{
			ID:              r.ID,
			Category:        r.Category,
			PatternType:     string(r.PatternType),
			Pattern:         r.Pattern,
			Flags:           r.Flags,
			NegativePattern: r.NegativePattern,
			NegativeFlags:   r.NegativeFlags,
			Risk:            string(r.Risk),
			Score:           r.Score,
			Tags:            r.Tags,
			Summary:         r.Summary,
			Scopes:          scopeStringsOf(r.Scopes),
			Sources:         sourceStringsOf(r.Sources),
		}
	}
	return out
}

func scopeStringsOf(scopes []model.Scope) []string {
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = string(s)
	}
	return out
}

func sourceStringsOf(sources []model.Source) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = string(s)
	}
	return out
}
