// Package rulepack compiles JSON rule-pack files into CompiledRulePacks, the
// form the rule-pack detect scanner consumes. It generalizes the teacher's
// policy.LoadPacks (which merges YAML policy packs from a directory) to a
// JSON, regex/keyword rule shape, and adds the ReDoS and duplicate-rule
// guards the prompt-injection domain needs that shell-policy packs did not.
package rulepack

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/gzhole/schnabel/internal/auditerr"
	"github.com/gzhole/schnabel/internal/model"
)

// MaxPatternLength bounds a rule's regex/keyword pattern, rejecting
// pathologically long patterns before they ever reach regexp.Compile.
const MaxPatternLength = 400

// allowedFlags is the regex flag whitelist: case-insensitive, multi-line,
// dot-matches-newline, Unicode-aware. Flags outside this set are rejected,
// since some flag combinations (notably backreference-emulation tricks some
// engines support) don't apply to RE2 but callers should still get a clear
// validation error rather than silently-ignored flags.
const allowedFlags = "imsu"

// redosPatterns are structural features strongly associated with
// catastrophic backtracking in non-RE2 engines. Go's regexp/syntax is RE2
// and never backtracks, but a rule author writing (a+)+ almost certainly
// copied it from a vulnerable engine and should be told so rather than
// have it silently compile to something that doesn't mean what they think.
var redosPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\([^)]*[+*]\)[+*]`),
	regexp.MustCompile(`\([^)]*[+*]\)\{`),
}

// Load reads and compiles a single rule-pack JSON file.
func Load(path string) (*model.CompiledRulePack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, auditerr.Wrap(auditerr.RulePackLoadError, "failed to read rule pack "+path, err)
	}
	return Compile(path, data)
}

// Compile validates and compiles raw rule-pack JSON into a CompiledRulePack.
// Rules are deduplicated by signature (their matching semantics, not id) and
// sorted by id for deterministic scan order.
func Compile(path string, data []byte) (*model.CompiledRulePack, error) {
	var file model.RulePackFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, auditerr.Wrap(auditerr.RulePackLoadError, "invalid rule pack JSON in "+path, err)
	}

	seen := make(map[string]bool, len(file.Rules))
	seenSignatures := make(map[string]bool, len(file.Rules))
	compiled := make([]model.CompiledRule, 0, len(file.Rules))

	for _, spec := range file.Rules {
		if spec.ID == "" {
			return nil, auditerr.New(auditerr.RulePackLoadError, "rule in "+path+" is missing id")
		}
		if seen[spec.ID] {
			return nil, auditerr.New(auditerr.RulePackLoadError, "duplicate rule id "+spec.ID+" in "+path)
		}
		seen[spec.ID] = true

		rule, err := compileRule(spec)
		if err != nil {
			return nil, auditerr.Wrap(auditerr.RulePackLoadError, "rule "+spec.ID+" in "+path+" is invalid", err)
		}

		if seenSignatures[rule.Signature] {
			continue // duplicate matching semantics under a different id: skip, not an error
		}
		seenSignatures[rule.Signature] = true
		compiled = append(compiled, rule)
	}

	sort.Slice(compiled, func(i, j int) bool { return compiled[i].ID < compiled[j].ID })

	return &model.CompiledRulePack{
		Version: file.Version,
		Path:    path,
		Rules:   compiled,
	}, nil
}

func compileRule(spec model.RuleSpec) (model.CompiledRule, error) {
	rule := model.CompiledRule{
		ID:       spec.ID,
		Category: spec.Category,
		Risk:     model.RiskLevel(spec.Risk),
		Score:    spec.Score,
		Tags:     spec.Tags,
		Summary:  spec.Summary,
	}

	switch model.PatternType(spec.PatternType) {
	case model.PatternRegex:
		rule.PatternType = model.PatternRegex
		rule.Pattern = spec.Pattern
		rule.Flags = spec.Flags
		re, err := compileGuardedRegex(spec.Pattern, spec.Flags)
		if err != nil {
			return model.CompiledRule{}, err
		}
		rule.Regex = re
	case model.PatternKeyword:
		rule.PatternType = model.PatternKeyword
		rule.Pattern = spec.Pattern
		if len(spec.Pattern) > MaxPatternLength {
			return model.CompiledRule{}, fmt.Errorf("keyword exceeds %d characters", MaxPatternLength)
		}
		rule.Keyword = strings.ToLower(spec.Pattern)
	default:
		return model.CompiledRule{}, fmt.Errorf("unknown patternType %q", spec.PatternType)
	}

	if spec.NegativePattern != "" {
		switch model.PatternType(spec.PatternType) {
		case model.PatternRegex:
			re, err := compileGuardedRegex(spec.NegativePattern, spec.NegativeFlags)
			if err != nil {
				return model.CompiledRule{}, err
			}
			rule.NegativeRegex = re
			rule.NegativePattern = spec.NegativePattern
			rule.NegativeFlags = spec.NegativeFlags
		case model.PatternKeyword:
			rule.NegativeKeyword = strings.ToLower(spec.NegativePattern)
			rule.NegativePattern = spec.NegativePattern
		}
	}

	scopes := spec.Scopes
	if len(scopes) == 0 {
		rule.Scopes = model.DefaultScopes
	} else {
		for _, s := range scopes {
			rule.Scopes = append(rule.Scopes, model.Scope(s))
		}
	}
	for _, s := range spec.Sources {
		rule.Sources = append(rule.Sources, model.Source(s))
	}

	if _, ok := riskRank[rule.Risk]; !ok {
		return model.CompiledRule{}, fmt.Errorf("unknown risk level %q", spec.Risk)
	}

	rule.Signature = signature(rule)
	return rule, nil
}

var riskRank = map[model.RiskLevel]int{
	model.RiskNone: 0, model.RiskLow: 1, model.RiskMedium: 2, model.RiskHigh: 3, model.RiskCritical: 4,
}

func compileGuardedRegex(pattern, flags string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty regex pattern")
	}
	if len(pattern) > MaxPatternLength {
		return nil, fmt.Errorf("pattern exceeds %d characters", MaxPatternLength)
	}
	for _, f := range flags {
		if !strings.ContainsRune(allowedFlags, f) {
			return nil, fmt.Errorf("unsupported regex flag %q", string(f))
		}
	}
	for _, guard := range redosPatterns {
		if guard.MatchString(pattern) {
			return nil, fmt.Errorf("pattern rejected: nested quantifier looks ReDoS-prone")
		}
	}

	// Go regexps are always Unicode-aware and reject a (?u) group, so "u" is
	// accepted above but left out of the inline flag group.
	full := pattern
	if goFlags := strings.ReplaceAll(flags, "u", ""); goFlags != "" {
		full = "(?" + goFlags + ")" + pattern
	}
	re, err := regexp.Compile(full)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return re, nil
}

// signature computes a stable dedup key over a rule's matching semantics —
// pattern type, pattern, flags, negative pattern, scopes, sources — so that
// the same rule copy-pasted under two different ids is only applied once.
func signature(r model.CompiledRule) string {
	scopes := make([]string, len(r.Scopes))
	for i, s := range r.Scopes {
		scopes[i] = string(s)
	}
	sort.Strings(scopes)
	sources := make([]string, len(r.Sources))
	for i, s := range r.Sources {
		sources[i] = string(s)
	}
	sort.Strings(sources)

	raw := strings.Join([]string{
		string(r.PatternType), r.Pattern, r.Flags,
		r.NegativePattern, r.NegativeFlags,
		strings.Join(scopes, ","), strings.Join(sources, ","),
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// LoadDir compiles every *.json file directly under dir (non-recursive, skip
// dotfiles) into a single merged CompiledRulePack. Files are read in
// directory order and their rules concatenated, then deduplicated and sorted
// exactly as Compile does for a single file, so the merge result is
// independent of filesystem iteration order.
func LoadDir(dir string) (*model.CompiledRulePack, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.CompiledRulePack{Path: dir}, nil
		}
		return nil, auditerr.Wrap(auditerr.RulePackLoadError, "failed to read rule pack directory "+dir, err)
	}

	var allRules []model.RuleSpec
	var version string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || filepath.Ext(name) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, auditerr.Wrap(auditerr.RulePackLoadError, "failed to read "+name, err)
		}
		var file model.RulePackFile
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, auditerr.Wrap(auditerr.RulePackLoadError, "invalid rule pack JSON in "+name, err)
		}
		if version == "" {
			version = file.Version
		}
		allRules = append(allRules, file.Rules...)
	}

	merged, err := json.Marshal(model.RulePackFile{Version: version, Rules: allRules})
	if err != nil {
		return nil, err
	}
	return Compile(dir, merged)
}
