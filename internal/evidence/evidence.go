// Package evidence packages a completed audit turn into a deterministic,
// tamper-evident EvidencePackage: an ordered set of section hashes folded
// into a single rootHash, content-addressed rather than cryptographically
// signed. Grounded on other_examples/CirtusX-ctrl-ai-v1's chain.go
// (computeHash/verifyEntry fold-style hash chain), adapted from a
// prev-hash-per-entry log to a fixed ordered section list hashed once per
// audit turn.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/gzhole/schnabel/internal/canonical"
	"github.com/gzhole/schnabel/internal/model"
	"github.com/gzhole/schnabel/internal/scanchain"
	"github.com/gzhole/schnabel/internal/taxonomy"
	"github.com/gzhole/schnabel/internal/viewset"
)

// Schema is the EvidencePackage schema string carried in every package.
const Schema = "schnabel-evidence-v0"

// sectionOrder is the exact, contractual order sections are hashed and
// folded in. Changing this order changes every rootHash ever produced.
var sectionOrder = []string{
	"request",
	"rawDigest",
	"normalized.canonical",
	"scanned.canonical",
	"scanned.views",
	"findings",
	"decision",
	"scanners",
}

// RequestSummary is the request section: everything about the originating
// turn except its text bodies, which are only represented by digest.
type RequestSummary struct {
	Timestamp float64      `json:"timestamp"`
	Actor     *model.Actor `json:"actor,omitempty"`
	Model     string       `json:"model,omitempty"`
}

// RawDigest hashes and measures the request's text bodies so the evidence
// package can attest to their content without embedding raw user text.
type RawDigest struct {
	PromptHash       string `json:"promptHash"`
	PromptLength     int    `json:"promptLength"`
	ChunksHash       string `json:"chunksHash"`
	ChunkCount       int    `json:"chunkCount"`
	ToolCallsHash    string `json:"toolCallsHash"`
	ToolResultsHash  string `json:"toolResultsHash"`
	ResponseHash     string `json:"responseHash,omitempty"`
	ResponseLength   int    `json:"responseLength,omitempty"`
}

// ScannerSummary names a scanner and its kind, in the order it actually
// ran in the chain.
type ScannerSummary struct {
	Name string           `json:"name"`
	Kind model.FindingKind `json:"kind"`
}

// IntegrityItem is one entry in the integrity section's ordered item list.
type IntegrityItem struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
}

// Integrity is the hash-chain section: the ordered per-section hashes and
// the folded rootHash over all of them.
type Integrity struct {
	Algo     string          `json:"algo"`
	Items    []IntegrityItem `json:"items"`
	RootHash string          `json:"rootHash"`
}

// Meta carries package-level metadata that isn't part of the hash chain.
type Meta struct {
	RulePackVersions []string          `json:"rulePackVersions,omitempty"`
	TagCatalog       []taxonomy.TagEntry `json:"tagCatalog,omitempty"`
}

// Package is the EvidencePackage (v0): a deterministic, content-addressed
// record of one audit turn. GeneratedAtMs is present but deliberately
// excluded from every hash input, so re-serializing the same turn at a
// different wall-clock time never changes rootHash.
type Package struct {
	Schema        string             `json:"schema"`
	RequestID     string             `json:"requestId"`
	Request       RequestSummary     `json:"request"`
	RawDigest     RawDigest          `json:"rawDigest"`
	Normalized    NormalizedSection  `json:"normalized"`
	Scanned       ScannedSection     `json:"scanned"`
	Scanners      []ScannerSummary   `json:"scanners"`
	Findings      []model.Finding    `json:"findings"`
	Decision      model.PolicyDecision `json:"decision"`
	Integrity     Integrity          `json:"integrity"`
	Meta          Meta               `json:"meta"`
	GeneratedAtMs int64              `json:"generatedAtMs"`
}

// NormalizedSection wraps the canonical form of the input right after L1.
type NormalizedSection struct {
	Canonical string `json:"canonical"`
}

// ScannedSection wraps the canonical form and the views of the input after
// the full scan chain has run.
type ScannedSection struct {
	Canonical string              `json:"canonical"`
	Views     *viewset.InputViews `json:"views,omitempty"`
}

// Build assembles an EvidencePackage from a completed audit turn. metrics
// holds one entry per scanner in the order the chain executed; rawBefore is the NormalizedInput
// as produced by L1 (before sanitize/enrich/detect); scanned is the same
// input after the full chain ran; generatedAtMs is stamped on the package
// but never hashed.
func Build(
	requestID string,
	raw *model.AuditRequest,
	rawBefore model.NormalizedInput,
	scanned model.NormalizedInput,
	metrics []scanchain.Metric,
	findings []model.Finding,
	decision model.PolicyDecision,
	generatedAtMs int64,
) Package {
	pkg := Package{
		Schema:    Schema,
		RequestID: requestID,
		Request:   requestSummaryOf(raw),
		RawDigest: rawDigestOf(raw),
		Normalized: NormalizedSection{
			Canonical: canonicalizeNormalized(rawBefore),
		},
		Scanned: ScannedSection{
			Canonical: canonicalizeNormalized(scanned),
			Views:     scanned.Views,
		},
		Scanners:      scannerSummariesOf(metrics),
		Findings:      findings,
		Decision:      decision,
		Meta:          Meta{RulePackVersions: rulePackVersionsOf(findings), TagCatalog: tagCatalogOf(findings)},
		GeneratedAtMs: generatedAtMs,
	}
	pkg.Integrity = integrityOf(pkg)
	return pkg
}

func requestSummaryOf(raw *model.AuditRequest) RequestSummary {
	if raw == nil {
		return RequestSummary{}
	}
	return RequestSummary{Timestamp: raw.Timestamp, Actor: raw.Actor, Model: raw.Model}
}

func rawDigestOf(raw *model.AuditRequest) RawDigest {
	if raw == nil {
		return RawDigest{}
	}
	d := RawDigest{
		PromptHash:      sha256Hex(canonical.Canonicalize(raw.Prompt)),
		PromptLength:    len(raw.Prompt),
		ChunksHash:      sha256Hex(canonical.Canonicalize(raw.PromptChunks)),
		ChunkCount:      len(raw.PromptChunks),
		ToolCallsHash:   sha256Hex(canonical.Canonicalize(raw.ToolCalls)),
		ToolResultsHash: sha256Hex(canonical.Canonicalize(raw.ToolResults)),
	}
	if raw.ResponseText != "" {
		d.ResponseHash = sha256Hex(canonical.Canonicalize(raw.ResponseText))
		d.ResponseLength = len(raw.ResponseText)
	}
	return d
}

func canonicalizeNormalized(n model.NormalizedInput) string {
	return canonical.Canonicalize(n.Canonical)
}

func scannerSummariesOf(metrics []scanchain.Metric) []ScannerSummary {
	out := make([]ScannerSummary, len(metrics))
	for i, m := range metrics {
		out[i] = ScannerSummary{Name: m.Scanner, Kind: m.Kind}
	}
	return out
}

func rulePackVersionsOf(findings []model.Finding) []string {
	seen := map[string]bool{}
	for _, f := range findings {
		if v, ok := f.Evidence["rulePackVersion"]; ok {
			if s, ok := v.(string); ok && s != "" {
				seen[s] = true
			}
		}
	}
	versions := make([]string, 0, len(seen))
	for v := range seen {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// tagCatalogOf annotates every unique finding tag with its human-readable
// taxonomy entry, for rendering alongside raw tags in evidence review.
func tagCatalogOf(findings []model.Finding) []taxonomy.TagEntry {
	cat := taxonomy.DefaultCatalog()
	seen := map[string]bool{}
	var out []taxonomy.TagEntry
	for _, f := range findings {
		for _, tag := range f.Tags {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			if e, ok := cat.Lookup(tag); ok {
				out = append(out, e)
			}
		}
	}
	return out
}

// integrityOf hashes each section (in sectionOrder) and folds the hashes
// into a single rootHash: acc starts at the literal "root", and each step
// computes sha256(acc + ":" + name + ":" + hash).
func integrityOf(pkg Package) Integrity {
	sections := map[string]interface{}{
		"request":               pkg.Request,
		"rawDigest":             pkg.RawDigest,
		"normalized.canonical":  pkg.Normalized.Canonical,
		"scanned.canonical":     pkg.Scanned.Canonical,
		"scanned.views":         pkg.Scanned.Views,
		"findings":              pkg.Findings,
		"decision":              pkg.Decision,
		"scanners":              pkg.Scanners,
	}

	items := make([]IntegrityItem, 0, len(sectionOrder))
	acc := "root"
	for _, name := range sectionOrder {
		hash := sha256Hex(canonical.Canonicalize(sections[name]))
		items = append(items, IntegrityItem{Name: name, Hash: hash})
		acc = sha256Hex(acc + ":" + name + ":" + hash)
	}

	return Integrity{Algo: "sha256", Items: items, RootHash: acc}
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
