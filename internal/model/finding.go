package model

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gzhole/schnabel/internal/viewset"
)

// RiskLevel orders none < low < medium < high < critical.
type RiskLevel string

const (
	RiskNone     RiskLevel = "none"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskOrder = map[RiskLevel]int{
	RiskNone:     0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// Rank returns the ordinal of a risk level, usable for comparisons.
func (r RiskLevel) Rank() int {
	return riskOrder[r]
}

// AtLeast reports whether r is at least as severe as other.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.Rank() >= other.Rank()
}

// MaxRisk returns the more severe of a and b.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if a.Rank() >= b.Rank() {
		return a
	}
	return b
}

// FindingKind classifies which pipeline stage produced a Finding.
type FindingKind string

const (
	KindSanitize FindingKind = "sanitize"
	KindDetect   FindingKind = "detect"
	KindEnrich   FindingKind = "enrich"
)

// TargetField names which part of the request a Finding's target refers to.
type TargetField string

const (
	FieldPrompt      TargetField = "prompt"
	FieldPromptChunk TargetField = "promptChunk"
	FieldResponse    TargetField = "response"
)

// Target records exactly where in the request, and in which view, a Finding
// was observed.
type Target struct {
	Field      TargetField  `json:"field"`
	View       viewset.Kind `json:"view"`
	Source     Source       `json:"source,omitempty"`
	ChunkIndex *int         `json:"chunkIndex,omitempty"`
}

// Finding is a single risk-scored observation. Findings are values: the same
// (scanner, requestId, key) must always produce the same Id.
type Finding struct {
	ID      string                 `json:"id"`
	Kind    FindingKind            `json:"kind"`
	Scanner string                 `json:"scanner"`
	Score   float64                `json:"score"`
	Risk    RiskLevel              `json:"risk"`
	Tags    []string               `json:"tags,omitempty"`
	Summary string                 `json:"summary"`
	Target  Target                 `json:"target"`
	Evidence map[string]interface{} `json:"evidence,omitempty"`
}

// FindingID computes the deterministic finding id: f_ followed by the first
// 20 hex digits of sha256(scanner + ":" + requestId + ":" + key).
func FindingID(scanner, requestID, key string) string {
	sum := sha256.Sum256([]byte(scanner + ":" + requestID + ":" + key))
	return "f_" + hex.EncodeToString(sum[:])[:20]
}
