// Package viewset defines the four-view representation that every scanned
// text in the audit pipeline carries: raw, sanitized, revealed, skeleton.
// Detectors read views instead of re-deriving them from raw text, so
// detection never depends on which sanitizer happened to run first.
package viewset

// Kind names one of the four parallel views a ViewSet carries.
type Kind string

const (
	Raw       Kind = "raw"
	Sanitized Kind = "sanitized"
	Revealed  Kind = "revealed"
	Skeleton  Kind = "skeleton"
)

// PreferredOrder is the view a detector should report as target.view when
// more than one view matched, most- to least-informative.
var PreferredOrder = []Kind{Revealed, Sanitized, Raw, Skeleton}

// ViewSet is the per-text tuple of four parallel strings.
type ViewSet struct {
	Raw       string `json:"raw"`
	Sanitized string `json:"sanitized"`
	Revealed  string `json:"revealed"`
	Skeleton  string `json:"skeleton"`
}

// New initializes a ViewSet with all four fields equal to text, the state
// every ViewSet starts in before any sanitize/enrich scanner runs.
func New(text string) ViewSet {
	return ViewSet{Raw: text, Sanitized: text, Revealed: text, Skeleton: text}
}

// Get returns the string for the named view.
func (v ViewSet) Get(k Kind) string {
	switch k {
	case Raw:
		return v.Raw
	case Sanitized:
		return v.Sanitized
	case Revealed:
		return v.Revealed
	case Skeleton:
		return v.Skeleton
	default:
		return ""
	}
}

// All returns the four views alongside their kind, in a fixed order
// (raw, sanitized, revealed, skeleton) used by scanners that must test every
// view, e.g. the rule-pack scanner's prompt pass.
func (v ViewSet) All() []struct {
	Kind Kind
	Text string
} {
	return []struct {
		Kind Kind
		Text string
	}{
		{Raw, v.Raw},
		{Sanitized, v.Sanitized},
		{Revealed, v.Revealed},
		{Skeleton, v.Skeleton},
	}
}

// Chunk pairs a prompt chunk's provenance with its ViewSet.
type Chunk struct {
	Source string  `json:"source"`
	Views  ViewSet `json:"views"`
}

// InputViews bundles the prompt, ordered chunks, and optional response view
// sets that make up the full multi-view payload for one request.
type InputViews struct {
	Prompt   ViewSet  `json:"prompt"`
	Chunks   []Chunk  `json:"chunks,omitempty"`
	Response *ViewSet `json:"response,omitempty"`
}
