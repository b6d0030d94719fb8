// Package taxonomy catalogs the risk/category tags detect scanners attach
// to findings (e.g. "prompt-injection", "ssrf"), each with a human-readable
// name and description for rendering in evidence review and CLI output.
// Grounded on the teacher's internal/taxonomy loader (a YAML-backed catalog
// keyed by identifier, gopkg.in/yaml.v3), trimmed from its kingdom/category/
// weakness-ID tree and OWASP compliance-mapping machinery down to the flat
// tag catalog this system actually emits.
package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TagEntry describes one finding tag.
type TagEntry struct {
	Tag         string `yaml:"tag"`
	Name        string `yaml:"name"`
	RiskLevel   string `yaml:"riskLevel"`
	Description string `yaml:"description"`
}

// Catalog maps a tag to its TagEntry.
type Catalog struct {
	Entries map[string]TagEntry
}

// catalogFile is the on-disk shape: a flat list of TagEntry.
type catalogFile struct {
	Tags []TagEntry `yaml:"tags"`
}

// LoadCatalog reads a YAML file of tag entries from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy catalog: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing taxonomy catalog: %w", err)
	}

	cat := &Catalog{Entries: make(map[string]TagEntry, len(cf.Tags))}
	for _, e := range cf.Tags {
		cat.Entries[e.Tag] = e
	}
	return cat, nil
}

// Lookup returns the entry for tag, and whether it was found.
func (c *Catalog) Lookup(tag string) (TagEntry, bool) {
	if c == nil {
		return TagEntry{}, false
	}
	e, ok := c.Entries[tag]
	return e, ok
}

// Describe annotates each tag in tags with its catalog description where
// known, skipping tags the catalog doesn't recognize (e.g. a tool name
// riding alongside a known tag, as tool_args_ssrf.go emits).
func (c *Catalog) Describe(tags []string) []TagEntry {
	out := make([]TagEntry, 0, len(tags))
	for _, t := range tags {
		if e, ok := c.Lookup(t); ok {
			out = append(out, e)
		}
	}
	return out
}

// DefaultCatalog returns the built-in catalog covering the fixed tags the
// shipped detect scanners emit. Tool names, history keys and rule
// categories that some scanners attach alongside them are not listed.
func DefaultCatalog() *Catalog {
	entries := []TagEntry{
		{Tag: "prompt-injection", Name: "Prompt Injection", RiskLevel: "high", Description: "Prompt content attempts to override, exfiltrate, or redirect the agent's instructions."},
		{Tag: "ssrf", Name: "Server-Side Request Forgery", RiskLevel: "high", Description: "A tool call argument targets an internal or disallowed network address."},
		{Tag: "path-traversal", Name: "Path Traversal", RiskLevel: "high", Description: "A tool call argument references a path outside its expected root."},
		{Tag: "fact-mismatch", Name: "Tool Result Fact Mismatch", RiskLevel: "medium", Description: "The response asserts a fact contradicted by an observed tool result."},
		{Tag: "contradiction", Name: "Tool Result Contradiction", RiskLevel: "medium", Description: "A tool result conflicts with an earlier result for the same tool/session."},
		{Tag: "homoglyph", Name: "Confusable Character Substitution", RiskLevel: "medium", Description: "Prompt text uses Unicode confusables to evade keyword or pattern matching."},
		{Tag: "history-pattern", Name: "History Pattern", RiskLevel: "medium", Description: "A pattern across recent turns in session history (e.g. repeated failures, flip-flopping) contributed to this finding."},
	}
	cat := &Catalog{Entries: make(map[string]TagEntry, len(entries))}
	for _, e := range entries {
		cat.Entries[e.Tag] = e
	}
	return cat
}
