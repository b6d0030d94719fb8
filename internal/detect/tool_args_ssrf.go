package detect

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/gzhole/schnabel/internal/model"
)

// cloudMetadataHosts are well-known cloud instance-metadata endpoints that
// a tool call should never legitimately target from agent-issued args —
// reaching them is the signature move of an SSRF-driven credential theft.
var cloudMetadataHosts = map[string]bool{
	"169.254.169.254": true, // AWS/GCP/Azure/OpenStack metadata
	"metadata.google.internal": true,
	"metadata.azure.com":       true,
}

// ToolArgsSSRF walks every string argument of every tool call looking for
// URLs that target loopback, link-local, private, or cloud-metadata
// addresses — classic server-side request forgery targets when a tool call
// is built from untrusted prompt content.
type ToolArgsSSRF struct{ base }

func (ToolArgsSSRF) Name() string { return "tool_args_ssrf" }

func (s ToolArgsSSRF) Scan(_ context.Context, input model.NormalizedInput) (model.NormalizedInput, []model.Finding, error) {
	var findings []model.Finding
	for i, call := range input.ToolCalls {
		for _, u := range extractURLs(call.Args) {
			if risk, reason := classifySSRFTarget(u); risk != "" {
				findings = append(findings, model.Finding{
					ID:      model.FindingID("tool_args_ssrf", input.RequestID, fmt.Sprintf("%d:%s", i, u)),
					Kind:    model.KindDetect,
					Scanner: "tool_args_ssrf",
					Score:   ssrfScore(risk),
					Risk:    risk,
					Tags:    []string{"ssrf", call.ToolName},
					Summary: reason,
					Target:  model.Target{Field: model.FieldPrompt},
					Evidence: map[string]interface{}{"toolName": call.ToolName, "url": u},
				})
			}
		}
	}
	return input, findings, nil
}

func ssrfScore(risk model.RiskLevel) float64 {
	switch risk {
	case model.RiskCritical:
		return 0.95
	case model.RiskHigh:
		return 0.7
	default:
		return 0.4
	}
}

// classifySSRFTarget returns a non-empty risk level and explanation when u
// targets an address an agent-driven tool call should never reach.
func classifySSRFTarget(raw string) (model.RiskLevel, string) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return "", ""
	}
	host := parsed.Hostname()

	if cloudMetadataHosts[host] {
		return model.RiskCritical, fmt.Sprintf("tool argument targets cloud metadata endpoint %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		if host == "localhost" {
			return model.RiskHigh, "tool argument targets localhost"
		}
		return "", ""
	}

	switch {
	case ip.IsLoopback():
		return model.RiskHigh, fmt.Sprintf("tool argument targets loopback address %s", host)
	case ip.IsLinkLocalUnicast():
		return model.RiskCritical, fmt.Sprintf("tool argument targets link-local address %s (metadata-service range)", host)
	case ip.IsPrivate():
		return model.RiskMedium, fmt.Sprintf("tool argument targets private network address %s", host)
	}
	return "", ""
}

// extractURLs walks an arbitrary JSON-shaped value and collects every
// string leaf that looks like an absolute URL.
func extractURLs(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case string:
		if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") {
			out = append(out, t)
		}
	case map[string]interface{}:
		for _, val := range t {
			out = append(out, extractURLs(val)...)
		}
	case []interface{}:
		for _, val := range t {
			out = append(out, extractURLs(val)...)
		}
	}
	return out
}
