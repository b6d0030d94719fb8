// Package model holds the core data types shared across the audit pipeline:
// the AuditRequest wire shape, the NormalizedInput working document,
// Findings, risk levels, and the compiled rule representation. Every stage
// package (sanitize, enrich, detect, rulepack, scanchain, policy, history,
// evidence) takes these shared types from model.
package model

// Source classifies the provenance of a prompt chunk.
type Source string

const (
	SourceUser       Source = "user"
	SourceSystem     Source = "system"
	SourceDeveloper  Source = "developer"
	SourceRetrieval  Source = "retrieval"
	SourceTool       Source = "tool"
	SourceAssistant  Source = "assistant"
	SourceUnknown    Source = "unknown"
)

// Actor identifies who/what issued the request, when known.
type Actor struct {
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	IP        string `json:"ip,omitempty"`
}

// PromptChunk is one provenance-tagged fragment of the prompt, e.g. a
// retrieved document or a system message.
type PromptChunk struct {
	Source Source `json:"source"`
	Text   string `json:"text"`
}

// ToolCall is one tool invocation the agent issued.
type ToolCall struct {
	ToolName string      `json:"toolName"`
	Args     interface{} `json:"args"`
}

// ToolResult is the outcome of one tool invocation.
type ToolResult struct {
	ToolName  string      `json:"toolName"`
	Ok        bool        `json:"ok"`
	Result    interface{} `json:"result"`
	LatencyMs *float64    `json:"latencyMs,omitempty"`
}

// AuditRequest is the input envelope for one turn. It is immutable after
// creation — nothing downstream may mutate it; NormalizedInput.Raw holds a
// reference to it for provenance, never a mutable copy.
type AuditRequest struct {
	RequestID     string        `json:"requestId"`
	Timestamp     float64       `json:"timestamp"`
	Actor         *Actor        `json:"actor,omitempty"`
	Model         string        `json:"model,omitempty"`
	Prompt        string        `json:"prompt"`
	PromptChunks  []PromptChunk `json:"promptChunks,omitempty"`
	ToolCalls     []ToolCall    `json:"toolCalls,omitempty"`
	ToolResults   []ToolResult  `json:"toolResults,omitempty"`
	ResponseText  string        `json:"responseText,omitempty"`
	Metadata      interface{}   `json:"metadata,omitempty"`
}
