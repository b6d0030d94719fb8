// Package auditlog writes one JSONL record per runAudit call to an
// operational log, independent of the per-turn EvidencePackage: meant for
// tailing and alerting rather than tamper-evident replay. Grounded on the
// teacher's internal/logger (AuditLogger over an append-only *os.File
// guarded by a mutex, JSON-per-line, 0600 permissions), repointed at audit
// decisions instead of shell-command decisions, with secrets stripped via
// internal/redact before anything touches disk.
package auditlog

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/gzhole/schnabel/internal/redact"
)

// defaultMaxLogBytes is the size at which Logger rotates the current file
// to a ".1" backup before appending further records.
const defaultMaxLogBytes = 10 * 1024 * 1024 // 10MiB

// Event is one operational audit-log record. It summarizes a runAudit call
// for tailing/alerting; it is not the tamper-evident evidence package.
type Event struct {
	Timestamp     string   `json:"timestamp"`
	RequestID     string   `json:"requestId"`
	Decision      string   `json:"decision"`
	Risk          string   `json:"risk,omitempty"`
	DurationMs    int64    `json:"durationMs"`
	ScannerCount  int      `json:"scannerCount"`
	FindingCount  int      `json:"findingCount"`
	PromptSnippet string   `json:"promptSnippet,omitempty"`
	ToolArgs      []string `json:"toolArgs,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// Logger appends Events as JSON lines to a file, rotating it once it grows
// past defaultMaxLogBytes.
type Logger struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// New opens (or creates) the log file at path for appending. If the file
// already exceeds defaultMaxLogBytes, it is rotated to path+".1" first so
// New always starts from a small or empty file.
func New(path string) (*Logger, error) {
	if info, err := os.Stat(path); err == nil && info.Size() >= defaultMaxLogBytes {
		if err := os.Rename(path, path+".1"); err != nil {
			return nil, err
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	return &Logger{path: path, file: file}, nil
}

// Log redacts any secret-shaped text in event, then appends it as one JSON
// line, rotating first if the file has grown past defaultMaxLogBytes.
func (l *Logger) Log(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	event.PromptSnippet = redact.Redact(event.PromptSnippet)
	event.ToolArgs = redact.RedactEnvVars(event.ToolArgs)
	if event.Error != "" {
		event.Error = redact.Redact(event.Error)
	}

	if err := l.rotateIfNeededLocked(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

func (l *Logger) rotateIfNeededLocked() error {
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < defaultMaxLogBytes {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return err
	}
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	l.file = file
	return nil
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
