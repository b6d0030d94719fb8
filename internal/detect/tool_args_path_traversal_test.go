package detect

import (
	"context"
	"testing"

	"github.com/gzhole/schnabel/internal/model"
)

func TestToolArgsPathTraversal_FlagsSensitivePath(t *testing.T) {
	input := normalizedWithToolCall("read_file", map[string]interface{}{"path": "/root/.ssh/id_rsa"})
	_, findings, err := ToolArgsPathTraversal{}.Scan(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 1 || findings[0].Risk != model.RiskHigh {
		t.Fatalf("expected 1 high-risk finding, got %+v", findings)
	}
}

func TestToolArgsPathTraversal_FlagsDotDotTraversal(t *testing.T) {
	input := normalizedWithToolCall("read_file", map[string]interface{}{"path": "../../etc/hostname"})
	_, findings, _ := ToolArgsPathTraversal{}.Scan(context.Background(), input)
	if len(findings) != 1 || findings[0].Risk != model.RiskMedium {
		t.Fatalf("expected 1 medium-risk finding, got %+v", findings)
	}
}

func TestToolArgsPathTraversal_NormalRelativePathNotFlagged(t *testing.T) {
	input := normalizedWithToolCall("read_file", map[string]interface{}{"path": "internal/model/rule.go"})
	_, findings, _ := ToolArgsPathTraversal{}.Scan(context.Background(), input)
	if len(findings) != 0 {
		t.Errorf("expected no findings, got %d", len(findings))
	}
}

func TestToolArgsPathTraversal_DotDotWithinBoundsNotFlagged(t *testing.T) {
	input := normalizedWithToolCall("read_file", map[string]interface{}{"path": "a/b/../c.txt"})
	_, findings, _ := ToolArgsPathTraversal{}.Scan(context.Background(), input)
	if len(findings) != 0 {
		t.Errorf("expected a/b/../c.txt (stays within bounds) to not be flagged, got %d", len(findings))
	}
}

func TestToolArgsPathTraversal_NonPathStringsIgnored(t *testing.T) {
	input := normalizedWithToolCall("calculator", map[string]interface{}{"expression": "2 + 2"})
	_, findings, _ := ToolArgsPathTraversal{}.Scan(context.Background(), input)
	if len(findings) != 0 {
		t.Errorf("expected no findings, got %d", len(findings))
	}
}

func TestToolArgsPathTraversal_EtcPasswdFlagged(t *testing.T) {
	input := normalizedWithToolCall("read_file", map[string]interface{}{"path": "/etc/passwd"})
	_, findings, _ := ToolArgsPathTraversal{}.Scan(context.Background(), input)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
}
