// Package approval implements the interactive challenge prompt: when a
// policy decision's action is "challenge", and stdin is a terminal, the
// operator is shown the decision's reasons and asked to approve or deny
// the turn. The outcome is advisory — it is recorded onto the history
// turn as an annotation and never changes the already-computed
// PolicyDecision. Grounded on the teacher's internal/approval (IsInteractive
// via golang.org/x/term, a boxed stderr prompt, a/d input loop), repointed
// from a shell-command confirmation to an audit-decision confirmation.
package approval

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/gzhole/schnabel/internal/model"
)

// Result is the operator's answer to a challenge prompt.
type Result struct {
	Approved   bool
	UserAction string
}

// Prompt carries the decision context shown to the operator.
type Prompt struct {
	RequestID string
	Risk      model.RiskLevel
	Reasons   []string
}

// IsInteractive reports whether stdin is attached to a terminal; a
// challenge prompt is only shown when this is true.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Ask shows p on stderr and blocks for an a/d answer. When stdin is not a
// terminal it auto-denies without prompting.
func Ask(p Prompt) Result {
	if !IsInteractive() {
		return Result{Approved: false, UserAction: "auto_deny_non_interactive"}
	}

	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(os.Stderr, "║              ⚠️  AUDIT CHALLENGE                              ║")
	fmt.Fprintln(os.Stderr, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintf(os.Stderr, "Request: %s\n", p.RequestID)
	fmt.Fprintf(os.Stderr, "Risk: %s\n", p.Risk)
	fmt.Fprintln(os.Stderr, "")

	if len(p.Reasons) > 0 {
		fmt.Fprintln(os.Stderr, "Reasons:")
		for _, reason := range p.Reasons {
			fmt.Fprintf(os.Stderr, "  • %s\n", reason)
		}
	}

	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Options:")
	fmt.Fprintln(os.Stderr, "  [a] Approve once - proceed with this turn")
	fmt.Fprintln(os.Stderr, "  [d] Deny - treat this turn as rejected")
	fmt.Fprintln(os.Stderr, "")

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Fprint(os.Stderr, "Your choice [a/d]: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return Result{Approved: false, UserAction: "error_reading_input"}
		}

		switch strings.TrimSpace(strings.ToLower(input)) {
		case "a", "approve", "yes", "y":
			return Result{Approved: true, UserAction: "approve_once"}
		case "d", "deny", "no", "n":
			return Result{Approved: false, UserAction: "deny"}
		default:
			fmt.Fprintln(os.Stderr, "Invalid input. Please enter 'a' to approve or 'd' to deny.")
		}
	}
}

// PromptFor builds a Prompt from a rendered policy decision.
func PromptFor(requestID string, decision model.PolicyDecision) Prompt {
	return Prompt{RequestID: requestID, Risk: decision.Risk, Reasons: decision.Reasons}
}
