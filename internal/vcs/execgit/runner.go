package execgit

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Runner abstracts executing git operations.
type Runner interface {
	Run(ctx context.Context, root string, args ...string) (string, error)
}

// ExecRunner executes the configured git binary.
type ExecRunner struct {
	GitBin string
}

func NewExecRunner(gitBin string) *ExecRunner {
	if strings.TrimSpace(gitBin) == "" {
		gitBin = "git"
	}
	return &ExecRunner{GitBin: gitBin}
}

func (e *ExecRunner) Run(ctx context.Context, root string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, e.GitBin, args...)
	if strings.TrimSpace(root) != "" {
		cmd.Dir = root
	}
	var out bytes.Buffer
	var errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(errb.String())
		if msg == "" {
			msg = strings.TrimSpace(out.String())
		}
		if msg == "" {
			msg = err.Error()
		}
		return "", &CommandError{Op: sanitizeArgs(args), Msg: redactTokens(msg)}
	}
	return out.String(), nil
}

// CommandError is a failed git invocation with credentials scrubbed.
type CommandError struct {
	Op  string
	Msg string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s: %s", e.Op, e.Msg)
}

var (
	safeArg     = regexp.MustCompile(`^[a-z][a-z-]*$`)
	credURL     = regexp.MustCompile(`https?://[^\s@]+@`)
	credKeyword = regexp.MustCompile(`(?i)(token|secret|password|passwd|bearer)=[^\s]+`)
)

// sanitizeArgs keeps at most the first two subcommand tokens so paths and
// URLs never reach error messages.
func sanitizeArgs(args []string) string {
	if len(args) == 0 {
		return "<no-args>"
	}
	safe := make([]string, 0, 2)
	for _, a := range args {
		if !safeArg.MatchString(a) {
			break
		}
		safe = append(safe, a)
		if len(safe) == 2 {
			break
		}
	}
	if len(safe) == 0 {
		return "<redacted>"
	}
	return strings.Join(safe, " ")
}

func redactTokens(s string) string {
	s = credURL.ReplaceAllString(s, "https://<redacted>@")
	s = credKeyword.ReplaceAllString(s, "$1=<redacted>")
	return s
}
