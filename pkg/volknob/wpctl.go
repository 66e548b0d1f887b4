package volknob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
	"go.uber.org/zap"
)

// runner abstracts a single wpctl invocation so the resolver and the volume
// facade can be exercised against a fake in tests.
type runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// stderr lines matching any of these fragments are noise wpctl emits on
// perfectly healthy systems and must not fail the call
var benignDiagnosticFragments = []string{
	"Failed to load SPA",
	"deprecated",
}

type wpctlRunner struct {
	logger *zap.SugaredLogger

	// base argv, usually just ["wpctl"] but may carry a wrapper
	// (e.g. "flatpak-spawn --host wpctl")
	argv []string

	timeout time.Duration
}

func newWpctlRunner(logger *zap.SugaredLogger, command string, timeout time.Duration) (*wpctlRunner, error) {
	logger = logger.Named("wpctl")

	argv, err := shlex.Split(command)
	if err != nil {
		logger.Warnw("Failed to parse wpctl command", "command", command, "error", err)
		return nil, fmt.Errorf("parse wpctl command: %w", err)
	}

	if len(argv) == 0 {
		return nil, fmt.Errorf("empty wpctl command")
	}

	r := &wpctlRunner{
		logger:  logger,
		argv:    argv,
		timeout: timeout,
	}

	logger.Debugw("Created wpctl runner instance", "argv", argv, "timeout", timeout)

	return r, nil
}

// Run executes one wpctl sub-command and returns its stdout. Every call is
// bounded by the configured timeout so a hung audio server can't stall the
// event handler forever.
func (r *wpctlRunner) Run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	full := append(append([]string{}, r.argv...), args...)
	cmd := exec.CommandContext(ctx, full[0], full[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debugw("Invoking wpctl", "args", args)

	err := cmd.Run()
	diagnostic := filterDiagnostic(stderr.String())

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			r.logger.Warnw("wpctl binary not found", "argv", r.argv)
			return "", ErrToolNotInstalled
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			r.logger.Warnw("wpctl invocation timed out", "args", args, "timeout", r.timeout)
			return "", &ToolError{Args: args, Diagnostic: diagnostic, Err: ctxErr}
		}

		r.logger.Warnw("wpctl invocation failed", "args", args, "error", err, "stderr", diagnostic)
		return "", &ToolError{Args: args, Diagnostic: diagnostic, Err: err}
	}

	// a clean exit with unexpected stderr output still counts as a failure,
	// otherwise we'd happily parse half-broken responses
	if diagnostic != "" {
		r.logger.Warnw("wpctl emitted unexpected diagnostics", "args", args, "stderr", diagnostic)
		return "", &ToolError{Args: args, Diagnostic: diagnostic}
	}

	return stdout.String(), nil
}

// filterDiagnostic drops known benign warning lines from captured stderr,
// returning whatever remains trimmed
func filterDiagnostic(stderr string) string {
	if stderr == "" {
		return ""
	}

	kept := []string{}

	for _, line := range strings.Split(stderr, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		benign := false
		for _, fragment := range benignDiagnosticFragments {
			if strings.Contains(line, fragment) {
				benign = true
				break
			}
		}

		if !benign {
			kept = append(kept, strings.TrimSpace(line))
		}
	}

	return strings.Join(kept, "\n")
}
