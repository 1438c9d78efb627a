// Package checkpoint snapshots the working tree in a git commit before a
// code-modifying cdd command, so the change can be rolled back with plain
// git. Failures are reported in the Result, never returned.
package checkpoint

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Result messages when no commit was made.
const (
	NotGitRepo = "not_git_repo"
	NoChanges  = "no_changes"
	GitError   = "git_error"
)

// Result is printed as JSON by `cdd checkpoint`.
type Result struct {
	Created bool    `json:"created"`
	Hash    *string `json:"hash"`
	Message string  `json:"message"`
	Error   string  `json:"error,omitempty"`
}

// Message is the commit subject for a checkpoint before command.
func Message(command, details string) string {
	msg := "cdd(checkpoint): before " + command
	if details != "" {
		msg += " " + details
	}
	return msg
}

// Git runs checkpoint commands against one working directory.
type Git struct {
	Dir string
}

// Create commits every change in the working tree. Hooks are skipped with
// --no-verify so a checkpoint cannot be blocked by project tooling.
func (g *Git) Create(ctx context.Context, command, details string) Result {
	if command == "" {
		command = "unknown"
	}
	if !g.isRepo(ctx) {
		return Result{Message: NotGitRepo}
	}

	dirty, err := g.dirty(ctx)
	if err != nil {
		return Result{Hash: g.head(ctx), Message: GitError, Error: err.Error()}
	}
	if !dirty {
		return Result{Hash: g.head(ctx), Message: NoChanges}
	}

	msg := Message(command, details)
	if _, err := g.run(ctx, "add", "-A"); err != nil {
		return Result{Hash: g.head(ctx), Message: GitError, Error: err.Error()}
	}
	if _, err := g.run(ctx, "commit", "-m", msg, "--no-verify"); err != nil {
		return Result{Hash: g.head(ctx), Message: GitError, Error: err.Error()}
	}
	return Result{Created: true, Hash: g.head(ctx), Message: msg}
}

func (g *Git) isRepo(ctx context.Context) bool {
	if _, err := exec.LookPath("git"); err != nil {
		return false
	}
	_, err := g.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

func (g *Git) dirty(ctx context.Context) (bool, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// head returns the short HEAD hash, or nil before the first commit.
func (g *Git) head(ctx context.Context) *string {
	out, err := g.run(ctx, "rev-parse", "--short", "HEAD")
	if err != nil || out == "" {
		return nil
	}
	return &out
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", g.Dir}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
