// Package vcs reads file content and history from a project's git
// repository and feeds snapshots into the diff engine.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// RefReader retrieves file content at a version-control ref. A nil byte
// slice with a nil error means the file does not exist at that ref.
type RefReader interface {
	FileAtRef(ctx context.Context, repoRoot, relPath, ref string) ([]byte, error)
	FileHistory(ctx context.Context, repoRoot, relPath string, count int) ([]Commit, error)
}

// Commit is one history entry for a tracked file.
type Commit struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	Subject string    `json:"subject"`
}

// GitReader shells out to the git CLI. Using the CLI rather than a
// library keeps ref semantics (HEAD, branches, tags, short hashes)
// identical to what the user sees in their own terminal.
type GitReader struct{}

func NewGitReader() *GitReader { return &GitReader{} }

// logFieldSep separates fields in the custom log format; unit separator
// never appears in commit metadata.
const logFieldSep = "\x1f"

// FileAtRef returns the file blob at ref, or nil when the path does not
// exist at that ref. Other git failures (bad ref, not a repo) are errors.
func (g *GitReader) FileAtRef(ctx context.Context, repoRoot, relPath, ref string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", repoRoot, "show", ref+":"+relPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if strings.Contains(msg, "does not exist") ||
			strings.Contains(msg, "exists on disk, but not in") {
			return nil, nil
		}
		return nil, fmt.Errorf("git show %s:%s: %s", ref, relPath, strings.TrimSpace(msg))
	}
	return stdout.Bytes(), nil
}

// FileHistory lists the most recent commits touching the path, newest
// first.
func (g *GitReader) FileHistory(ctx context.Context, repoRoot, relPath string, count int) ([]Commit, error) {
	format := "%H" + logFieldSep + "%an" + logFieldSep + "%aI" + logFieldSep + "%s"
	cmd := exec.CommandContext(ctx, "git", "-C", repoRoot,
		"log", "-n", fmt.Sprint(count), "--format="+format, "--", relPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git log %s: %s", relPath, strings.TrimSpace(stderr.String()))
	}

	var commits []Commit
	for _, line := range strings.Split(stdout.String(), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, logFieldSep, 4)
		if len(parts) != 4 {
			continue
		}
		date, err := time.Parse(time.RFC3339, parts[2])
		if err != nil {
			return nil, fmt.Errorf("parse commit date %q: %w", parts[2], err)
		}
		commits = append(commits, Commit{
			Hash:    parts[0],
			Author:  parts[1],
			Date:    date,
			Subject: parts[3],
		})
	}
	return commits, nil
}

var _ RefReader = (*GitReader)(nil)
