// Package gitdiff computes the set of files changed in the most recent
// commit of a local repository.
package gitdiff

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Adapter implements ports.DiffSourcePort against the local clone the CI
// job checked out, diffing HEAD against its first parent.
type Adapter struct {
	repoDir string
	logger  *slog.Logger
}

// New creates a git diff adapter rooted at repoDir. repoDir may be any
// directory inside the working tree; the .git directory is discovered
// upward from it.
func New(repoDir string, logger *slog.Logger) *Adapter {
	return &Adapter{repoDir: repoDir, logger: logger}
}

// ChangedFiles returns the absolute paths touched by HEAD relative to its
// first parent. A root commit has no parent and yields an empty set
// rather than an error.
func (a *Adapter) ChangedFiles(ctx context.Context) ([]string, error) {
	repo, err := gogit.PlainOpenWithOptions(a.repoDir, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open repo at %s: %w", a.repoDir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("read head: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("read head commit: %w", err)
	}

	if commit.NumParents() == 0 {
		a.logger.Debug("head has no parent, empty diff set", "commit", commit.Hash.String())
		return nil, nil
	}
	parent, err := commit.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("read parent commit: %w", err)
	}

	headTree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read head tree: %w", err)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("read parent tree: %w", err)
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, headTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", parent.Hash.String(), commit.Hash.String(), err)
	}

	root, err := worktreeRoot(repo, a.repoDir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(changes))
	files := make([]string, 0, len(changes))
	for _, change := range changes {
		name := change.To.Name
		if name == "" {
			// Deletion: only the From side carries the path.
			name = change.From.Name
		}
		abs := filepath.Join(root, filepath.FromSlash(name))
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}
	return files, nil
}

func worktreeRoot(repo *gogit.Repository, fallback string) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}
	root := wt.Filesystem.Root()
	if root == "" {
		root = fallback
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve worktree root: %w", err)
	}
	return abs, nil
}
