// Package githubdiff lists the files changed in a commit via the GitHub
// REST API. Useful when the CI checkout is too shallow for HEAD^ to
// exist locally.
package githubdiff

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	gogithub "github.com/google/go-github/v68/github"
)

// Adapter implements ports.DiffSourcePort against the GitHub commits API.
type Adapter struct {
	client  *gogithub.Client
	owner   string
	repo    string
	sha     string
	repoDir string
	logger  *slog.Logger
}

// New creates a GitHub diff adapter. ownerRepo is the "owner/repo" form
// GitHub Actions exposes as GITHUB_REPOSITORY; repoDir anchors the
// returned paths so they are comparable with the local build context
// listing.
func New(client *gogithub.Client, ownerRepo, sha, repoDir string, logger *slog.Logger) (*Adapter, error) {
	owner, repo, ok := strings.Cut(ownerRepo, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid repository %q, want owner/repo", ownerRepo)
	}
	return &Adapter{
		client:  client,
		owner:   owner,
		repo:    repo,
		sha:     sha,
		repoDir: repoDir,
		logger:  logger,
	}, nil
}

// ChangedFiles returns the absolute paths of files the commit touched,
// paginating through the commit's file listing.
func (a *Adapter) ChangedFiles(ctx context.Context) ([]string, error) {
	root, err := filepath.Abs(a.repoDir)
	if err != nil {
		return nil, fmt.Errorf("resolve repo dir: %w", err)
	}

	var files []string
	opts := &gogithub.ListOptions{PerPage: 100}
	for {
		commit, resp, err := a.client.Repositories.GetCommit(ctx, a.owner, a.repo, a.sha, opts)
		if err != nil {
			return nil, fmt.Errorf("fetching commit %s from %s/%s: %w", a.sha, a.owner, a.repo, err)
		}
		for _, f := range commit.Files {
			files = append(files, filepath.Join(root, filepath.FromSlash(f.GetFilename())))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	a.logger.Debug("fetched commit file listing", "commit", a.sha, "count", len(files))
	return files, nil
}
