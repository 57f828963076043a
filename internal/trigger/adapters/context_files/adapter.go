// Package contextfiles enumerates a docker build context directory,
// honoring its .dockerignore file.
package contextfiles

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
)

const ignoreFileName = ".dockerignore"

// Adapter implements ports.ContextListerPort by walking the context
// directory with the same pattern semantics the docker toolchain applies
// when it uploads a build context.
type Adapter struct {
	logger *slog.Logger
}

// New creates a build context lister.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

// ListContext returns the absolute paths of every regular file under dir
// that survives the directory's .dockerignore, if one exists.
func (a *Adapter) ListContext(ctx context.Context, dir string) ([]string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve context dir: %w", err)
	}

	patterns, err := readIgnoreFile(filepath.Join(root, ignoreFileName))
	if err != nil {
		return nil, err
	}
	matcher, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, fmt.Errorf("parse %s patterns: %w", ignoreFileName, err)
	}

	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		ignored, err := matcher.MatchesOrParentMatches(filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("match %s: %w", rel, err)
		}

		if d.IsDir() {
			// A negated pattern can re-include files under an ignored
			// directory, so the walk only prunes when none exist.
			if ignored && !matcher.Exclusions() {
				return filepath.SkipDir
			}
			return nil
		}
		if !ignored {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk build context %s: %w", root, walkErr)
	}

	a.logger.Debug("listed build context", "dir", root, "count", len(files))
	return files, nil
}

func readIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return patterns, nil
}
