// Package runcfg loads the JSON trigger config file and the pipeline
// spec it points at.
package runcfg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pachlabs/pach-trigger/api"
	"github.com/pachlabs/pach-trigger/internal/trigger/domain"
)

// Load parses the trigger config at path, resolves its relative paths
// against the config file's own directory (never the process working
// directory), and parses + validates the pipeline spec document so a
// structurally bad spec fails before anything is built. defaultPolicy
// applies when the file does not set one.
//
// All failures are domain.ConfigError.
func Load(path string, defaultPolicy domain.Policy) (domain.RunConfig, *domain.PipelineDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RunConfig{}, nil, domain.NewConfigError(fmt.Errorf("reading %s: %w", path, err))
	}

	var file api.Config
	if err := json.Unmarshal(data, &file); err != nil {
		return domain.RunConfig{}, nil, domain.NewConfigError(fmt.Errorf("parsing %s: %w", path, err))
	}
	if err := requireKeys(file); err != nil {
		return domain.RunConfig{}, nil, domain.NewConfigError(fmt.Errorf("%s: %w", path, err))
	}

	policy := defaultPolicy
	if file.Policy != "" {
		policy, err = domain.ParsePolicy(file.Policy)
		if err != nil {
			return domain.RunConfig{}, nil, domain.NewConfigError(fmt.Errorf("%s: %w", path, err))
		}
	}

	baseDir := filepath.Dir(path)
	cfg := domain.RunConfig{
		PipelineSpecPath: resolve(baseDir, file.PipelineSpec),
		DockerfilePath:   resolve(baseDir, file.Dockerfile),
		BuildContextDir:  resolve(baseDir, file.BuildDir),
		ImageName:        file.ImageName,
		Policy:           policy,
	}

	spec, err := loadPipelineSpec(cfg.PipelineSpecPath)
	if err != nil {
		return domain.RunConfig{}, nil, err
	}
	return cfg, spec, nil
}

func requireKeys(file api.Config) error {
	switch {
	case file.PipelineSpec == "":
		return fmt.Errorf("missing required key %q", "pipeline_spec")
	case file.Dockerfile == "":
		return fmt.Errorf("missing required key %q", "dockerfile")
	case file.BuildDir == "":
		return fmt.Errorf("missing required key %q", "build_dir")
	case file.ImageName == "":
		return fmt.Errorf("missing required key %q", "image_name")
	}
	return nil
}

func resolve(baseDir, rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	abs, err := filepath.Abs(filepath.Join(baseDir, rel))
	if err != nil {
		// filepath.Abs only fails when the working directory is gone;
		// the joined path is still usable.
		return filepath.Clean(filepath.Join(baseDir, rel))
	}
	return abs
}

// loadPipelineSpec parses the pipeline definition, JSON by default and
// YAML for .yaml/.yml files, and validates the parts the run depends on:
// an addressable pipeline and a transform object to rewrite.
func loadPipelineSpec(path string) (*domain.PipelineDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewConfigError(fmt.Errorf("reading pipeline spec %s: %w", path, err))
	}

	var doc *domain.PipelineDocument
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		doc, err = domain.ParsePipelineDocumentYAML(data)
	default:
		doc, err = domain.ParsePipelineDocument(data)
	}
	if err != nil {
		return nil, domain.NewConfigError(fmt.Errorf("%s: %w", path, err))
	}

	if _, err := doc.Ref(); err != nil {
		return nil, domain.NewConfigError(fmt.Errorf("%s: %w", path, err))
	}
	if !doc.HasTransform() {
		return nil, domain.NewConfigError(fmt.Errorf("%s: pipeline spec has no transform object", path))
	}
	return doc, nil
}
