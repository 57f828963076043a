// Package config provides application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Diff source selection.
const (
	DiffSourceGit    = "git"
	DiffSourceGitHub = "github"
)

// Config holds the environment-supplied configuration. The per-run inputs
// (paths, image name) come from the trigger config file instead; registry
// credentials are read by the secrets adapter at publish time.
type Config struct {
	CommitSHA  string // GITHUB_SHA, required
	ClusterURL string // PACHYDERM_CLUSTER_URL, required

	RepoDir    string // REPO_DIR, falls back to GITHUB_WORKSPACE, then "."
	DiffSource string // DIFF_SOURCE: "git" (default) or "github"
	Policy     string // TRIGGER_POLICY, validated downstream; config file wins

	// GitHub API auth, required only for DIFF_SOURCE=github: either a
	// token or the App installation triple.
	GitHubRepository     string // GITHUB_REPOSITORY ("owner/repo")
	GitHubToken          string
	GitHubAppID          int64
	GitHubInstallationID int64
	GitHubPrivateKey     string // PEM file contents

	LogLevel    string
	OTelEnabled bool // OTEL_ENABLED feature flag
}

// Load reads configuration from environment variables, validates required
// fields, and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		RepoDir:    ".",
		DiffSource: DiffSourceGit,
		LogLevel:   "info",
	}

	if err := loadCoreConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadGitHubConfig(&cfg); err != nil {
		return Config{}, err
	}
	cfg.OTelEnabled = os.Getenv("OTEL_ENABLED") == "true"

	return cfg, nil
}

func loadCoreConfig(cfg *Config) error {
	cfg.CommitSHA = os.Getenv("GITHUB_SHA")
	if cfg.CommitSHA == "" {
		return errors.New("GITHUB_SHA is required")
	}

	cfg.ClusterURL = os.Getenv("PACHYDERM_CLUSTER_URL")
	if cfg.ClusterURL == "" {
		return errors.New("PACHYDERM_CLUSTER_URL is required")
	}

	if v := os.Getenv("REPO_DIR"); v != "" {
		cfg.RepoDir = v
	} else if v := os.Getenv("GITHUB_WORKSPACE"); v != "" {
		cfg.RepoDir = v
	}

	if v := os.Getenv("DIFF_SOURCE"); v != "" {
		if v != DiffSourceGit && v != DiffSourceGitHub {
			return fmt.Errorf("invalid DIFF_SOURCE %q (want %s or %s)", v, DiffSourceGit, DiffSourceGitHub)
		}
		cfg.DiffSource = v
	}

	cfg.Policy = os.Getenv("TRIGGER_POLICY")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

func loadGitHubConfig(cfg *Config) error {
	cfg.GitHubRepository = os.Getenv("GITHUB_REPOSITORY")
	cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	cfg.GitHubPrivateKey = os.Getenv("GITHUB_PRIVATE_KEY")

	var err error
	cfg.GitHubAppID, err = parseOptionalInt64("GITHUB_APP_ID")
	if err != nil {
		return err
	}
	cfg.GitHubInstallationID, err = parseOptionalInt64("GITHUB_INSTALLATION_ID")
	if err != nil {
		return err
	}

	if cfg.DiffSource != DiffSourceGitHub {
		return nil
	}
	if cfg.GitHubRepository == "" {
		return errors.New("GITHUB_REPOSITORY is required when DIFF_SOURCE=github")
	}
	if cfg.GitHubToken == "" && !cfg.HasAppAuth() {
		return errors.New(
			"DIFF_SOURCE=github requires GITHUB_TOKEN or GITHUB_APP_ID+GITHUB_INSTALLATION_ID+GITHUB_PRIVATE_KEY",
		)
	}
	return nil
}

// HasAppAuth reports whether the App installation triple is fully set.
func (c Config) HasAppAuth() bool {
	return c.GitHubAppID != 0 && c.GitHubInstallationID != 0 && c.GitHubPrivateKey != ""
}

func parseOptionalInt64(envKey string) (int64, error) {
	v := os.Getenv(envKey)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, v, err)
	}
	return id, nil
}
