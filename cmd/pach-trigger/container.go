package main

import (
	"fmt"
	"log/slog"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/pachlabs/pach-trigger/internal/platform/config"
	ghclient "github.com/pachlabs/pach-trigger/internal/platform/github"
	"github.com/pachlabs/pach-trigger/internal/platform/telemetry"
	contextfiles "github.com/pachlabs/pach-trigger/internal/trigger/adapters/context_files"
	dockerbuild "github.com/pachlabs/pach-trigger/internal/trigger/adapters/docker_build"
	envsecrets "github.com/pachlabs/pach-trigger/internal/trigger/adapters/env_secrets"
	gitdiff "github.com/pachlabs/pach-trigger/internal/trigger/adapters/git_diff"
	githubdiff "github.com/pachlabs/pach-trigger/internal/trigger/adapters/github_diff"
	"github.com/pachlabs/pach-trigger/internal/trigger/adapters/pachyderm"
	runcfg "github.com/pachlabs/pach-trigger/internal/trigger/adapters/run_cfg"
	specdiff "github.com/pachlabs/pach-trigger/internal/trigger/adapters/spec_diff"
	"github.com/pachlabs/pach-trigger/internal/trigger/app"
	"github.com/pachlabs/pach-trigger/internal/trigger/domain"
	"github.com/pachlabs/pach-trigger/internal/trigger/ports"
)

// Container holds all application dependencies.
type Container struct {
	Config  config.Config
	Logger  *slog.Logger
	Trigger ports.TriggerUseCase

	defaultPolicy domain.Policy
}

// NewContainer builds and wires all dependencies.
func NewContainer(cfg config.Config, log *slog.Logger, tel *telemetry.Telemetry) (*Container, error) {
	defaultPolicy, err := domain.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("TRIGGER_POLICY: %w", err)
	}

	diffSource, err := newDiffSource(cfg, log)
	if err != nil {
		return nil, err
	}

	builder, err := dockerbuild.New(log)
	if err != nil {
		return nil, fmt.Errorf("creating docker adapter: %w", err)
	}

	service := app.NewTriggerService(
		diffSource,
		contextfiles.New(log),
		builder,
		pachyderm.New(cfg.ClusterURL, log),
		envsecrets.New(),
		specdiff.New(),
		log,
		tel.Tracer,
	)

	return &Container{
		Config:        cfg,
		Logger:        log,
		Trigger:       service,
		defaultPolicy: defaultPolicy,
	}, nil
}

// LoadRunConfig loads the trigger config file and its pipeline spec,
// applying the environment's default policy when the file sets none.
func (c *Container) LoadRunConfig(path string) (domain.RunConfig, *domain.PipelineDocument, error) {
	return runcfg.Load(path, c.defaultPolicy)
}

func newDiffSource(cfg config.Config, log *slog.Logger) (ports.DiffSourcePort, error) {
	if cfg.DiffSource == config.DiffSourceGit {
		return gitdiff.New(cfg.RepoDir, log), nil
	}

	var client *gogithub.Client
	if cfg.HasAppAuth() {
		var err error
		client, err = ghclient.NewAppClient(cfg.GitHubAppID, cfg.GitHubInstallationID, cfg.GitHubPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("creating github client: %w", err)
		}
	} else {
		client = ghclient.NewTokenClient(cfg.GitHubToken)
	}
	return githubdiff.New(client, cfg.GitHubRepository, cfg.CommitSHA, cfg.RepoDir, log)
}
