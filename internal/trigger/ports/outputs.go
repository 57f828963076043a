package ports

import (
	"context"

	"github.com/pachlabs/pach-trigger/internal/trigger/domain"
)

// DiffSourcePort abstracts "files changed between the previous and current
// commit". Implementations return absolute paths; order is not significant.
type DiffSourcePort interface {
	ChangedFiles(ctx context.Context) ([]string, error)
}

// ContextListerPort enumerates the files under a build context directory,
// honoring the .dockerignore convention. Returns absolute paths.
type ContextListerPort interface {
	ListContext(ctx context.Context, dir string) ([]string, error)
}

// ImageBuilderPort abstracts the container build toolchain. Build and Push
// always execute back-to-back; there is no build-only mode.
type ImageBuilderPort interface {
	Build(ctx context.Context, image, dockerfile, contextDir string) error
	Push(ctx context.Context, image string, creds domain.RegistryCredentials) error
}

// PipelineServicePort abstracts the remote cluster's pipeline API.
type PipelineServicePort interface {
	PipelineExists(ctx context.Context, ref domain.PipelineRef) (bool, error)

	// UpsertPipeline submits a pipeline definition as create-or-update.
	// Idempotent from the caller's perspective: submitting the same
	// definition twice produces the same end state.
	UpsertPipeline(ctx context.Context, ref domain.PipelineRef, spec []byte) error
}

// SecretsPort supplies registry credentials at publish time, keeping
// credential handling injectable and auditable.
type SecretsPort interface {
	RegistryCredentials(ctx context.Context) (domain.RegistryCredentials, error)
}

// SpecDiffPort renders a human-readable diff between two serialized
// pipeline documents (dry-run and debug output).
type SpecDiffPort interface {
	ComputeDiff(fromName, toName string, from, to []byte) string
}
