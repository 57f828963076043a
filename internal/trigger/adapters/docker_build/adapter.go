// Package dockerbuild builds and pushes images through the Docker Engine
// API.
package dockerbuild

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	imagetypes "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/moby/patternmatcher/ignorefile"

	"github.com/pachlabs/pach-trigger/internal/trigger/domain"
)

// injectedDockerfileName is the in-context name used when the dockerfile
// lives outside the build context directory (the CLI's `-f` case, which
// the Engine API has no direct equivalent for).
const injectedDockerfileName = ".pach-trigger.dockerfile"

// Adapter implements ports.ImageBuilderPort against the Docker daemon
// named by the standard DOCKER_HOST environment.
type Adapter struct {
	cli    client.APIClient
	logger *slog.Logger
}

// New creates the adapter. The client is lazy; no daemon connection is
// made until Build or Push runs.
func New(logger *slog.Logger) (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Adapter{cli: cli, logger: logger}, nil
}

// Build tars the context directory (honoring .dockerignore) and runs a
// synchronous image build, streaming daemon output to stdout. Build
// errors arrive in-band in the JSON stream, not as a non-2xx response,
// so the stream is decoded rather than drained.
func (a *Adapter) Build(ctx context.Context, image, dockerfile, contextDir string) error {
	excludes, err := contextExcludes(contextDir)
	if err != nil {
		return err
	}
	buildCtx, err := archive.TarWithOptions(contextDir, &archive.TarOptions{
		ExcludePatterns: excludes,
	})
	if err != nil {
		return fmt.Errorf("tar build context %s: %w", contextDir, err)
	}
	defer buildCtx.Close()

	dockerfileName, body, err := dockerfileForContext(dockerfile, contextDir)
	if err != nil {
		return err
	}
	stream := io.ReadCloser(buildCtx)
	if body != nil {
		stream = appendFileToTar(buildCtx, dockerfileName, body)
		defer stream.Close()
	}

	a.logger.Info("building", "image", image, "dockerfile", dockerfile, "context", contextDir)
	resp, err := a.cli.ImageBuild(ctx, stream, types.ImageBuildOptions{
		Tags:       []string{image},
		Dockerfile: dockerfileName,
		Remove:     true,
	})
	if err != nil {
		return fmt.Errorf("image build %s: %w", image, err)
	}
	defer resp.Body.Close()

	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, os.Stdout, 0, false, nil); err != nil {
		return fmt.Errorf("image build %s: %w", image, err)
	}
	return nil
}

// Push pushes the tagged image, authenticating per-request with the
// Engine API's RegistryAuth header; there is no separate login step.
func (a *Adapter) Push(ctx context.Context, image string, creds domain.RegistryCredentials) error {
	auth, err := encodeRegistryAuth(creds)
	if err != nil {
		return err
	}

	a.logger.Info("pushing", "image", image)
	rc, err := a.cli.ImagePush(ctx, image, imagetypes.PushOptions{RegistryAuth: auth})
	if err != nil {
		return fmt.Errorf("image push %s: %w", image, err)
	}
	defer rc.Close()

	if err := jsonmessage.DisplayJSONMessagesStream(rc, os.Stdout, 0, false, nil); err != nil {
		return fmt.Errorf("image push %s: %w", image, err)
	}
	return nil
}

func encodeRegistryAuth(creds domain.RegistryCredentials) (string, error) {
	buf, err := json.Marshal(registry.AuthConfig{
		Username: creds.Username,
		Password: creds.Token,
	})
	if err != nil {
		return "", fmt.Errorf("encode registry auth: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

func contextExcludes(contextDir string) ([]string, error) {
	f, err := os.Open(filepath.Join(contextDir, ".dockerignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open .dockerignore: %w", err)
	}
	defer f.Close()

	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read .dockerignore: %w", err)
	}
	return patterns, nil
}

// dockerfileForContext returns the dockerfile name to pass to the daemon.
// Inside the context it is referenced in place; outside, its bytes are
// returned so the caller injects them into the context stream under a
// reserved name.
func dockerfileForContext(dockerfile, contextDir string) (string, []byte, error) {
	absContext, err := filepath.Abs(contextDir)
	if err != nil {
		return "", nil, fmt.Errorf("resolve context dir: %w", err)
	}
	absDockerfile, err := filepath.Abs(dockerfile)
	if err != nil {
		return "", nil, fmt.Errorf("resolve dockerfile: %w", err)
	}

	rel, err := filepath.Rel(absContext, absDockerfile)
	if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(rel), nil, nil
	}

	body, err := os.ReadFile(absDockerfile)
	if err != nil {
		return "", nil, fmt.Errorf("reading dockerfile %s: %w", absDockerfile, err)
	}
	return injectedDockerfileName, body, nil
}
