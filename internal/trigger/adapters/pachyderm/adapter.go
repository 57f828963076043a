// Package pachyderm talks to a pachd cluster's JSON pipeline API.
package pachyderm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pachlabs/pach-trigger/internal/trigger/domain"
)

const (
	inspectPipelinePath = "/api/pps_v2.API/InspectPipeline"
	createPipelinePath  = "/api/pps_v2.API/CreatePipelineV2"
)

// Adapter implements ports.PipelineServicePort over the cluster's HTTP
// JSON gateway. No timeout is imposed here; cancellation belongs to the
// invoking CI environment via ctx.
type Adapter struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a cluster client for the given base URL (scheme included).
func New(clusterURL string, logger *slog.Logger) *Adapter {
	return &Adapter{
		baseURL: strings.TrimRight(clusterURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

type pipelineName struct {
	Name    string       `json:"name"`
	Project *projectName `json:"project,omitempty"`
}

type projectName struct {
	Name string `json:"name"`
}

type apiError struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
}

// PipelineExists asks the cluster whether the pipeline is known.
func (a *Adapter) PipelineExists(ctx context.Context, ref domain.PipelineRef) (bool, error) {
	body, err := json.Marshal(map[string]any{
		"pipeline": pipelineName{
			Name:    ref.Name,
			Project: &projectName{Name: ref.Project},
		},
	})
	if err != nil {
		return false, fmt.Errorf("encode inspect request: %w", err)
	}

	status, respBody, err := a.post(ctx, inspectPipelinePath, body)
	if err != nil {
		return false, fmt.Errorf("inspect pipeline %s: %w", ref, err)
	}
	if status == http.StatusOK {
		return true, nil
	}
	if isNotFound(status, respBody) {
		return false, nil
	}
	return false, fmt.Errorf("inspect pipeline %s: status %d: %s", ref, status, truncate(respBody))
}

// UpsertPipeline submits the definition as create-or-update. The update
// flag makes the call idempotent: resubmitting the same definition leaves
// the cluster in the same state.
func (a *Adapter) UpsertPipeline(ctx context.Context, ref domain.PipelineRef, spec []byte) error {
	body, err := json.Marshal(map[string]any{
		"createPipelineRequestJson": string(spec),
		"update":                    true,
	})
	if err != nil {
		return fmt.Errorf("encode upsert request: %w", err)
	}

	status, respBody, err := a.post(ctx, createPipelinePath, body)
	if err != nil {
		return fmt.Errorf("upsert pipeline %s: %w", ref, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("upsert pipeline %s: status %d: %s", ref, status, truncate(respBody))
	}

	a.logger.Debug("pipeline upserted", "pipeline", ref.String())
	return nil
}

func (a *Adapter) post(ctx context.Context, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// isNotFound recognizes the gateway's "no such pipeline" shapes: a plain
// 404, the connect-style string code, or the numeric gRPC NotFound code.
func isNotFound(status int, body []byte) bool {
	if status == http.StatusNotFound {
		return true
	}
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return false
	}
	switch code := apiErr.Code.(type) {
	case string:
		return code == "not_found" || code == "NOT_FOUND"
	case float64:
		return int(code) == 5
	}
	return false
}

func truncate(body []byte) string {
	const max = 512
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
