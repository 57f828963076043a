package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/pachlabs/pach-trigger/internal/trigger/domain"
)

// Mock adapters for testing

type mockDiffSource struct {
	files []string
	err   error
	calls int
}

func (m *mockDiffSource) ChangedFiles(_ context.Context) ([]string, error) {
	m.calls++
	return m.files, m.err
}

type mockContextLister struct {
	files []string
	calls int
}

func (m *mockContextLister) ListContext(_ context.Context, _ string) ([]string, error) {
	m.calls++
	return m.files, nil
}

type mockBuilder struct {
	buildErr error
	pushErr  error
	built    []string
	pushed   []string
}

func (m *mockBuilder) Build(_ context.Context, image, _, _ string) error {
	if m.buildErr != nil {
		return m.buildErr
	}
	m.built = append(m.built, image)
	return nil
}

func (m *mockBuilder) Push(_ context.Context, image string, _ domain.RegistryCredentials) error {
	if m.pushErr != nil {
		return m.pushErr
	}
	m.pushed = append(m.pushed, image)
	return nil
}

type mockPipelineService struct {
	exists    bool
	existsErr error
	upsertErr error

	existsCalls int
	upserted    [][]byte
}

func (m *mockPipelineService) PipelineExists(_ context.Context, _ domain.PipelineRef) (bool, error) {
	m.existsCalls++
	return m.exists, m.existsErr
}

func (m *mockPipelineService) UpsertPipeline(_ context.Context, _ domain.PipelineRef, spec []byte) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, spec)
	return nil
}

type mockSecrets struct {
	err error
}

func (m *mockSecrets) RegistryCredentials(_ context.Context) (domain.RegistryCredentials, error) {
	if m.err != nil {
		return domain.RegistryCredentials{}, m.err
	}
	return domain.RegistryCredentials{Username: "ci", Token: "hunter2"}, nil
}

type mockSpecDiff struct{}

func (mockSpecDiff) ComputeDiff(_, _ string, from, to []byte) string {
	if string(from) != string(to) {
		return "--- a\n+++ b"
	}
	return ""
}

type fixture struct {
	diff      *mockDiffSource
	contexts  *mockContextLister
	builder   *mockBuilder
	pipelines *mockPipelineService
	secrets   *mockSecrets
	service   *TriggerService
}

func newFixture() *fixture {
	f := &fixture{
		diff:      &mockDiffSource{},
		contexts:  &mockContextLister{},
		builder:   &mockBuilder{},
		pipelines: &mockPipelineService{exists: true},
		secrets:   &mockSecrets{},
	}
	f.service = NewTriggerService(
		f.diff,
		f.contexts,
		f.builder,
		f.pipelines,
		f.secrets,
		mockSpecDiff{},
		slog.New(slog.DiscardHandler),
		nooptrace.NewTracerProvider().Tracer("test"),
	)
	return f
}

func testRun(t *testing.T, policy domain.Policy) domain.Run {
	t.Helper()
	spec, err := domain.ParsePipelineDocument([]byte(
		`{"pipeline": {"name": "edges"}, "transform": {"image": "myimage:old"}}`,
	))
	if err != nil {
		t.Fatalf("parsing test spec: %v", err)
	}
	return domain.Run{
		Config: domain.RunConfig{
			PipelineSpecPath: "/repo/pipeline.json",
			DockerfilePath:   "/repo/app/Dockerfile",
			BuildContextDir:  "/repo/app",
			ImageName:        "myimage",
			Policy:           policy,
		},
		Spec:      spec,
		CommitSHA: "abc123",
	}
}

func TestExecute_ContextChangeBuildsAndUpdates(t *testing.T) {
	f := newFixture()
	f.diff.files = []string{"/repo/app/main.go"}
	f.contexts.files = []string{"/repo/app/main.go", "/repo/app/go.mod"}

	run := testRun(t, domain.PolicyStrict)
	outcome, err := f.service.Execute(context.Background(), run)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if outcome.State != domain.StateDone {
		t.Errorf("State = %s, want Done", outcome.State)
	}
	if outcome.Image != "myimage:abc123" {
		t.Errorf("Image = %q, want myimage:abc123", outcome.Image)
	}
	if len(f.builder.built) != 1 || f.builder.built[0] != "myimage:abc123" {
		t.Errorf("built = %v, want [myimage:abc123]", f.builder.built)
	}
	if len(f.builder.pushed) != 1 {
		t.Errorf("pushed = %v, want one push", f.builder.pushed)
	}
	if len(f.pipelines.upserted) != 1 {
		t.Fatalf("upserted %d definitions, want 1", len(f.pipelines.upserted))
	}
	if got := run.Spec.TransformImage(); got != "myimage:abc123" {
		t.Errorf("transform.image = %q, want myimage:abc123", got)
	}
}

func TestExecute_IrrelevantChangeSkips(t *testing.T) {
	f := newFixture()
	f.diff.files = []string{"/repo/docs/readme.md"}
	f.contexts.files = []string{"/repo/app/main.go"}

	outcome, err := f.service.Execute(context.Background(), testRun(t, domain.PolicyStrict))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if outcome.State != domain.StateSkipped {
		t.Errorf("State = %s, want Skipped", outcome.State)
	}
	if len(f.builder.built) != 0 || len(f.builder.pushed) != 0 || len(f.pipelines.upserted) != 0 {
		t.Error("skip must not build, push, or update")
	}
}

func TestExecute_BootstrapSkipsDiffEntirely(t *testing.T) {
	f := newFixture()
	f.pipelines.exists = false
	// Empty diff: the bootstrap case must rebuild anyway.

	outcome, err := f.service.Execute(context.Background(), testRun(t, domain.PolicyStrict))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if outcome.State != domain.StateDone {
		t.Errorf("State = %s, want Done", outcome.State)
	}
	if outcome.Decision.Reason != domain.ReasonBootstrap {
		t.Errorf("Reason = %s, want bootstrap", outcome.Decision.Reason)
	}
	if f.diff.calls != 0 {
		t.Errorf("diff source consulted %d times during bootstrap, want 0", f.diff.calls)
	}
}

func TestExecute_SpecChangeRebuilds(t *testing.T) {
	f := newFixture()
	f.diff.files = []string{"/repo/pipeline.json"}
	f.contexts.files = []string{"/repo/app/main.go"}

	outcome, err := f.service.Execute(context.Background(), testRun(t, domain.PolicyStrict))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if outcome.State != domain.StateDone {
		t.Errorf("State = %s, want Done", outcome.State)
	}
	if outcome.Decision.Reason != domain.ReasonSpecChanged {
		t.Errorf("Reason = %s, want spec changed", outcome.Decision.Reason)
	}
}

func TestExecute_LenientBuildsWithoutExistenceCheck(t *testing.T) {
	f := newFixture()
	f.diff.files = []string{"/repo/docs/readme.md"}
	f.contexts.files = []string{"/repo/app/main.go"}

	outcome, err := f.service.Execute(context.Background(), testRun(t, domain.PolicyLenient))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if outcome.State != domain.StateDone {
		t.Errorf("State = %s, want Done", outcome.State)
	}
	if outcome.Decision.Warning == "" {
		t.Error("lenient run with irrelevant diff should carry a warning")
	}
	if f.pipelines.existsCalls != 0 {
		t.Errorf("existence checked %d times under lenient policy, want 0", f.pipelines.existsCalls)
	}
}

func TestExecute_BuildFailureAborts(t *testing.T) {
	f := newFixture()
	f.diff.files = []string{"/repo/app/main.go"}
	f.contexts.files = []string{"/repo/app/main.go"}
	f.builder.buildErr = errors.New("step 3/7 failed")

	outcome, err := f.service.Execute(context.Background(), testRun(t, domain.PolicyStrict))
	if !domain.IsBuildError(err) {
		t.Fatalf("Execute() error = %v, want BuildError", err)
	}
	if outcome.State != domain.StateFailed {
		t.Errorf("State = %s, want Failed", outcome.State)
	}
	if len(f.builder.pushed) != 0 || len(f.pipelines.upserted) != 0 {
		t.Error("build failure must not push or update")
	}
}

func TestExecute_MissingCredentialsIsPublishError(t *testing.T) {
	f := newFixture()
	f.diff.files = []string{"/repo/app/main.go"}
	f.contexts.files = []string{"/repo/app/main.go"}
	f.secrets.err = errors.New("DOCKERHUB_USERNAME is not set")

	_, err := f.service.Execute(context.Background(), testRun(t, domain.PolicyStrict))
	if !domain.IsPublishError(err) {
		t.Fatalf("Execute() error = %v, want PublishError", err)
	}
	if len(f.pipelines.upserted) != 0 {
		t.Error("publish failure must leave the pipeline unchanged")
	}
}

func TestExecute_PushFailureLeavesPipelineUnchanged(t *testing.T) {
	f := newFixture()
	f.diff.files = []string{"/repo/app/main.go"}
	f.contexts.files = []string{"/repo/app/main.go"}
	f.builder.pushErr = errors.New("unauthorized")

	run := testRun(t, domain.PolicyStrict)
	_, err := f.service.Execute(context.Background(), run)
	if !domain.IsPublishError(err) {
		t.Fatalf("Execute() error = %v, want PublishError", err)
	}
	if len(f.builder.built) != 1 {
		t.Error("build should have completed before the failed push")
	}
	if len(f.pipelines.upserted) != 0 {
		t.Error("push failure must leave the pipeline unchanged")
	}
	if got := run.Spec.TransformImage(); got != "myimage:old" {
		t.Errorf("transform.image = %q, want untouched myimage:old", got)
	}
}

func TestExecute_UpsertFailureIsUpdateError(t *testing.T) {
	f := newFixture()
	f.diff.files = []string{"/repo/app/main.go"}
	f.contexts.files = []string{"/repo/app/main.go"}
	f.pipelines.upsertErr = errors.New("cluster rejected definition")

	_, err := f.service.Execute(context.Background(), testRun(t, domain.PolicyStrict))
	if !domain.IsUpdateError(err) {
		t.Fatalf("Execute() error = %v, want UpdateError", err)
	}
}

func TestExecute_ExistenceCheckFailureIsUpdateError(t *testing.T) {
	f := newFixture()
	f.pipelines.existsErr = errors.New("connection refused")

	_, err := f.service.Execute(context.Background(), testRun(t, domain.PolicyStrict))
	if !domain.IsUpdateError(err) {
		t.Fatalf("Execute() error = %v, want UpdateError", err)
	}
}

func TestExecute_DryRunExecutesNothing(t *testing.T) {
	f := newFixture()
	f.diff.files = []string{"/repo/app/main.go"}
	f.contexts.files = []string{"/repo/app/main.go"}

	run := testRun(t, domain.PolicyStrict)
	run.DryRun = true

	outcome, err := f.service.Execute(context.Background(), run)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if outcome.State != domain.StateSkipped {
		t.Errorf("State = %s, want Skipped", outcome.State)
	}
	if !outcome.Decision.Rebuild {
		t.Error("dry run should still report the rebuild decision")
	}
	if len(f.builder.built) != 0 || len(f.builder.pushed) != 0 || len(f.pipelines.upserted) != 0 {
		t.Error("dry run must not build, push, or update")
	}
}
