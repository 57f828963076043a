package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pachlabs/pach-trigger/internal/trigger/domain"
	"github.com/pachlabs/pach-trigger/internal/trigger/ports"
)

// TriggerService implements ports.TriggerUseCase: decide whether the last
// commit warrants a rebuild, then run build, publish, and pipeline update
// strictly in that order. Fully sequential; any stage failure aborts the
// run with no retry and no rollback.
type TriggerService struct {
	diff      ports.DiffSourcePort
	contexts  ports.ContextListerPort
	builder   ports.ImageBuilderPort
	pipelines ports.PipelineServicePort
	secrets   ports.SecretsPort
	specDiff  ports.SpecDiffPort
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewTriggerService wires the service with all driven ports.
func NewTriggerService(
	diff ports.DiffSourcePort,
	contexts ports.ContextListerPort,
	builder ports.ImageBuilderPort,
	pipelines ports.PipelineServicePort,
	secrets ports.SecretsPort,
	specDiff ports.SpecDiffPort,
	logger *slog.Logger,
	tracer trace.Tracer,
) *TriggerService {
	return &TriggerService{
		diff:      diff,
		contexts:  contexts,
		builder:   builder,
		pipelines: pipelines,
		secrets:   secrets,
		specDiff:  specDiff,
		logger:    logger,
		tracer:    tracer,
	}
}

// Execute runs the trigger flow for one commit:
//
//	Start → Loaded → {Skipped | Building → Publishing → Updating → Done}
//
// The returned Outcome carries the final state; on error the state is
// StateFailed and the error is one of the four domain error kinds.
func (s *TriggerService) Execute(ctx context.Context, run domain.Run) (domain.Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "trigger.execute")
	defer span.End()

	image := domain.TaggedImage(run.Config.ImageName, run.CommitSHA)
	span.SetAttributes(attribute.String("trigger.image", image))

	ref, err := run.Spec.Ref()
	if err != nil {
		return failed(), domain.NewConfigError(err)
	}
	s.logger.Info("run loaded",
		"pipeline", ref.String(),
		"image", image,
		"policy", run.Config.Policy.String(),
	)

	decision, err := s.decide(ctx, run, ref)
	if err != nil {
		return failed(), err
	}
	s.logger.Info("decision", "rebuild", decision.Rebuild, "reason", decision.Reason.String())
	if decision.Warning != "" {
		s.logger.Warn(decision.Warning, "build_dir", run.Config.BuildContextDir)
	}

	if !decision.Rebuild {
		s.logger.Info("no changes detected to the files within the docker build context",
			"build_dir", run.Config.BuildContextDir,
		)
		s.logger.Info("exiting without updating pipeline")
		return domain.Outcome{State: domain.StateSkipped, Decision: decision, Image: image}, nil
	}

	if run.DryRun {
		s.logDryRun(run, ref, image)
		return domain.Outcome{State: domain.StateSkipped, Decision: decision, Image: image}, nil
	}

	if err := s.buildAndUpdate(ctx, run, ref, image); err != nil {
		return failed(), err
	}
	return domain.Outcome{State: domain.StateDone, Decision: decision, Image: image}, nil
}

// decide gathers the decision inputs. The remote existence check runs
// first so a missing pipeline rebuilds without touching the diff at all
// (the bootstrap case, where HEAD^ may not even exist). PolicyLenient
// rebuilds regardless, so it skips the remote round-trip.
func (s *TriggerService) decide(
	ctx context.Context,
	run domain.Run,
	ref domain.PipelineRef,
) (domain.Decision, error) {
	exists := true
	if run.Config.Policy == domain.PolicyStrict {
		var err error
		exists, err = s.pipelines.PipelineExists(ctx, ref)
		if err != nil {
			return domain.Decision{}, domain.NewUpdateError(ref.String(), err)
		}
		if !exists {
			s.logger.Info("pipeline does not exist remotely, bootstrapping", "pipeline", ref.String())
		}
	}

	var changed, contextFiles []string
	if exists {
		var err error
		changed, err = s.diff.ChangedFiles(ctx)
		if err != nil {
			return domain.Decision{}, fmt.Errorf("computing diff set: %w", err)
		}
		s.logger.Info("git diff", "count", len(changed), "files", changed)

		contextFiles, err = s.contexts.ListContext(ctx, run.Config.BuildContextDir)
		if err != nil {
			return domain.Decision{}, fmt.Errorf("listing build context: %w", err)
		}
		s.logger.Debug("build context", "count", len(contextFiles), "files", contextFiles)
	}

	return domain.Decide(domain.DecisionInput{
		Policy:         run.Config.Policy,
		PipelineExists: exists,
		SpecPath:       run.Config.PipelineSpecPath,
		Changed:        changed,
		ContextFiles:   contextFiles,
	}), nil
}

// buildAndUpdate is the three-stage sequence. Build and push always run
// back-to-back; only after a successful push is the pipeline touched, so
// a pipeline never references an image that was not published.
func (s *TriggerService) buildAndUpdate(
	ctx context.Context,
	run domain.Run,
	ref domain.PipelineRef,
	image string,
) error {
	s.logger.Info("building image", "state", domain.StateBuilding.String(), "image", image)
	ctx, span := s.tracer.Start(ctx, "trigger.build_and_update")
	defer span.End()

	if err := s.builder.Build(ctx, image, run.Config.DockerfilePath, run.Config.BuildContextDir); err != nil {
		return domain.NewBuildError(image, err)
	}

	s.logger.Info("pushing image", "state", domain.StatePublishing.String(), "image", image)
	creds, err := s.secrets.RegistryCredentials(ctx)
	if err != nil {
		return domain.NewPublishError(image, err)
	}
	if err := s.builder.Push(ctx, image, creds); err != nil {
		return domain.NewPublishError(image, err)
	}

	s.logger.Info("updating pipeline", "state", domain.StateUpdating.String(), "pipeline", ref.String())
	if err := run.Spec.SetTransformImage(image); err != nil {
		return domain.NewUpdateError(ref.String(), err)
	}
	payload, err := run.Spec.EncodeJSON()
	if err != nil {
		return domain.NewUpdateError(ref.String(), err)
	}
	if err := s.pipelines.UpsertPipeline(ctx, ref, payload); err != nil {
		return domain.NewUpdateError(ref.String(), err)
	}

	s.logger.Info("pipeline updated", "pipeline", ref.String(), "image", image)
	return nil
}

// logDryRun shows the pipeline document change the update stage would
// submit, without building, pushing, or updating anything.
func (s *TriggerService) logDryRun(run domain.Run, ref domain.PipelineRef, image string) {
	before, err := run.Spec.EncodeJSON()
	if err != nil {
		s.logger.Error("dry-run: encoding current spec", "error", err)
		return
	}
	if err := run.Spec.SetTransformImage(image); err != nil {
		s.logger.Error("dry-run: applying image to spec", "error", err)
		return
	}
	after, err := run.Spec.EncodeJSON()
	if err != nil {
		s.logger.Error("dry-run: encoding updated spec", "error", err)
		return
	}

	diff := s.specDiff.ComputeDiff(
		ref.String()+" (current)",
		ref.String()+" ("+image+")",
		before,
		after,
	)
	if diff == "" {
		s.logger.Info("dry-run: pipeline already references this image", "image", image)
		return
	}
	s.logger.Info("dry-run: would build, push, and update", "image", image)
	fmt.Println(diff)
}

func failed() domain.Outcome {
	return domain.Outcome{State: domain.StateFailed}
}
