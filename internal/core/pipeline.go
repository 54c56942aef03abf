package core

import (
	"context"
	"time"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"packmgr-deploy/internal/types"
)

const tracerName = "packmgr-deploy/core"

// Pipeline is the delivery sequence for a single target:
// optional readiness poll, then submit, then interpret.
type Pipeline struct {
	Poller       ReadinessPoller
	Submitter    FormSubmitter
	CheckBundles bool
	Clock        func() time.Time
}

func (p Pipeline) Run(ctx context.Context, packagePath string, target types.Target) types.DeliveryResult {
	assert.NotEmpty(ctx, packagePath, "package path must be set")
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "deliver",
		trace.WithAttributes(
			attribute.String("packmgr.host", target.Host()),
			attribute.Bool("packmgr.check_bundles", p.CheckBundles),
		))
	defer span.End()

	start := clock()
	var result types.DeliveryResult
	if p.CheckBundles {
		result = p.pollThenSubmit(ctx, packagePath, target, start, clock)
	} else {
		result = p.Submitter.Submit(ctx, packagePath, target, start)
	}
	recordResult(span, result)
	return result
}

// AwaitReady runs only the readiness poll. The returned result has an empty
// message when the target became ready.
func (p Pipeline) AwaitReady(ctx context.Context, target types.Target) types.DeliveryResult {
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "await-ready",
		trace.WithAttributes(attribute.String("packmgr.host", target.Host())))
	defer span.End()

	start := clock()
	outcome := p.Poller.Await(ctx, target)
	span.SetAttributes(attribute.Int("packmgr.readiness_checks", outcome.Attempts))
	result := finishResult(clock, target, start, outcome.Message, outcome.Kind())
	recordResult(span, result)
	return result
}

func (p Pipeline) pollThenSubmit(ctx context.Context, packagePath string, target types.Target, start time.Time, clock func() time.Time) types.DeliveryResult {
	outcome := p.Poller.Await(ctx, target)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("packmgr.readiness_checks", outcome.Attempts))
	if outcome.State != ReadinessReady {
		log.Debug().Str("host", target.Host()).Str("state", outcome.State.String()).Msg("target not ready")
		return finishResult(clock, target, start, outcome.Message, outcome.Kind())
	}
	return p.Submitter.Submit(ctx, packagePath, target, start)
}

func recordResult(span trace.Span, result types.DeliveryResult) {
	span.SetAttributes(attribute.Int64("packmgr.elapsed_ms", result.ElapsedMs()))
	if result.Succeeded() {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.SetAttributes(attribute.String("packmgr.failure", string(result.Kind)))
	span.SetStatus(codes.Error, result.ErrorMessage)
}
