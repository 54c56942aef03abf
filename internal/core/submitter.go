package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"packmgr-deploy/internal/ports"
	"packmgr-deploy/internal/types"
)

// FormSubmitter uploads a package to one target and interprets the response.
type FormSubmitter struct {
	Packmgr ports.PackageSubmitPort
	Clock   func() time.Time
}

func NewFormSubmitter(packmgr ports.PackageSubmitPort) FormSubmitter {
	return FormSubmitter{Packmgr: packmgr, Clock: time.Now}
}

// Submit never retries. start is the beginning of the whole pipeline so the
// reported elapsed time includes any readiness wait.
func (s FormSubmitter) Submit(ctx context.Context, packagePath string, target types.Target, start time.Time) types.DeliveryResult {
	body, err := s.Packmgr.SubmitPackage(ctx, packagePath, target)
	if err != nil {
		log.Debug().Err(err).Str("host", target.Host()).Msg("package submission got no response")
		return finishResult(s.clock(), target, start, TransportErrorCode(err), types.FailureNetwork)
	}
	defer body.Close()

	interpreter := NewResponseInterpreter(target.Host())
	if err := interpreter.Consume(ctx, body); err != nil {
		log.Warn().Err(err).Str("host", target.Host()).Msg("response stream ended with an error")
	}
	return finishResult(s.clock(), target, start, interpreter.Verdict(), interpreter.Kind())
}

func (s FormSubmitter) clock() func() time.Time {
	if s.Clock == nil {
		return time.Now
	}
	return s.Clock
}

func finishResult(clock func() time.Time, target types.Target, start time.Time, message string, kind types.FailureKind) types.DeliveryResult {
	now := clock()
	return types.DeliveryResult{
		ErrorMessage: message,
		Host:         target.Host(),
		Elapsed:      now.Sub(start),
		Timestamp:    now,
		Kind:         kind,
	}
}
