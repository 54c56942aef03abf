package core

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"packmgr-deploy/internal/ports"
	"packmgr-deploy/internal/types"
)

const (
	BundleStatusPath        = "/system/console/bundles.json"
	DefaultReadinessChecks  = 11
	DefaultReadinessBackoff = 1000 * time.Millisecond
	ExhaustedMessage        = "exhausted all retries, system not ready"
)

const ParseFailedMessage = "not able to parse response from " + BundleStatusPath

var errMissingStatusArray = errbuilder.New().
	WithCode(errbuilder.CodeInvalidArgument).
	WithMsg("bundle status has no s array")

type ReadinessState int

const (
	ReadinessChecking ReadinessState = iota
	ReadinessRetrying
	ReadinessReady
	ReadinessExhausted
	ReadinessNetworkFailed
	ReadinessStatusFailed
	ReadinessParseFailed
)

func (s ReadinessState) String() string {
	switch s {
	case ReadinessChecking:
		return "checking"
	case ReadinessRetrying:
		return "retrying"
	case ReadinessReady:
		return "ready"
	case ReadinessExhausted:
		return "exhausted"
	case ReadinessNetworkFailed:
		return "network-failed"
	case ReadinessStatusFailed:
		return "status-failed"
	case ReadinessParseFailed:
		return "parse-failed"
	default:
		return "unknown"
	}
}

func (s ReadinessState) Terminal() bool {
	return s != ReadinessChecking && s != ReadinessRetrying
}

// ReadinessOutcome is where the poller stopped. Message is empty only when
// State is ReadinessReady.
type ReadinessOutcome struct {
	State    ReadinessState
	Attempts int
	Message  string
}

func (o ReadinessOutcome) Kind() types.FailureKind {
	switch o.State {
	case ReadinessReady:
		return types.FailureNone
	case ReadinessExhausted:
		return types.FailureReadinessExhausted
	case ReadinessStatusFailed:
		return types.FailureStatusQuery
	case ReadinessParseFailed:
		return types.FailureStatusParse
	default:
		return types.FailureNetwork
	}
}

// ReadinessPoller polls a target's bundle status at a fixed interval until
// no bundle is stopping or failed. It gives up after MaxChecks queries.
type ReadinessPoller struct {
	Status    ports.BundleStatusPort
	MaxChecks int
	Interval  time.Duration
}

func NewReadinessPoller(status ports.BundleStatusPort) ReadinessPoller {
	return ReadinessPoller{
		Status:    status,
		MaxChecks: DefaultReadinessChecks,
		Interval:  DefaultReadinessBackoff,
	}
}

func (p ReadinessPoller) Await(ctx context.Context, target types.Target) ReadinessOutcome {
	maxChecks := p.MaxChecks
	if maxChecks <= 0 {
		maxChecks = DefaultReadinessChecks
	}
	state := ReadinessChecking
	attempt := 1
	message := ""
	for !state.Terminal() {
		switch state {
		case ReadinessChecking:
			log.Debug().Str("host", target.Host()).Int("attempt", attempt).Msg("check if system is fully up and running")
			state, message = p.check(ctx, target)
		case ReadinessRetrying:
			if attempt >= maxChecks {
				state, message = ReadinessExhausted, ExhaustedMessage
				continue
			}
			log.Info().Str("host", target.Host()).
				Msgf("not all services started, will wait with deployment (%d/%d)", attempt, maxChecks-1)
			if err := p.wait(ctx); err != nil {
				state, message = ReadinessNetworkFailed, TransportErrorCode(err)
				continue
			}
			attempt++
			state = ReadinessChecking
		}
	}
	return ReadinessOutcome{State: state, Attempts: attempt, Message: message}
}

func (p ReadinessPoller) check(ctx context.Context, target types.Target) (ReadinessState, string) {
	resp, err := p.Status.QueryBundleStatus(ctx, target)
	if err != nil {
		return ReadinessNetworkFailed, TransportErrorCode(err)
	}
	if resp.StatusCode != http.StatusOK {
		return ReadinessStatusFailed, strconv.Itoa(resp.StatusCode)
	}
	snapshot, err := ParseBundleStatus(resp.Body)
	if err != nil {
		return ReadinessParseFailed, ParseFailedMessage
	}
	log.Debug().Str("host", target.Host()).Ints("bundles", snapshot).Msg("bundle status")
	if snapshot.Ready() {
		return ReadinessReady, ""
	}
	return ReadinessRetrying, ""
}

func (p ReadinessPoller) wait(ctx context.Context) error {
	timer := time.NewTimer(p.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type bundleStatusBody struct {
	S *[]int `json:"s"`
}

// ParseBundleStatus decodes {"s":[...]}. A body without an "s" array is an
// error; an array of the wrong length is returned as-is and is simply not
// ready.
func ParseBundleStatus(body []byte) (types.BundleStatusSnapshot, error) {
	var payload bundleStatusBody
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.S == nil {
		return nil, errMissingStatusArray
	}
	return types.BundleStatusSnapshot(*payload.S), nil
}
