package app

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"packmgr-deploy/internal/adapters"
	"packmgr-deploy/internal/core"
	"packmgr-deploy/internal/types"
)

// Deploy sends the package to every target concurrently. onResult is called
// once per target in completion order. Per-target failures are reported in
// the results, not as an error.
func (s Service) Deploy(ctx context.Context, req DeployRequest, onResult ResultFunc) (DeployResult, error) {
	packagePath := strings.TrimSpace(req.PackagePath)
	if packagePath == "" {
		return DeployResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package path is required")
	}
	info, err := os.Stat(packagePath)
	if err != nil {
		return DeployResult{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("package not found").
			WithCause(err)
	}
	if info.IsDir() {
		return DeployResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package path is a directory")
	}
	targets, err := s.loadTargets(req.Targets, req.TargetsFile)
	if err != nil {
		return DeployResult{}, err
	}
	cfg := types.DeployConfig{
		Targets:      targets,
		Packmgr:      types.ParsePackmgrPath(req.PackmgrPath),
		CheckBundles: req.CheckBundles,
		Timeout:      time.Duration(req.TimeoutSec) * time.Second,
	}
	assert.NotEmpty(ctx, cfg.Packmgr.Path(), "packmgr path must resolve before submission")

	log.Debug().
		Int("targets", len(cfg.Targets)).
		Str("packmgr_path", cfg.Packmgr.Path()).
		Bool("check_bundles", cfg.CheckBundles).
		Msg("Posting...")
	pipeline := s.pipeline(cfg)
	results := dispatch(ctx, cfg.Targets, onResult, func(ctx context.Context, target types.Target) types.DeliveryResult {
		return pipeline.Run(ctx, packagePath, target)
	})
	return DeployResult{Results: results, Failed: countFailed(results)}, nil
}

// AwaitReady polls every target until its bundles are started, without
// submitting anything.
func (s Service) AwaitReady(ctx context.Context, req WaitReadyRequest, onResult ResultFunc) (WaitReadyResult, error) {
	targets, err := s.loadTargets(req.Targets, req.TargetsFile)
	if err != nil {
		return WaitReadyResult{}, err
	}
	cfg := types.DeployConfig{
		Targets:      targets,
		Packmgr:      types.ParsePackmgrPath(""),
		CheckBundles: true,
		Timeout:      time.Duration(req.TimeoutSec) * time.Second,
	}
	pipeline := s.pipeline(cfg)
	results := dispatch(ctx, cfg.Targets, onResult, pipeline.AwaitReady)
	return WaitReadyResult{Results: results, NotReady: countFailed(results)}, nil
}

func (s Service) loadTargets(raw []string, targetsFile string) ([]types.Target, error) {
	urls := append([]string(nil), raw...)
	if strings.TrimSpace(targetsFile) != "" {
		source := s.TargetSource
		if source == nil {
			source = adapters.NewTargetsFileAdapter()
		}
		fromFile, err := source.LoadTargets(targetsFile)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromFile...)
	}
	targets, err := types.ParseTargets(urls)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one target is required")
	}
	return targets, nil
}

func (s Service) pipeline(cfg types.DeployConfig) core.Pipeline {
	clock := s.Clock
	if clock == nil {
		clock = time.Now
	}
	bundleStatus := s.BundleStatus
	if bundleStatus == nil {
		bundleStatus = adapters.NewBundleStatusHTTPAdapter(s.HTTPClient, cfg.Timeout)
	}
	packmgr := s.Packmgr
	if packmgr == nil {
		packmgr = adapters.NewPackmgrHTTPAdapter(s.HTTPClient, cfg.Packmgr, cfg.Timeout)
	}
	poller := core.NewReadinessPoller(bundleStatus)
	if s.ReadinessChecks > 0 {
		poller.MaxChecks = s.ReadinessChecks
	}
	if s.ReadinessInterval > 0 {
		poller.Interval = s.ReadinessInterval
	}
	return core.Pipeline{
		Poller:       poller,
		Submitter:    core.FormSubmitter{Packmgr: packmgr, Clock: clock},
		CheckBundles: cfg.CheckBundles,
		Clock:        clock,
	}
}

// dispatch runs one goroutine per target and forwards results as they
// arrive. The pipelines share nothing; one failing never stops another.
func dispatch(ctx context.Context, targets []types.Target, onResult ResultFunc, run func(context.Context, types.Target) types.DeliveryResult) []types.DeliveryResult {
	results := make(chan types.DeliveryResult, len(targets))
	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- run(ctx, target)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]types.DeliveryResult, 0, len(targets))
	for result := range results {
		if onResult != nil {
			onResult(result)
		}
		collected = append(collected, result)
	}
	return collected
}

func countFailed(results []types.DeliveryResult) int {
	failed := 0
	for _, result := range results {
		if !result.Succeeded() {
			failed++
		}
	}
	return failed
}
