package app

import "packmgr-deploy/internal/types"

type DeployRequest struct {
	PackagePath  string
	Targets      []string
	TargetsFile  string
	PackmgrPath  string
	CheckBundles bool
	TimeoutSec   int
}

type DeployResult struct {
	Results []types.DeliveryResult
	Failed  int
}

type WaitReadyRequest struct {
	Targets     []string
	TargetsFile string
	TimeoutSec  int
}

type WaitReadyResult struct {
	Results  []types.DeliveryResult
	NotReady int
}

// ResultFunc receives each target's result as soon as its pipeline ends.
// Calls are never concurrent.
type ResultFunc func(types.DeliveryResult)
