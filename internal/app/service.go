package app

import (
	"net/http"
	"time"

	"packmgr-deploy/internal/adapters"
	"packmgr-deploy/internal/core"
	"packmgr-deploy/internal/ports"
)

type Service struct {
	TargetSource ports.TargetSourcePort
	HTTPClient   *http.Client
	// BundleStatus and Packmgr override the HTTP adapters built per request.
	BundleStatus      ports.BundleStatusPort
	Packmgr           ports.PackageSubmitPort
	ReadinessChecks   int
	ReadinessInterval time.Duration
	Clock             func() time.Time
}

func NewService() Service {
	return Service{
		TargetSource:      adapters.NewTargetsFileAdapter(),
		HTTPClient:        adapters.NewHTTPClient(),
		ReadinessChecks:   core.DefaultReadinessChecks,
		ReadinessInterval: core.DefaultReadinessBackoff,
		Clock:             time.Now,
	}
}
