package ports

import (
	"context"
	"io"

	"packmgr-deploy/internal/types"
)

// BundleStatusPort queries a target's OSGi bundle status. An error means no
// HTTP response was obtained at all.
type BundleStatusPort interface {
	QueryBundleStatus(ctx context.Context, target types.Target) (types.StatusResponse, error)
}

// PackageSubmitPort uploads a package to a target's package manager and
// returns the streamed response body. An error means no response was obtained.
type PackageSubmitPort interface {
	SubmitPackage(ctx context.Context, packagePath string, target types.Target) (io.ReadCloser, error)
}

type TargetSourcePort interface {
	LoadTargets(path string) ([]string, error)
}
