package adapters

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"packmgr-deploy/internal/ports"
	"packmgr-deploy/internal/types"
)

const (
	bundleStatusPath           = "/system/console/bundles.json"
	defaultBundleStatusTimeout = 30 * time.Second
	maxBundleStatusBody        = 16 << 20
)

type BundleStatusHTTPAdapter struct {
	Client *http.Client
}

func NewBundleStatusHTTPAdapter(client *http.Client, timeout time.Duration) BundleStatusHTTPAdapter {
	return BundleStatusHTTPAdapter{
		Client: withTimeout(client, normalizeTimeout(timeout, defaultBundleStatusTimeout)),
	}
}

func (a BundleStatusHTTPAdapter) QueryBundleStatus(ctx context.Context, target types.Target) (types.StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.ContextURL()+bundleStatusPath, nil)
	if err != nil {
		return types.StatusResponse{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create bundle status request").
			WithCause(err)
	}
	req.SetBasicAuth(target.Username(), target.Password())
	req.Header.Set("Accept", "application/json")
	resp, err := a.Client.Do(req)
	if err != nil {
		return types.StatusResponse{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBundleStatusBody))
	if err != nil && resp.StatusCode == http.StatusOK {
		return types.StatusResponse{}, err
	}
	return types.StatusResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

var _ ports.BundleStatusPort = BundleStatusHTTPAdapter{}
