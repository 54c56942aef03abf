package adapters

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"packmgr-deploy/internal/ports"
	"packmgr-deploy/internal/types"
)

const defaultPackmgrTimeout = 300 * time.Second

// PackmgrHTTPAdapter posts packages to the package manager service as a
// multipart form, streaming the file from disk.
type PackmgrHTTPAdapter struct {
	Client  *http.Client
	Packmgr types.PackmgrPath
}

func NewPackmgrHTTPAdapter(client *http.Client, packmgr types.PackmgrPath, timeout time.Duration) PackmgrHTTPAdapter {
	return PackmgrHTTPAdapter{
		Client:  withTimeout(client, normalizeTimeout(timeout, defaultPackmgrTimeout)),
		Packmgr: packmgr,
	}
}

func (a PackmgrHTTPAdapter) SubmitPackage(ctx context.Context, packagePath string, target types.Target) (io.ReadCloser, error) {
	file, err := os.Open(packagePath)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to open package").
			WithCause(err)
	}

	url := target.BaseURL() + a.Packmgr.Path()
	reader, writer := io.Pipe()
	form := multipart.NewWriter(writer)
	go func() {
		defer file.Close()
		writer.CloseWithError(writeInstallForm(form, file, filepath.Base(packagePath)))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		_ = reader.CloseWithError(err)
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create package manager request").
			WithCause(err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Basic "+target.Auth())

	log.Debug().Str("host", target.Host()).Str("path", a.Packmgr.Path()).Msg("posting package")
	resp, err := a.Client.Do(req)
	if err != nil {
		_ = reader.CloseWithError(err)
		return nil, err
	}
	log.Debug().Str("host", target.Host()).Int("status", resp.StatusCode).Msg("package manager responded")
	return resp.Body, nil
}

func writeInstallForm(form *multipart.Writer, file io.Reader, filename string) error {
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	if err := form.WriteField("force", "true"); err != nil {
		return err
	}
	if err := form.WriteField("install", "true"); err != nil {
		return err
	}
	return form.Close()
}

var _ ports.PackageSubmitPort = PackmgrHTTPAdapter{}
