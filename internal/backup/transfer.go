package backup

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/atomicstack/save-cloud/internal/backend"
	"github.com/atomicstack/save-cloud/internal/cloud"
	"github.com/atomicstack/save-cloud/internal/errs"
	"github.com/atomicstack/save-cloud/internal/logging"
	"github.com/atomicstack/save-cloud/internal/logging/events"
)

// StagingDir holds archives built only to be uploaded.
const StagingDir = "ux0:data/save-cloud/tmp"

// Stage returns a fresh device path for a temporary file called name. Each
// call gets its own directory so concurrent stages never collide.
func (p *Pipeline) Stage(name string) string {
	return backend.JoinPath(backend.JoinPath(StagingDir, uuid.NewString()), name)
}

// Upload sends the local file at localPath to destDir under name.
func (p *Pipeline) Upload(ctx context.Context, client cloud.Client, localPath, destDir, name string, overwrite bool) error {
	host, err := p.Resolve(localPath)
	if err != nil {
		return errs.New(errs.TransferFailed, localPath, err)
	}
	var size int64
	if info, err := os.Stat(host); err == nil {
		size = info.Size()
	}
	err = client.Upload(ctx, destDir, name, host, overwrite)
	events.Cloud.Transfer("upload", backend.JoinPath(destDir, name), size, err)
	return errs.Wrap(errs.TransferFailed, "upload "+name, err)
}

// Download fetches remoteID into destPath. An existing destination is
// refused.
func (p *Pipeline) Download(ctx context.Context, client cloud.Client, remoteID uint64, destPath string) error {
	host, err := p.Resolve(destPath)
	if err != nil {
		return errs.New(errs.TransferFailed, destPath, err)
	}
	if _, err := os.Stat(host); err == nil {
		return errs.New(errs.DestinationExists, destPath, nil)
	}
	if err := os.MkdirAll(filepath.Dir(host), 0o755); err != nil {
		return errs.New(errs.TransferFailed, destPath, err)
	}
	err = client.Download(ctx, remoteID, host)
	var size int64
	if info, serr := os.Stat(host); serr == nil {
		size = info.Size()
	}
	events.Cloud.Transfer("download", destPath, size, err)
	return errs.Wrap(errs.TransferFailed, "download "+Base(destPath), err)
}

// Cleanup removes a temporary file and then its directory when that became
// empty. Failures are logged only.
func (p *Pipeline) Cleanup(devicePath string) {
	host, err := p.Resolve(devicePath)
	if err != nil {
		logging.Error(err)
		return
	}
	if err := os.Remove(host); err != nil && !os.IsNotExist(err) {
		logging.Error(err)
		events.Backup.Cleanup(devicePath, err)
		return
	}
	dir := filepath.Dir(host)
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		err = os.Remove(dir)
		events.Backup.Cleanup(Dir(devicePath), err)
		return
	}
	events.Backup.Cleanup(devicePath, nil)
}
