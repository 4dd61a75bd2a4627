// Package backup archives game save directories and restores them with an
// automatic pre-restore backup and ownership patching.
package backup

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/atomicstack/save-cloud/internal/archive"
	"github.com/atomicstack/save-cloud/internal/backend"
	"github.com/atomicstack/save-cloud/internal/device"
	"github.com/atomicstack/save-cloud/internal/errs"
	"github.com/atomicstack/save-cloud/internal/logging"
	"github.com/atomicstack/save-cloud/internal/logging/events"
)

const (
	// LocalSavesDir holds one directory of backups per title.
	LocalSavesDir = "ux0:data/save-cloud/saves"
	// CloudSavesDir is the remote counterpart of LocalSavesDir.
	CloudSavesDir = "/apps/Backup/psvita/save-cloud/saves"
	// TimeLayout names automatic and default backups.
	TimeLayout = "2006-01-02 15.04.05.000"

	paramFile = "sce_sys/param.sfo"
)

// Exclusions are device-bound files that must not travel between consoles.
var Exclusions = []string{
	"sce_pfs",
	"sce_sys/safemem.dat",
	"sce_sys/keystone",
	"sce_sys/sealedkey",
}

// SaveRoots are probed in order for a title's save data.
var SaveRoots = []string{"grw0:savedata", "ux0:user/00/savedata"}

// Patcher stamps the current account into a PARAM.SFO host path.
type Patcher interface {
	PatchCurrent(path string) error
}

// Pipeline runs backups and restores over device paths.
type Pipeline struct {
	devices *device.Table
	patcher Patcher
	now     func() time.Time
}

func New(devices *device.Table, patcher Patcher) *Pipeline {
	return &Pipeline{devices: devices, patcher: patcher, now: time.Now}
}

// Devices returns the table used to resolve paths.
func (p *Pipeline) Devices() *device.Table { return p.devices }

// Resolve maps a device path to its host path.
func (p *Pipeline) Resolve(devicePath string) (string, error) {
	return p.devices.Resolve(devicePath)
}

// Timestamp formats the pipeline clock with TimeLayout.
func (p *Pipeline) Timestamp() string {
	return p.now().Format(TimeLayout)
}

// Exists reports whether the device path exists.
func (p *Pipeline) Exists(devicePath string) bool {
	host, err := p.Resolve(devicePath)
	if err != nil {
		return false
	}
	_, err = os.Stat(host)
	return err == nil
}

// Backup archives src into destZip without the excluded files.
func (p *Pipeline) Backup(src, destZip string, progress archive.Progress) error {
	from, err := p.Resolve(src)
	if err != nil {
		return errs.New(errs.ArchiveCreateFailed, src, err)
	}
	to, err := p.Resolve(destZip)
	if err != nil {
		return errs.New(errs.ArchiveCreateFailed, destZip, err)
	}
	err = archive.Create(from, to, Exclusions, progress)
	events.Backup.Create(src, destZip, err)
	return err
}

// Restore extracts fromZip over targetDir. The current contents of targetDir
// are first saved next to fromZip as "<timestamp> auto.zip"; that step is
// best effort. A PARAM.SFO found afterwards is patched with the current
// account. A failed patch leaves the extracted files in place.
func (p *Pipeline) Restore(fromZip, targetDir string, progress archive.Progress) error {
	src, err := p.Resolve(fromZip)
	if err != nil {
		return errs.New(errs.ArchiveExtractFailed, fromZip, err)
	}
	dst, err := p.Resolve(targetDir)
	if err != nil {
		return errs.New(errs.ArchiveExtractFailed, targetDir, err)
	}

	if info, serr := os.Stat(dst); serr == nil && info.IsDir() {
		auto := backend.JoinPath(Dir(fromZip), p.Timestamp()+" auto.zip")
		aerr := p.Backup(targetDir, auto, nil)
		events.Backup.AutoBackup(auto, aerr)
		if aerr != nil {
			logging.Error(aerr)
		}
	}

	if err := archive.Extract(src, dst, Exclusions, progress); err != nil {
		events.Backup.Restore(fromZip, targetDir, err)
		return err
	}
	events.Backup.Restore(fromZip, targetDir, nil)

	param := filepath.Join(dst, filepath.FromSlash(paramFile))
	if _, err := os.Stat(param); err != nil {
		return nil
	}
	if p.patcher == nil {
		return errs.New(errs.IdentityPatchFailed, param, nil)
	}
	return errs.Wrap(errs.IdentityPatchFailed, param, p.patcher.PatchCurrent(param))
}

// SaveDir returns the first existing save directory of titleID.
func (p *Pipeline) SaveDir(titleID string) (string, bool) {
	for _, root := range SaveRoots {
		candidate := root + "/" + titleID
		if p.Exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// Sanitize replaces characters that are unsafe in file names and trims the
// result.
func Sanitize(name string) string {
	return strings.TrimSpace(unsafeChars.Replace(name))
}

var unsafeChars = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "'", "_", "<", "_", ">", "_", "|", "_",
)

// Dir returns the parent of a device or cloud path, keeping the device
// prefix for top-level entries.
func Dir(p string) string {
	p = strings.TrimSuffix(p, "/")
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		if idx == 0 {
			return "/"
		}
		return p[:idx]
	}
	if idx := strings.Index(p, ":"); idx >= 0 {
		return p[:idx+1]
	}
	return ""
}

// Base returns the last element of a device or cloud path.
func Base(p string) string {
	p = strings.TrimSuffix(p, "/")
	if idx := strings.Index(p, ":"); idx >= 0 && !strings.Contains(p[idx:], "/") {
		return p[idx+1:]
	}
	return path.Base(p)
}
