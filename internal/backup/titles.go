package backup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/atomicstack/save-cloud/internal/backend"
	"github.com/atomicstack/save-cloud/internal/cloud"
	"github.com/atomicstack/save-cloud/internal/errs"
)

// Entry is one backup archive.
type Entry struct {
	Name     string
	Size     int64
	Modified time.Time
	RemoteID uint64
}

// TitleDirName is the directory name used for a new title.
func TitleDirName(titleID, name string) string {
	clean := Sanitize(name)
	if clean == "" {
		return titleID
	}
	return titleID + " " + clean
}

// LocalTitleDir returns the backup directory of a title, reusing any
// directory under LocalSavesDir whose name starts with titleID.
func (p *Pipeline) LocalTitleDir(titleID, name string) string {
	if host, err := p.Resolve(LocalSavesDir); err == nil {
		if entries, err := os.ReadDir(host); err == nil {
			for _, e := range entries {
				if e.IsDir() && strings.HasPrefix(e.Name(), titleID) {
					return backend.JoinPath(LocalSavesDir, e.Name())
				}
			}
		}
	}
	return backend.JoinPath(LocalSavesDir, TitleDirName(titleID, name))
}

// LocalBackups lists the .zip files of dir, newest name first. A missing
// directory has no backups.
func (p *Pipeline) LocalBackups(dir string) ([]Entry, error) {
	host, err := p.Resolve(dir)
	if err != nil {
		return nil, errs.New(errs.ListingFailed, dir, err)
	}
	entries, err := os.ReadDir(host)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.New(errs.ListingFailed, dir, err)
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".zip") {
			continue
		}
		entry := Entry{Name: e.Name()}
		if info, err := e.Info(); err == nil {
			entry.Size = info.Size()
			entry.Modified = info.ModTime()
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

// CloudTitleDir returns the remote backup directory of a title, reusing an
// existing directory whose name starts with titleID. A missing saves root is
// not an error.
func CloudTitleDir(ctx context.Context, client cloud.Client, titleID, name string) string {
	if entries, err := client.ListDirectory(ctx, CloudSavesDir); err == nil {
		for _, e := range entries {
			if e.IsDir && strings.HasPrefix(e.Name, titleID) {
				return backend.JoinPath(CloudSavesDir, e.Name)
			}
		}
	}
	return backend.JoinPath(CloudSavesDir, TitleDirName(titleID, name))
}

// CloudBackups lists the files of a remote title directory in server order.
// A missing directory has no backups.
func CloudBackups(ctx context.Context, client cloud.Client, dir string) ([]Entry, error) {
	entries, err := client.ListDirectory(ctx, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.New(errs.ListingFailed, dir, err)
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		out = append(out, Entry{Name: e.Name, Size: e.Size, Modified: e.Modified, RemoteID: e.ID})
	}
	return out, nil
}
