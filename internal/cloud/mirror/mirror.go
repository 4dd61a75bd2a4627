// Package mirror is a cloud drive backed by a local directory. Remote paths
// map onto files under the drive's root; ids live in a bbolt index so they
// stay stable across renames and restarts.
package mirror

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/atomicstack/save-cloud/internal/cloud"
)

const (
	indexFile = "index.db"
	filesDir  = "files"
	// DefaultVerificationURL is shown to users approving a device code.
	DefaultVerificationURL = "https://save-cloud.local/device"
	// DefaultProfile is the account name reported by FetchProfile.
	DefaultProfile = "mirror"
)

// Option configures a Drive.
type Option func(*Drive)

// WithAutoApprove grants device codes as soon as they are issued.
func WithAutoApprove() Option {
	return func(d *Drive) { d.autoApprove = true }
}

// WithVerificationURL overrides the URL embedded in device codes.
func WithVerificationURL(u string) Option {
	return func(d *Drive) {
		if u != "" {
			d.verificationURL = u
		}
	}
}

// WithProfile sets the account name reported by FetchProfile.
func WithProfile(name string) Option {
	return func(d *Drive) {
		if name != "" {
			d.profile = name
		}
	}
}

// Drive implements cloud.Client over a directory.
type Drive struct {
	root            string
	db              *bolt.DB
	autoApprove     bool
	verificationURL string
	profile         string
	now             func() time.Time

	mu    sync.Mutex
	token string
}

var _ cloud.Client = (*Drive)(nil)

// Open opens or creates a drive rooted at dir.
func Open(dir string, opts ...Option) (*Drive, error) {
	if err := os.MkdirAll(filepath.Join(dir, filesDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create mirror dir: %w", err)
	}
	db, err := bolt.Open(filepath.Join(dir, indexFile), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror index: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets() {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create mirror buckets: %w", err)
	}
	d := &Drive{
		root:            dir,
		db:              db,
		verificationURL: DefaultVerificationURL,
		profile:         DefaultProfile,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Drive) Close() error {
	return d.db.Close()
}

// Root returns the directory the drive lives in.
func (d *Drive) Root() string { return d.root }

func clean(p string) string {
	return path.Clean("/" + p)
}

func (d *Drive) hostPath(p string) string {
	return filepath.Join(d.root, filesDir, filepath.FromSlash(clean(p)))
}

func (d *Drive) exists(p string) bool {
	_, err := os.Lstat(d.hostPath(p))
	return err == nil
}

func (d *Drive) ListDirectory(ctx context.Context, p string) ([]cloud.Entry, error) {
	if err := d.authorized(); err != nil {
		return nil, err
	}
	p = clean(p)
	entries, err := os.ReadDir(d.hostPath(p))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p, err)
	}
	out := make([]cloud.Entry, 0, len(entries))
	err = d.db.Update(func(tx *bolt.Tx) error {
		for _, e := range entries {
			info, err := e.Info()
			if err != nil {
				continue
			}
			child := path.Join(p, e.Name())
			id, err := idFor(tx, child)
			if err != nil {
				return err
			}
			entry := cloud.Entry{ID: id, Name: e.Name(), IsDir: e.IsDir(), Modified: info.ModTime()}
			if !e.IsDir() {
				entry.Size = info.Size()
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", p, err)
	}
	return out, nil
}

func (d *Drive) CreateDirectory(ctx context.Context, p string) error {
	if err := d.authorized(); err != nil {
		return err
	}
	p = clean(p)
	if d.exists(p) {
		return fmt.Errorf("create %s: %w", p, fs.ErrExist)
	}
	if err := os.MkdirAll(d.hostPath(p), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	return nil
}

func (d *Drive) Rename(ctx context.Context, p, newName string) error {
	if err := d.authorized(); err != nil {
		return err
	}
	if newName == "" || newName != path.Base(newName) || newName == "." || newName == ".." {
		return fmt.Errorf("rename %s: invalid name %q", p, newName)
	}
	p = clean(p)
	return d.move(p, path.Join(path.Dir(p), newName))
}

func (d *Drive) Move(ctx context.Context, from, toDir string) error {
	if err := d.authorized(); err != nil {
		return err
	}
	from = clean(from)
	return d.move(from, path.Join(clean(toDir), path.Base(from)))
}

func (d *Drive) move(from, to string) error {
	if from == "/" {
		return fmt.Errorf("move %s: cannot move the root", from)
	}
	if !d.exists(from) {
		return fmt.Errorf("move %s: %w", from, fs.ErrNotExist)
	}
	if d.exists(to) {
		return fmt.Errorf("move %s: %s: %w", from, to, fs.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(d.hostPath(to)), 0o755); err != nil {
		return fmt.Errorf("move %s: %w", from, err)
	}
	if err := os.Rename(d.hostPath(from), d.hostPath(to)); err != nil {
		return fmt.Errorf("move %s: %w", from, err)
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		return rekey(tx, from, to)
	})
}

func (d *Drive) Delete(ctx context.Context, p string) error {
	if err := d.authorized(); err != nil {
		return err
	}
	p = clean(p)
	if p == "/" {
		return fmt.Errorf("delete %s: cannot delete the root", p)
	}
	if !d.exists(p) {
		return fmt.Errorf("delete %s: %w", p, fs.ErrNotExist)
	}
	if err := os.RemoveAll(d.hostPath(p)); err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		return forget(tx, p)
	})
}
