package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	bolt "go.etcd.io/bbolt"
)

const (
	// SliceSize is the unit uploads are split into and digested by.
	SliceSize = 4 << 20
	// DownloadBufferSize bounds each read during a download.
	DownloadBufferSize = 512 << 10
)

// ErrCorrupt reports a download whose content no longer matches the digests
// recorded at upload time.
var ErrCorrupt = errors.New("content does not match upload digests")

// Upload copies localPath into destDir/name slice by slice, recording one
// xxhash digest per slice. The file appears only once every slice landed.
func (d *Drive) Upload(ctx context.Context, destDir, name, localPath string, overwrite bool) error {
	if err := d.authorized(); err != nil {
		return err
	}
	target := path.Join(clean(destDir), name)
	if name == "" || name != path.Base(name) {
		return fmt.Errorf("upload %s: invalid name %q", target, name)
	}
	if info, err := os.Stat(d.hostPath(target)); err == nil {
		if !overwrite {
			return fmt.Errorf("upload %s: %w", target, fs.ErrExist)
		}
		if info.IsDir() {
			return fmt.Errorf("upload %s: is a directory", target)
		}
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("upload %s: %w", target, err)
	}
	defer src.Close()

	dir := filepath.Dir(d.hostPath(target))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("upload %s: %w", target, err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("upload %s: %w", target, err)
	}
	defer os.Remove(tmp.Name())

	digests, err := copySlices(ctx, tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("upload %s: %w", target, err)
	}
	if err := os.Rename(tmp.Name(), d.hostPath(target)); err != nil {
		return fmt.Errorf("upload %s: %w", target, err)
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		id, err := idFor(tx, target)
		if err != nil {
			return err
		}
		return putDigests(tx, id, digests)
	})
}

func copySlices(ctx context.Context, dst io.Writer, src io.Reader) ([]uint64, error) {
	buf := make([]byte, SliceSize)
	var digests []uint64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			digests = append(digests, xxhash.Sum64(buf[:n]))
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return nil, werr
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return digests, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Download streams the file with remoteID into destPath, checking each slice
// against its upload digest. Files placed in the drive by other means are
// copied unchecked.
func (d *Drive) Download(ctx context.Context, remoteID uint64, destPath string) error {
	if err := d.authorized(); err != nil {
		return err
	}
	var (
		remote  string
		digests []uint64
		known   bool
	)
	err := d.db.View(func(tx *bolt.Tx) error {
		p, ok := pathOf(tx, remoteID)
		if !ok {
			return fmt.Errorf("file %d: %w", remoteID, fs.ErrNotExist)
		}
		remote = p
		var err error
		digests, known, err = getDigests(tx, remoteID)
		return err
	})
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	src, err := os.Open(d.hostPath(remote))
	if err != nil {
		return fmt.Errorf("download %s: %w", remote, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("download %s: %w", remote, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".download-*")
	if err != nil {
		return fmt.Errorf("download %s: %w", remote, err)
	}
	defer os.Remove(tmp.Name())

	v := &verifier{digests: digests, check: known, digest: xxhash.New()}
	err = copyVerified(ctx, tmp, src, v)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("download %s: %w", remote, err)
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return fmt.Errorf("download %s: %w", remote, err)
	}
	return nil
}

type verifier struct {
	digests []uint64
	check   bool
	digest  *xxhash.Digest
	slice   int
	filled  int
}

func (v *verifier) write(p []byte) error {
	for len(p) > 0 {
		part := p
		if room := SliceSize - v.filled; len(part) > room {
			part = part[:room]
		}
		_, _ = v.digest.Write(part)
		v.filled += len(part)
		p = p[len(part):]
		if v.filled == SliceSize {
			if err := v.seal(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *verifier) seal() error {
	defer func() {
		v.digest.Reset()
		v.filled = 0
		v.slice++
	}()
	if !v.check {
		return nil
	}
	if v.slice >= len(v.digests) || v.digests[v.slice] != v.digest.Sum64() {
		return fmt.Errorf("slice %d: %w", v.slice, ErrCorrupt)
	}
	return nil
}

func (v *verifier) finish() error {
	if v.filled > 0 {
		if err := v.seal(); err != nil {
			return err
		}
	}
	if v.check && v.slice != len(v.digests) {
		return fmt.Errorf("expected %d slices, got %d: %w", len(v.digests), v.slice, ErrCorrupt)
	}
	return nil
}

func copyVerified(ctx context.Context, dst io.Writer, src io.Reader, v *verifier) error {
	buf := make([]byte, DownloadBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := src.Read(buf)
		if n > 0 {
			if verr := v.write(buf[:n]); verr != nil {
				return verr
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return v.finish()
		}
		if err != nil {
			return err
		}
	}
}
