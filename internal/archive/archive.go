// Package archive writes and reads the zip files backups are stored in.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/atomicstack/save-cloud/internal/errs"
)

const bufferSize = 512 * 1024

// Progress is told about every entry as it is processed. done counts from 1;
// total is 0 while creating, when the count is not known up front.
type Progress func(done, total int, name string)

func (p Progress) report(done, total int, name string) {
	if p != nil {
		p(done, total, name)
	}
}

// Create archives the contents of src into destZip. Entries whose
// slash-separated path relative to src equals one of exclusions are left out;
// an excluded directory is not descended into.
func Create(src, destZip string, exclusions []string, progress Progress) error {
	if err := create(src, destZip, exclusions, progress); err != nil {
		return errs.Wrap(errs.ArchiveCreateFailed, "create "+destZip, err)
	}
	return nil
}

func create(src, destZip string, exclusions []string, progress Progress) (err error) {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", src)
	}
	skip := toSet(exclusions)

	out, err := openDest(destZip)
	if err != nil {
		return err
	}
	defer closeDest(out, destZip, &err)
	destAbs, _ := filepath.Abs(destZip)

	zw := zip.NewWriter(out)
	buf := make([]byte, bufferSize)
	done := 0
	err = filepath.WalkDir(src, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == src {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if _, ok := skip[rel]; ok {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if abs, _ := filepath.Abs(p); abs == destAbs {
			return nil
		}
		done++
		progress.report(done, 0, d.Name())
		if d.IsDir() {
			_, err := zw.Create(rel + "/")
			return err
		}
		return addFile(zw, p, rel, buf)
	})
	if err != nil {
		return err
	}
	return zw.Close()
}

// CreateFile archives a single file under its base name.
func CreateFile(srcFile, destZip string) error {
	if err := createFile(srcFile, destZip); err != nil {
		return errs.Wrap(errs.ArchiveCreateFailed, "create "+destZip, err)
	}
	return nil
}

func createFile(srcFile, destZip string) (err error) {
	out, err := openDest(destZip)
	if err != nil {
		return err
	}
	defer closeDest(out, destZip, &err)
	zw := zip.NewWriter(out)
	if err := addFile(zw, srcFile, filepath.Base(srcFile), make([]byte, bufferSize)); err != nil {
		return err
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, p, name string, buf []byte) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.CopyBuffer(w, f, buf)
	return err
}

func openDest(destZip string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return nil, err
	}
	return os.Create(destZip)
}

// closeDest closes the archive and removes it when writing failed.
func closeDest(f *os.File, destZip string, err *error) {
	cerr := f.Close()
	if *err == nil {
		*err = cerr
	}
	if *err != nil {
		_ = os.Remove(destZip)
	}
}

// Extract unpacks srcZip into destDir in stored order. Entries with unsafe
// names are skipped. An entry whose stored name is in exclusions is only
// written when its destination does not exist yet.
func Extract(srcZip, destDir string, exclusions []string, progress Progress) error {
	if err := extract(srcZip, destDir, exclusions, progress); err != nil {
		return errs.Wrap(errs.ArchiveExtractFailed, "extract "+srcZip, err)
	}
	return nil
}

func extract(srcZip, destDir string, exclusions []string, progress Progress) error {
	r, err := openReader(srcZip)
	if err != nil {
		return err
	}
	defer r.Close()
	keep := toSet(exclusions)
	buf := make([]byte, bufferSize)

	for i, f := range r.File {
		name := f.Name
		clean := filepath.FromSlash(trimDirSuffix(name))
		if !filepath.IsLocal(clean) {
			continue
		}
		progress.report(i+1, len(r.File), name)
		target := filepath.Join(destDir, clean)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if _, ok := keep[name]; ok {
			if _, err := os.Stat(target); err == nil {
				continue
			}
		}
		if err := writeEntry(f, target, buf); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(f *zip.File, target string, buf []byte) (err error) {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.CopyBuffer(out, rc, buf); err != nil {
		return fmt.Errorf("%s: %w", f.Name, err)
	}
	return nil
}

func trimDirSuffix(name string) string {
	for len(name) > 1 && name[len(name)-1] == '/' {
		name = name[:len(name)-1]
	}
	return name
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// Entries lists the stored names of srcZip.
func Entries(srcZip string) ([]string, error) {
	r, err := openReader(srcZip)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	names := make([]string, len(r.File))
	for i, f := range r.File {
		names[i] = f.Name
	}
	return names, nil
}

// openReader accepts archives holding unsafe names; extract skips them.
func openReader(srcZip string) (*zip.ReadCloser, error) {
	r, err := zip.OpenReader(srcZip)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, err
	}
	return r, nil
}
