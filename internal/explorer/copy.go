package explorer

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const copyBufferSize = 512 * 1024

// copyTree copies the file or directory src to dst. dst must not exist.
func copyTree(src, dst string, onFile func(name string)) error {
	buf := make([]byte, copyBufferSize)
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if onFile != nil {
			onFile(filepath.ToSlash(rel))
		}
		return copyFile(p, target, buf)
	})
}

func copyFile(src, dst string, buf []byte) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.CopyBuffer(out, in, buf)
	return err
}
