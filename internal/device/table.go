// Package device maps console-style device prefixes ("ux0:", "grw0:") onto
// host directories so panel paths keep their device form.
package device

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Defaults lists the devices probed for the local root, in display order.
var Defaults = []string{
	"ux0:", "uma0:", "grw0:", "os0:", "pd0:", "sa0:", "tm0:", "ud0:", "ur0:", "vd0:", "vs0:",
}

// Mount binds one device prefix to a host directory.
type Mount struct {
	Device string `yaml:"device"`
	Root   string `yaml:"root"`
}

// Table resolves device paths to host paths.
type Table struct {
	mounts []Mount
	index  map[string]string
}

// NewTable builds a Table. Device names are normalised to end in ':'.
func NewTable(mounts []Mount) *Table {
	t := &Table{index: make(map[string]string, len(mounts))}
	for _, m := range mounts {
		name := normalize(m.Device)
		if name == "" || strings.TrimSpace(m.Root) == "" {
			continue
		}
		if _, dup := t.index[name]; dup {
			continue
		}
		t.index[name] = m.Root
		t.mounts = append(t.mounts, Mount{Device: name, Root: m.Root})
	}
	return t
}

// UnderRoot mounts every default device as a subdirectory of root named
// after the device without its colon.
func UnderRoot(root string) *Table {
	mounts := make([]Mount, 0, len(Defaults))
	for _, dev := range Defaults {
		mounts = append(mounts, Mount{Device: dev, Root: filepath.Join(root, strings.TrimSuffix(dev, ":"))})
	}
	return NewTable(mounts)
}

// Mounts returns the configured mounts in order.
func (t *Table) Mounts() []Mount {
	dup := make([]Mount, len(t.mounts))
	copy(dup, t.mounts)
	return dup
}

// Available returns the devices whose host directory exists.
func (t *Table) Available() []string {
	out := make([]string, 0, len(t.mounts))
	for _, m := range t.mounts {
		if info, err := os.Stat(m.Root); err == nil && info.IsDir() {
			out = append(out, m.Device)
		}
	}
	return out
}

// Resolve turns "ux0:user/00" or "ux0:/user/00" into a host path.
func (t *Table) Resolve(p string) (string, error) {
	idx := strings.Index(p, ":")
	if idx <= 0 {
		return "", fmt.Errorf("path %q has no device prefix", p)
	}
	dev := p[:idx+1]
	root, ok := t.index[dev]
	if !ok {
		return "", fmt.Errorf("device %s is not mounted", dev)
	}
	rest := strings.TrimLeft(p[idx+1:], "/")
	if rest == "" {
		return root, nil
	}
	clean := filepath.Clean(filepath.FromSlash(rest))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes device %s", p, dev)
	}
	return filepath.Join(root, clean), nil
}

// IsLocal reports whether p addresses the local backend. Cloud paths start
// with '/'.
func IsLocal(p string) bool {
	return !strings.HasPrefix(p, "/")
}

func normalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if !strings.HasSuffix(name, ":") {
		name += ":"
	}
	return name
}
