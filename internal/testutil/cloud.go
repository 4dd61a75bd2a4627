package testutil

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/atomicstack/save-cloud/internal/cloud"
)

type fakeNode struct {
	id   uint64
	dir  bool
	data []byte
}

// FakeCloud is an in-memory cloud.Client. Device codes are approved with
// Approve.
type FakeCloud struct {
	mu       sync.Mutex
	nodes    map[string]*fakeNode
	nextID   uint64
	lists    int
	starts   int
	approved bool
	token    cloud.Token

	// ListErr fails every ListDirectory call when set.
	ListErr error
}

func NewFakeCloud() *FakeCloud {
	f := &FakeCloud{nodes: map[string]*fakeNode{}}
	f.nodes["/"] = &fakeNode{id: f.id(), dir: true}
	return f
}

func (f *FakeCloud) id() uint64 {
	f.nextID++
	return f.nextID
}

func clean(p string) string {
	return path.Clean("/" + p)
}

// MkdirAll creates p and its parents.
func (f *FakeCloud) MkdirAll(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mkdirAllLocked(clean(p))
}

func (f *FakeCloud) mkdirAllLocked(p string) {
	if _, ok := f.nodes[p]; ok || p == "/" {
		return
	}
	f.mkdirAllLocked(path.Dir(p))
	f.nodes[p] = &fakeNode{id: f.id(), dir: true}
}

// PutFile stores data at p and returns its id.
func (f *FakeCloud) PutFile(p string, data []byte) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	p = clean(p)
	f.mkdirAllLocked(path.Dir(p))
	n := &fakeNode{id: f.id(), data: append([]byte(nil), data...)}
	f.nodes[p] = n
	return n.id
}

// File returns the content stored at p.
func (f *FakeCloud) File(p string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[clean(p)]
	if !ok || n.dir {
		return nil, false
	}
	return append([]byte(nil), n.data...), true
}

func (f *FakeCloud) Exists(p string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.nodes[clean(p)]
	return ok
}

// ListCalls counts ListDirectory calls.
func (f *FakeCloud) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

// DeviceCodeRequests counts StartDeviceAuth calls.
func (f *FakeCloud) DeviceCodeRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *FakeCloud) Approve() {
	f.mu.Lock()
	f.approved = true
	f.mu.Unlock()
}

func (f *FakeCloud) children(dir string) []string {
	var names []string
	for p := range f.nodes {
		if p != "/" && path.Dir(p) == dir {
			names = append(names, p)
		}
	}
	sort.Strings(names)
	return names
}

func (f *FakeCloud) ListDirectory(_ context.Context, p string) ([]cloud.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	p = clean(p)
	n, ok := f.nodes[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, fs.ErrNotExist)
	}
	if !n.dir {
		return nil, fmt.Errorf("%s: not a directory", p)
	}
	var out []cloud.Entry
	for _, child := range f.children(p) {
		c := f.nodes[child]
		out = append(out, cloud.Entry{ID: c.id, Name: path.Base(child), IsDir: c.dir, Size: int64(len(c.data))})
	}
	return out, nil
}

func (f *FakeCloud) CreateDirectory(_ context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p = clean(p)
	if _, ok := f.nodes[p]; ok {
		return fmt.Errorf("%s: already exists", p)
	}
	f.mkdirAllLocked(p)
	return nil
}

func (f *FakeCloud) Rename(_ context.Context, p, newName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p = clean(p)
	return f.moveLocked(p, path.Join(path.Dir(p), newName))
}

func (f *FakeCloud) Move(_ context.Context, from, toDir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	from = clean(from)
	return f.moveLocked(from, path.Join(clean(toDir), path.Base(from)))
}

func (f *FakeCloud) moveLocked(from, to string) error {
	if _, ok := f.nodes[from]; !ok {
		return fmt.Errorf("%s: not found", from)
	}
	if _, ok := f.nodes[to]; ok {
		return fmt.Errorf("%s: already exists", to)
	}
	moved := map[string]*fakeNode{}
	for p, n := range f.nodes {
		if p == from || len(p) > len(from) && p[:len(from)+1] == from+"/" {
			moved[to+p[len(from):]] = n
			delete(f.nodes, p)
		}
	}
	for p, n := range moved {
		f.nodes[p] = n
	}
	return nil
}

func (f *FakeCloud) Delete(_ context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p = clean(p)
	if _, ok := f.nodes[p]; !ok {
		return fmt.Errorf("%s: not found", p)
	}
	for key := range f.nodes {
		if key == p || len(key) > len(p) && key[:len(p)+1] == p+"/" {
			delete(f.nodes, key)
		}
	}
	return nil
}

func (f *FakeCloud) Upload(_ context.Context, destDir, name, localPath string, overwrite bool) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	target := path.Join(clean(destDir), name)
	if n, ok := f.nodes[target]; ok && !overwrite {
		return fmt.Errorf("%s: already exists", target)
	} else if ok && n.dir {
		return fmt.Errorf("%s: is a directory", target)
	}
	f.mkdirAllLocked(clean(destDir))
	f.nodes[target] = &fakeNode{id: f.id(), data: data}
	return nil
}

func (f *FakeCloud) Download(_ context.Context, remoteID uint64, destPath string) error {
	f.mu.Lock()
	var data []byte
	found := false
	for _, n := range f.nodes {
		if n.id == remoteID && !n.dir {
			data = append([]byte(nil), n.data...)
			found = true
			break
		}
	}
	f.mu.Unlock()
	if !found {
		return fmt.Errorf("file %d: not found", remoteID)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o644)
}

// IDOf returns the id stored at p.
func (f *FakeCloud) IDOf(p string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.nodes[clean(p)]; ok {
		return n.id
	}
	return 0
}

func (f *FakeCloud) StartDeviceAuth(context.Context) (cloud.DeviceAuth, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	code := fmt.Sprintf("CODE-%d", f.starts)
	return cloud.DeviceAuth{DeviceCode: code, UserCode: code, VerificationURL: "https://drive.invalid/device?code=" + code}, nil
}

func (f *FakeCloud) PollToken(context.Context, string) (cloud.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.approved {
		return cloud.Token{}, cloud.ErrAuthorizationPending
	}
	return cloud.Token{AccessToken: "fake"}, nil
}

func (f *FakeCloud) FetchProfile(context.Context) (cloud.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token.AccessToken == "" {
		return cloud.Profile{}, cloud.ErrUnauthorized
	}
	return cloud.Profile{ID: "1", Name: "fake"}, nil
}

func (f *FakeCloud) Authorize(token cloud.Token) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

// Session returns a cloud session over f that is already signed in.
func (f *FakeCloud) Session() *cloud.Session {
	f.Authorize(cloud.Token{AccessToken: "fake"})
	s := cloud.NewSession(f, &memoryAuth{auth: cloud.Auth{Token: cloud.Token{AccessToken: "fake"}}, ok: true})
	if err := s.Restore(context.Background()); err != nil {
		panic(err)
	}
	return s
}

type memoryAuth struct {
	mu   sync.Mutex
	auth cloud.Auth
	ok   bool
}

func (m *memoryAuth) LoadAuth() (cloud.Auth, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auth, m.ok, nil
}

func (m *memoryAuth) SaveAuth(a cloud.Auth) error {
	m.mu.Lock()
	m.auth, m.ok = a, true
	m.mu.Unlock()
	return nil
}

func (m *memoryAuth) ClearAuth() error {
	m.mu.Lock()
	m.auth, m.ok = cloud.Auth{}, false
	m.mu.Unlock()
	return nil
}
