package cloud

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/atomicstack/save-cloud/internal/overlay"
)

type stubClient struct {
	mu         sync.Mutex
	starts     int
	polls      int
	approved   bool
	profileErr error
	token      Token
}

func (c *stubClient) ListDirectory(context.Context, string) ([]Entry, error) { return nil, nil }
func (c *stubClient) CreateDirectory(context.Context, string) error         { return nil }
func (c *stubClient) Rename(context.Context, string, string) error          { return nil }
func (c *stubClient) Delete(context.Context, string) error                  { return nil }
func (c *stubClient) Move(context.Context, string, string) error            { return nil }
func (c *stubClient) Upload(context.Context, string, string, string, bool) error {
	return nil
}
func (c *stubClient) Download(context.Context, uint64, string) error { return nil }

func (c *stubClient) StartDeviceAuth(context.Context) (DeviceAuth, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	return DeviceAuth{DeviceCode: "dev", UserCode: "ABCD-EFGH", VerificationURL: "https://example.invalid/device?code=ABCD-EFGH"}, nil
}

func (c *stubClient) PollToken(context.Context, string) (Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls++
	if !c.approved {
		return Token{}, ErrAuthorizationPending
	}
	return Token{AccessToken: "secret"}, nil
}

func (c *stubClient) FetchProfile(context.Context) (Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profileErr != nil {
		return Profile{}, c.profileErr
	}
	return Profile{ID: "1", Name: "tester"}, nil
}

func (c *stubClient) Authorize(token Token) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *stubClient) approve() {
	c.mu.Lock()
	c.approved = true
	c.mu.Unlock()
}

func (c *stubClient) startCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

type memoryStore struct {
	mu    sync.Mutex
	auth  Auth
	saved bool
}

func (m *memoryStore) LoadAuth() (Auth, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auth, m.saved, nil
}

func (m *memoryStore) SaveAuth(a Auth) error {
	m.mu.Lock()
	m.auth = a
	m.saved = true
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) ClearAuth() error {
	m.mu.Lock()
	m.auth = Auth{}
	m.saved = false
	m.mu.Unlock()
	return nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func quietToast(t *testing.T) *overlay.Toast {
	t.Helper()
	toast := overlay.NewToast()
	t.Cleanup(overlay.UseToast(toast))
	return toast
}

func TestTwoConsumersShareOneDeviceCode(t *testing.T) {
	toast := quietToast(t)
	client := &stubClient{}
	store := &memoryStore{}
	s := NewSession(client, store, WithPollInterval(time.Millisecond))

	detachPanel := s.Attach()
	defer detachPanel()
	detachList := s.Attach()
	defer detachList()

	s.Ensure()
	s.Ensure()
	waitFor(t, "polling", func() bool { return s.State() == PollingForToken })
	s.Ensure()

	if got := client.startCount(); got != 1 {
		t.Fatalf("expected 1 device-code request, got %d", got)
	}
	if s.QR() == "" {
		t.Fatalf("expected a rendered QR code while polling")
	}

	notified := make(chan struct{}, 1)
	s.Subscribe(func() { notified <- struct{}{} })
	client.approve()
	waitFor(t, "authenticated", s.Authenticated)

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatalf("expected subscriber notification")
	}
	if s.QR() != "" {
		t.Fatalf("expected QR cleared after login")
	}
	if s.Profile() != "tester" {
		t.Fatalf("expected profile tester, got %q", s.Profile())
	}
	auth, ok, _ := store.LoadAuth()
	if !ok || auth.Token.AccessToken != "secret" || auth.Profile != "tester" {
		t.Fatalf("expected persisted login, got %+v %v", auth, ok)
	}
	if toast.Last() != "login succeeded" {
		t.Fatalf("expected success toast, got %q", toast.Last())
	}
}

func TestPollerStopsWithoutConsumers(t *testing.T) {
	quietToast(t)
	client := &stubClient{}
	s := NewSession(client, nil, WithPollInterval(time.Millisecond))

	detach := s.Attach()
	s.Ensure()
	waitFor(t, "polling", func() bool { return s.State() == PollingForToken })
	detach()
	detach()
	waitFor(t, "unauthenticated", func() bool { return s.State() == Unauthenticated })

	if s.Consumers() != 0 {
		t.Fatalf("expected no consumers, got %d", s.Consumers())
	}
	if _, polling := s.Pending(); polling {
		t.Fatalf("expected no pending device code")
	}
}

func TestConcurrentEnsureRequestsOneDeviceCode(t *testing.T) {
	quietToast(t)
	client := &stubClient{}
	s := NewSession(client, nil, WithPollInterval(time.Hour))
	detach := s.Attach()
	defer detach()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Ensure()
		}()
	}
	wg.Wait()
	waitFor(t, "device code", func() bool {
		_, ok := s.Pending()
		return ok
	})
	if got := client.startCount(); got != 1 {
		t.Fatalf("expected one device code request, got %d", got)
	}
}

func TestEnsureWithoutConsumersDoesNothing(t *testing.T) {
	client := &stubClient{}
	s := NewSession(client, nil)
	s.Ensure()
	if s.State() != Unauthenticated || client.startCount() != 0 {
		t.Fatalf("expected idle session, got %s with %d requests", s.State(), client.startCount())
	}
}

func TestProfileFailureStallsUntilRetry(t *testing.T) {
	toast := quietToast(t)
	client := &stubClient{approved: true, profileErr: errors.New("boom")}
	s := NewSession(client, nil, WithPollInterval(time.Millisecond))
	detach := s.Attach()
	defer detach()

	s.Ensure()
	waitFor(t, "stall", s.Stalled)
	if s.State() != Unauthenticated {
		t.Fatalf("expected unauthenticated, got %s", s.State())
	}
	if toast.Last() == "" {
		t.Fatalf("expected failure toast")
	}

	s.Ensure()
	if client.startCount() != 1 {
		t.Fatalf("expected stalled session to skip requests, got %d", client.startCount())
	}

	client.mu.Lock()
	client.profileErr = nil
	client.mu.Unlock()
	s.Retry()
	s.Ensure()
	waitFor(t, "authenticated", s.Authenticated)
	if client.startCount() != 2 {
		t.Fatalf("expected a second request after retry, got %d", client.startCount())
	}
}

func TestRestoreUsesPersistedToken(t *testing.T) {
	client := &stubClient{}
	store := &memoryStore{}
	_ = store.SaveAuth(Auth{Token: Token{AccessToken: "kept"}, Profile: "old"})
	s := NewSession(client, store)

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Authenticated() {
		t.Fatalf("expected restored login")
	}
	if client.token.AccessToken != "kept" {
		t.Fatalf("expected client authorized with stored token, got %q", client.token.AccessToken)
	}

	if err := s.SignOut(); err != nil {
		t.Fatalf("unexpected sign-out error: %v", err)
	}
	if _, ok, _ := store.LoadAuth(); ok {
		t.Fatalf("expected persisted login cleared")
	}
}

func TestRenderQRProducesBlocks(t *testing.T) {
	out, err := RenderQR("https://example.invalid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatalf("expected QR output")
	}
}
