package cloud

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/atomicstack/save-cloud/internal/errs"
	"github.com/atomicstack/save-cloud/internal/logging"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/overlay"
)

// DefaultPollInterval is the wait between token polls.
const DefaultPollInterval = 6 * time.Second

// State is the login state of a Session.
type State int

const (
	Unauthenticated State = iota
	AwaitingDeviceCodeDisplay
	PollingForToken
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AwaitingDeviceCodeDisplay:
		return "awaiting-device-code"
	case PollingForToken:
		return "polling"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Option customises a Session.
type Option func(*Session)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// Session owns the device-code login shared by the cloud panel and the cloud
// save lists. Consumers Attach while they are visible; the token poller keeps
// running only while at least one consumer is attached.
type Session struct {
	client   Client
	store    Store
	interval time.Duration

	mu          sync.Mutex
	state       State
	auth        DeviceAuth
	qr          string
	profile     string
	consumers   int
	stalled     bool
	subscribers []func()
}

// NewSession creates an unauthenticated session. store may be nil.
func NewSession(client Client, store Store, opts ...Option) *Session {
	s := &Session{client: client, store: store, interval: DefaultPollInterval}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the drive the session authorizes.
func (s *Session) Client() Client {
	return s.client
}

// Restore loads a persisted token and re-fetches the profile. A missing
// token is not an error.
func (s *Session) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	auth, ok, err := s.store.LoadAuth()
	if err != nil {
		return err
	}
	if !ok || !auth.Token.Valid() {
		return nil
	}
	s.client.Authorize(auth.Token)
	profile, err := s.client.FetchProfile(ctx)
	events.Cloud.Profile(profile.Name, err)
	if err != nil {
		s.client.Authorize(Token{})
		return errs.Wrap(errs.AuthFailed, "restore login", err)
	}
	s.mu.Lock()
	s.profile = profile.Name
	s.setStateLocked(Authenticated)
	s.mu.Unlock()
	return nil
}

// Attach registers a consumer. The returned func detaches it and is safe to
// call more than once.
func (s *Session) Attach() func() {
	s.mu.Lock()
	s.consumers++
	n := s.consumers
	s.mu.Unlock()
	events.Cloud.Consumers(n)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.consumers--
			n := s.consumers
			s.mu.Unlock()
			events.Cloud.Consumers(n)
		})
	}
}

// Ensure starts a login when nobody is signed in, a consumer is attached, no
// login is already running and the last attempt did not stall.
func (s *Session) Ensure() {
	s.mu.Lock()
	start := s.state == Unauthenticated && !s.stalled && s.consumers > 0
	if start {
		s.setStateLocked(AwaitingDeviceCodeDisplay)
	}
	s.mu.Unlock()
	if start {
		go s.login(context.Background())
	}
}

// Retry clears a stalled login so the next Ensure requests a new code.
func (s *Session) Retry() {
	s.mu.Lock()
	s.stalled = false
	s.mu.Unlock()
}

// Subscribe registers fn to run after every successful login.
func (s *Session) Subscribe(fn func()) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// SignOut drops the token and the persisted login.
func (s *Session) SignOut() error {
	s.client.Authorize(Token{})
	s.mu.Lock()
	s.profile = ""
	s.setStateLocked(Unauthenticated)
	s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	return s.store.ClearAuth()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Authenticated() bool {
	return s.State() == Authenticated
}

// Stalled reports whether a failed login waits for Retry.
func (s *Session) Stalled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stalled
}

// QR returns the rendered verification QR code while polling.
func (s *Session) QR() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qr
}

// Pending returns the device code being polled, if any.
func (s *Session) Pending() (DeviceAuth, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth, s.state == PollingForToken
}

func (s *Session) Profile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

func (s *Session) Consumers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumers
}

func (s *Session) login(ctx context.Context) {
	auth, err := s.client.StartDeviceAuth(ctx)
	if err != nil {
		logging.Error(errs.Wrap(errs.AuthFailed, "request device code", err))
		overlay.Notify("failed to get authorization")
		s.fail()
		return
	}
	qr, err := RenderQR(auth.VerificationURL)
	if err != nil {
		logging.Error(err)
	}
	events.Cloud.DeviceCode(auth.UserCode, auth.VerificationURL)

	s.mu.Lock()
	s.auth = auth
	s.qr = qr
	s.setStateLocked(PollingForToken)
	s.mu.Unlock()

	s.poll(ctx, auth)
}

func (s *Session) poll(ctx context.Context, auth DeviceAuth) {
	for attempt := 1; ; attempt++ {
		token, err := s.client.PollToken(ctx, auth.DeviceCode)
		events.Cloud.Poll(attempt, err)
		if err == nil {
			s.grant(ctx, token)
			return
		}
		if !errors.Is(err, ErrAuthorizationPending) {
			logging.Error(errs.Wrap(errs.AuthFailed, "poll token", err))
		}

		time.Sleep(s.interval)

		s.mu.Lock()
		if s.consumers == 0 {
			s.auth = DeviceAuth{}
			s.qr = ""
			s.setStateLocked(Unauthenticated)
			s.mu.Unlock()
			events.Cloud.PollerStopped("no consumers")
			return
		}
		s.mu.Unlock()
	}
}

func (s *Session) grant(ctx context.Context, token Token) {
	s.client.Authorize(token)
	profile, err := s.client.FetchProfile(ctx)
	events.Cloud.Profile(profile.Name, err)
	if err != nil {
		s.client.Authorize(Token{})
		logging.Error(errs.Wrap(errs.AuthFailed, "fetch profile", err))
		overlay.Notify("login failed: could not fetch the user profile")
		s.fail()
		return
	}
	if s.store != nil {
		if err := s.store.SaveAuth(Auth{Token: token, Profile: profile.Name}); err != nil {
			logging.Error(err)
		}
	}

	s.mu.Lock()
	s.profile = profile.Name
	s.auth = DeviceAuth{}
	s.qr = ""
	s.setStateLocked(Authenticated)
	subs := make([]func(), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	overlay.Notify("login succeeded")
	for _, fn := range subs {
		fn()
	}
}

func (s *Session) fail() {
	s.mu.Lock()
	s.auth = DeviceAuth{}
	s.qr = ""
	s.stalled = true
	s.setStateLocked(Unauthenticated)
	s.mu.Unlock()
}

func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	events.Cloud.State(s.state.String(), next.String())
	s.state = next
}
