// Package cloud defines the call contract of the remote drive and the login
// session shared by every cloud consumer.
package cloud

import (
	"context"
	"errors"
	"time"
)

// ErrAuthorizationPending is returned by PollToken until the user approves
// the device code.
var ErrAuthorizationPending = errors.New("authorization pending")

// ErrUnauthorized is returned by drive calls made without a token.
var ErrUnauthorized = errors.New("not authorized")

// Entry is one remote directory entry. Listings keep server order.
type Entry struct {
	ID       uint64
	Name     string
	IsDir    bool
	Size     int64
	Modified time.Time
}

// DeviceAuth is the answer to a device-code request.
type DeviceAuth struct {
	DeviceCode      string
	UserCode        string
	VerificationURL string
	Interval        time.Duration
	ExpiresAt       time.Time
}

// Token grants access to the drive.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the token carries an access token that has not
// expired. A zero expiry never expires.
func (t Token) Valid() bool {
	if t.AccessToken == "" {
		return false
	}
	return t.ExpiresAt.IsZero() || time.Now().Before(t.ExpiresAt)
}

// Profile identifies the signed-in account.
type Profile struct {
	ID   string
	Name string
}

// Client is the remote drive. Paths are absolute and slash-separated.
// Upload and Download report one logical result for the whole transfer.
type Client interface {
	ListDirectory(ctx context.Context, path string) ([]Entry, error)
	CreateDirectory(ctx context.Context, path string) error
	Rename(ctx context.Context, path, newName string) error
	Delete(ctx context.Context, path string) error
	Move(ctx context.Context, from, toDir string) error
	Upload(ctx context.Context, destDir, name, localPath string, overwrite bool) error
	Download(ctx context.Context, remoteID uint64, destPath string) error

	StartDeviceAuth(ctx context.Context) (DeviceAuth, error)
	PollToken(ctx context.Context, deviceCode string) (Token, error)
	FetchProfile(ctx context.Context) (Profile, error)
	Authorize(token Token)
}

// Auth is the persisted login.
type Auth struct {
	Token   Token  `json:"token"`
	Profile string `json:"profile"`
}

// Store persists the login across restarts.
type Store interface {
	LoadAuth() (Auth, bool, error)
	SaveAuth(Auth) error
	ClearAuth() error
}
