package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/atomicstack/save-cloud/internal/cloud"
)

const (
	approvalsDir   = "approved"
	deviceCodeTTL  = 10 * time.Minute
	pollInterval   = 6 * time.Second
	userCodeLength = 8
)

type deviceRecord struct {
	UserCode  string    `json:"user_code"`
	ExpiresAt time.Time `json:"expires_at"`
	Approved  bool      `json:"approved"`
}

// Approve grants the device code shown as userCode. It only touches the
// file system, so it works while another process holds the drive open.
func Approve(dir, userCode string) error {
	code := normalizeCode(userCode)
	if code == "" {
		return fmt.Errorf("empty user code")
	}
	target := filepath.Join(dir, approvalsDir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(target, code), nil, 0o644)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (d *Drive) approved(userCode string) bool {
	_, err := os.Stat(filepath.Join(d.root, approvalsDir, userCode))
	return err == nil
}

func (d *Drive) StartDeviceAuth(ctx context.Context) (cloud.DeviceAuth, error) {
	deviceCode := uuid.NewString()
	userCode := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:userCodeLength])
	rec := deviceRecord{
		UserCode:  userCode,
		ExpiresAt: d.now().Add(deviceCodeTTL),
		Approved:  d.autoApprove,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return cloud.DeviceAuth{}, err
	}
	err = d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(devicesBucket).Put([]byte(deviceCode), data)
	})
	if err != nil {
		return cloud.DeviceAuth{}, fmt.Errorf("store device code: %w", err)
	}
	return cloud.DeviceAuth{
		DeviceCode:      deviceCode,
		UserCode:        userCode,
		VerificationURL: d.verificationURL + "?code=" + userCode,
		Interval:        pollInterval,
		ExpiresAt:       rec.ExpiresAt,
	}, nil
}

func (d *Drive) PollToken(ctx context.Context, deviceCode string) (cloud.Token, error) {
	var (
		token    cloud.Token
		userCode string
	)
	err := d.db.Update(func(tx *bolt.Tx) error {
		devices := tx.Bucket(devicesBucket)
		data := devices.Get([]byte(deviceCode))
		if data == nil {
			return fmt.Errorf("unknown device code")
		}
		var rec deviceRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if d.now().After(rec.ExpiresAt) {
			return fmt.Errorf("device code %s expired", rec.UserCode)
		}
		userCode = rec.UserCode
		if !rec.Approved && !d.approved(rec.UserCode) {
			return cloud.ErrAuthorizationPending
		}
		if err := devices.Delete([]byte(deviceCode)); err != nil {
			return err
		}
		token = cloud.Token{AccessToken: uuid.NewString(), RefreshToken: uuid.NewString()}
		return tx.Bucket(tokensBucket).Put([]byte(token.AccessToken), []byte(d.profile))
	})
	if err != nil {
		return cloud.Token{}, err
	}
	_ = os.Remove(filepath.Join(d.root, approvalsDir, userCode))
	return token, nil
}

func (d *Drive) FetchProfile(ctx context.Context) (cloud.Profile, error) {
	if err := d.authorized(); err != nil {
		return cloud.Profile{}, err
	}
	return cloud.Profile{ID: d.profile, Name: d.profile}, nil
}

func (d *Drive) Authorize(token cloud.Token) {
	d.mu.Lock()
	d.token = token.AccessToken
	d.mu.Unlock()
}

// authorized checks the token handed to Authorize against the issued ones.
func (d *Drive) authorized() error {
	d.mu.Lock()
	token := d.token
	d.mu.Unlock()
	if token == "" {
		return cloud.ErrUnauthorized
	}
	var known bool
	_ = d.db.View(func(tx *bolt.Tx) error {
		known = tx.Bucket(tokensBucket).Get([]byte(token)) != nil
		return nil
	})
	if !known {
		return cloud.ErrUnauthorized
	}
	return nil
}
