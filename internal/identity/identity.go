// Package identity supplies the current account id and stamps it into save
// metadata.
package identity

import (
	"fmt"

	"github.com/atomicstack/save-cloud/internal/errs"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/sfo"
)

// Provider reports the account that owns this device. Zero means unknown.
type Provider interface {
	CurrentAccountID() uint64
}

// Patcher writes an account id into the metadata file at path.
type Patcher interface {
	SetAccountID(path string, id uint64) error
}

// StaticProvider returns a fixed id, usually from configuration.
type StaticProvider uint64

func (p StaticProvider) CurrentAccountID() uint64 { return uint64(p) }

// SFOPatcher rewrites ACCOUNT_ID inside a PARAM.SFO file.
type SFOPatcher struct{}

func (SFOPatcher) SetAccountID(path string, id uint64) error {
	_, err := sfo.SetAccountID(path, id)
	return err
}

// Identity pairs a Provider with a Patcher.
type Identity struct {
	provider Provider
	patcher  Patcher
}

// New returns an Identity. A nil patcher selects SFOPatcher.
func New(provider Provider, patcher Patcher) *Identity {
	if patcher == nil {
		patcher = SFOPatcher{}
	}
	return &Identity{provider: provider, patcher: patcher}
}

// AccountID returns the provider's id, or 0 when there is no provider.
func (i *Identity) AccountID() uint64 {
	if i == nil || i.provider == nil {
		return 0
	}
	return i.provider.CurrentAccountID()
}

// PatchCurrent stamps the current account id into path.
func (i *Identity) PatchCurrent(path string) error {
	id := i.AccountID()
	var err error
	if id == 0 {
		err = errs.New(errs.IdentityPatchFailed, path, fmt.Errorf("account id unavailable"))
	} else if perr := i.patcher.SetAccountID(path, id); perr != nil {
		err = errs.New(errs.IdentityPatchFailed, path, perr)
	}
	events.Backup.Patch(path, id, err)
	return err
}
