package session

import (
	"errors"
	"log/slog"

	"github.com/MrJamesThe3rd/playledger/internal/kv"
	"github.com/MrJamesThe3rd/playledger/internal/ledger"
	"github.com/MrJamesThe3rd/playledger/internal/ledger/local"
	"github.com/MrJamesThe3rd/playledger/internal/ledger/remote"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

var ErrBackendUnavailable = errors.New("ledger backend not configured")

// Factory picks the ledger backend for a profile.
type Factory interface {
	Open(profile purchase.UserProfile) (ledger.Store, error)
}

// DefaultFactory keeps ephemeral profiles in KV and everyone else in Remote.
type DefaultFactory struct {
	KV     kv.Store
	Remote remote.RemoteStore
	Logger *slog.Logger
}

func (f DefaultFactory) Open(profile purchase.UserProfile) (ledger.Store, error) {
	if profile.Ephemeral {
		if f.KV == nil {
			return nil, errors.Join(ErrBackendUnavailable, errors.New("no local store"))
		}

		return local.New(f.KV, local.KeyFor(profile.ID)), nil
	}

	if f.Remote == nil {
		return nil, errors.Join(ErrBackendUnavailable, errors.New("no remote store"))
	}

	return remote.New(f.Remote, profile.ID, f.Logger), nil
}
