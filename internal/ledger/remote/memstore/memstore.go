// Package memstore is an in-process remote.RemoteStore. It stands in for the
// database in tests and in single-process deployments.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/MrJamesThe3rd/playledger/internal/ledger/remote/notify"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

type Store struct {
	hub *notify.Hub

	mu     sync.Mutex
	owners map[string][]purchase.Purchase
}

func New() *Store {
	return &Store{
		hub:    notify.NewHub(nil),
		owners: make(map[string][]purchase.Purchase),
	}
}

func (s *Store) List(ctx context.Context, ownerID string) ([]purchase.Purchase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := slices.Clone(s.owners[ownerID])
	if out == nil {
		out = []purchase.Purchase{}
	}

	return out, nil
}

func (s *Store) Upsert(ctx context.Context, ownerID string, p purchase.Purchase) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.owners[ownerID] = purchase.Upsert(s.owners[ownerID], p)
	s.hub.Notify(ownerID)

	return nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ps := s.owners[ownerID]

	i := purchase.Index(ps, id)
	if i < 0 {
		return nil
	}

	s.owners[ownerID] = slices.Delete(slices.Clone(ps), i, i+1)
	s.hub.Notify(ownerID)

	return nil
}

func (s *Store) Watch(ctx context.Context, ownerID string) (<-chan struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.hub.Watch(ctx, ownerID), nil
}
