// Package local keeps a ledger as one JSON snapshot in a device-local
// key-value store. It backs demo sessions.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/MrJamesThe3rd/playledger/internal/kv"
	"github.com/MrJamesThe3rd/playledger/internal/ledger"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

const keyPrefix = "purchases:"

// KeyFor returns the key a profile's snapshot is stored under.
func KeyFor(profileID string) string {
	return keyPrefix + profileID
}

// Store is a ledger.Store over a single snapshot key. Every mutation
// persists the whole ledger and then notifies subscribers.
type Store struct {
	kv  kv.Store
	key string

	mu   sync.Mutex
	subs map[*ledger.Subscription]struct{}
}

var _ ledger.Store = (*Store)(nil)

func New(store kv.Store, key string) *Store {
	return &Store{
		kv:   store,
		key:  key,
		subs: make(map[*ledger.Subscription]struct{}),
	}
}

func (s *Store) Snapshot(ctx context.Context) ([]purchase.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load(ctx)
}

func (s *Store) Subscribe(ctx context.Context) (*ledger.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	var sub *ledger.Subscription
	sub = ledger.NewSubscription(func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
	})

	s.subs[sub] = struct{}{}
	sub.Deliver(current)

	return sub, nil
}

func (s *Store) Add(ctx context.Context, p purchase.Purchase) error {
	if err := p.Validate(); err != nil {
		return err
	}

	return s.update(ctx, func(ps []purchase.Purchase) []purchase.Purchase {
		return purchase.Upsert(ps, p)
	})
}

func (s *Store) Remove(ctx context.Context, id string) error {
	return s.update(ctx, func(ps []purchase.Purchase) []purchase.Purchase {
		out := make([]purchase.Purchase, 0, len(ps))
		for _, p := range ps {
			if p.ID != id {
				out = append(out, p)
			}
		}

		return out
	})
}

// BulkReplace overwrites the whole ledger with ps. Duplicate ids collapse,
// the last one wins.
func (s *Store) BulkReplace(ctx context.Context, ps []purchase.Purchase) (ledger.BulkResult, error) {
	result := ledger.BulkResult{Attempted: len(ps)}

	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return result, fmt.Errorf("purchase %q: %w", p.ID, err)
		}
	}

	err := s.update(ctx, func([]purchase.Purchase) []purchase.Purchase {
		return purchase.Dedupe(ps)
	})
	if err != nil {
		return result, err
	}

	result.Completed = len(ps)

	return result, nil
}

// Clear deletes the snapshot key.
func (s *Store) Clear(ctx context.Context) (ledger.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return ledger.BulkResult{}, err
	}

	result := ledger.BulkResult{Attempted: len(current)}

	if err := s.kv.Delete(ctx, s.key); err != nil {
		return result, fmt.Errorf("deleting snapshot: %w", err)
	}

	result.Completed = result.Attempted
	s.broadcast(nil)

	return result, nil
}

func (s *Store) update(ctx context.Context, fn func([]purchase.Purchase) []purchase.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return err
	}

	next := fn(current)

	if err := s.save(ctx, next); err != nil {
		return err
	}

	s.broadcast(next)

	return nil
}

// load reads the snapshot. A missing key and an empty array both mean an
// empty ledger.
func (s *Store) load(ctx context.Context) ([]purchase.Purchase, error) {
	data, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	if !ok || len(data) == 0 {
		return []purchase.Purchase{}, nil
	}

	var ps []purchase.Purchase
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", s.key, err)
	}

	if ps == nil {
		ps = []purchase.Purchase{}
	}

	return ps, nil
}

func (s *Store) save(ctx context.Context, ps []purchase.Purchase) error {
	data, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	return nil
}

func (s *Store) broadcast(ps []purchase.Purchase) {
	for sub := range s.subs {
		sub.Deliver(ps)
	}
}
