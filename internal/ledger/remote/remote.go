// Package remote backs a ledger with a per-owner collection in a shared
// store and keeps subscribers up to date as the collection changes.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrJamesThe3rd/playledger/internal/ledger"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

//go:generate mockgen -source=remote.go -destination=remote_mock.go -package=remote
type RemoteStore interface {
	// List returns every purchase of the owner, in the store's order.
	List(ctx context.Context, ownerID string) ([]purchase.Purchase, error)
	// Upsert writes one purchase keyed by its id.
	Upsert(ctx context.Context, ownerID string, p purchase.Purchase) error
	// Delete removes one purchase. Deleting a missing id is not an error.
	Delete(ctx context.Context, ownerID, id string) error
	// Watch signals on the returned channel after the owner's collection
	// changes. Signals may be coalesced. The channel is closed once ctx is
	// done.
	Watch(ctx context.Context, ownerID string) (<-chan struct{}, error)
}

// Store is a ledger.Store over one owner's remote collection. Writes go
// straight to the remote store; the in-memory view only changes when the
// store reports the change back through Subscribe.
type Store struct {
	remote  RemoteStore
	ownerID string
	logger  *slog.Logger
}

var _ ledger.Store = (*Store)(nil)

func New(remote RemoteStore, ownerID string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		remote:  remote,
		ownerID: ownerID,
		logger:  logger.With("owner", ownerID),
	}
}

func (s *Store) Snapshot(ctx context.Context) ([]purchase.Purchase, error) {
	ps, err := s.remote.List(ctx, s.ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing purchases: %w", err)
	}

	return ps, nil
}

// Subscribe starts watching the owner's collection. The subscription outlives
// ctx; it ends when it is closed.
func (s *Store) Subscribe(ctx context.Context) (*ledger.Subscription, error) {
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	changes, err := s.remote.Watch(watchCtx, s.ownerID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watching purchases: %w", err)
	}

	initial, err := s.remote.List(ctx, s.ownerID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("listing purchases: %w", err)
	}

	var wg sync.WaitGroup

	sub := ledger.NewSubscription(func() {
		cancel()
		wg.Wait()
	})
	sub.Deliver(initial)

	wg.Add(1)

	go func() {
		defer wg.Done()
		s.follow(watchCtx, changes, sub)
	}()

	return sub, nil
}

// follow re-reads the collection on every change signal and delivers the
// full snapshot.
func (s *Store) follow(ctx context.Context, changes <-chan struct{}, sub *ledger.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				if ctx.Err() == nil {
					s.logger.Warn("remote watch ended, ledger no longer live")
				}

				return
			}

			ps, err := s.remote.List(ctx, s.ownerID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}

				s.logger.Error("refreshing ledger", "error", err)

				continue
			}

			if !sub.Deliver(ps) {
				return
			}
		}
	}
}

func (s *Store) Add(ctx context.Context, p purchase.Purchase) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if err := s.remote.Upsert(ctx, s.ownerID, p); err != nil {
		return fmt.Errorf("upserting purchase %s: %w", p.ID, err)
	}

	return nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.remote.Delete(ctx, s.ownerID, id); err != nil {
		return fmt.Errorf("deleting purchase %s: %w", id, err)
	}

	return nil
}

// BulkReplace upserts ps one by one and stops at the first failure. Writes
// already made are not rolled back.
func (s *Store) BulkReplace(ctx context.Context, ps []purchase.Purchase) (ledger.BulkResult, error) {
	result := ledger.BulkResult{Attempted: len(ps)}

	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return result, fmt.Errorf("purchase %q: %w", p.ID, err)
		}
	}

	for _, p := range ps {
		if err := ctx.Err(); err != nil {
			return result, &ledger.PartialError{BulkResult: result, Err: err}
		}

		if err := s.remote.Upsert(ctx, s.ownerID, p); err != nil {
			s.logger.Error("bulk replace interrupted", "completed", result.Completed, "attempted", result.Attempted, "error", err)
			return result, &ledger.PartialError{BulkResult: result, Err: fmt.Errorf("upserting purchase %s: %w", p.ID, err)}
		}

		result.Completed++
	}

	s.logger.Info("bulk replace finished", "count", result.Completed)

	return result, nil
}

// Clear deletes every purchase currently in the collection, one by one.
func (s *Store) Clear(ctx context.Context) (ledger.BulkResult, error) {
	current, err := s.remote.List(ctx, s.ownerID)
	if err != nil {
		return ledger.BulkResult{}, fmt.Errorf("listing purchases: %w", err)
	}

	result := ledger.BulkResult{Attempted: len(current)}

	for _, p := range current {
		if err := ctx.Err(); err != nil {
			return result, &ledger.PartialError{BulkResult: result, Err: err}
		}

		if err := s.remote.Delete(ctx, s.ownerID, p.ID); err != nil {
			s.logger.Error("clear interrupted", "completed", result.Completed, "attempted", result.Attempted, "error", err)
			return result, &ledger.PartialError{BulkResult: result, Err: fmt.Errorf("deleting purchase %s: %w", p.ID, err)}
		}

		result.Completed++
	}

	s.logger.Info("ledger cleared", "count", result.Completed)

	return result, nil
}
