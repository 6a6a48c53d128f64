// Package store is the Postgres remote.RemoteStore. Change signals are
// delivered with LISTEN/NOTIFY from a trigger on the purchases table.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrJamesThe3rd/playledger/internal/ledger/remote/notify"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

// Channel is the notification channel the purchases trigger publishes on.
// The payload is the owner id.
const Channel = "purchases_changed"

const (
	acquireTimeout = 10 * time.Second
	retryDelay     = 2 * time.Second
)

// Store reads and writes through the pool. All watchers share one pooled
// connection that LISTENs on Channel while anybody is watching.
type Store struct {
	pool *pgxpool.Pool
	hub  *notify.Hub

	listenMu sync.Mutex
	listener *listener
}

type listener struct {
	cancel context.CancelFunc
	// ready is closed once LISTEN is first in effect.
	ready chan struct{}
}

func New(pool *pgxpool.Pool) *Store {
	s := &Store{pool: pool}
	s.hub = notify.NewHub(s.idle)

	return s
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, name, icon, price, currency, purchased_at, category, store
func scanPurchase(s scanner) (purchase.Purchase, error) {
	var (
		p        purchase.Purchase
		category string
	)

	if err := s.Scan(&p.ID, &p.Name, &p.Icon, &p.Price, &p.Currency, &p.Date, &category, &p.Store); err != nil {
		return purchase.Purchase{}, err
	}

	p.Category = purchase.Category(category)
	p.Date = p.Date.UTC()

	return p, nil
}

func (s *Store) List(ctx context.Context, ownerID string) ([]purchase.Purchase, error) {
	query := `
		SELECT id, name, icon, price, currency, purchased_at, category, store
		FROM purchases
		WHERE owner_id = $1
		ORDER BY seq`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing purchases: %w", err)
	}
	defer rows.Close()

	ps := []purchase.Purchase{}

	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning purchase: %w", err)
		}

		ps = append(ps, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating purchases: %w", err)
	}

	return ps, nil
}

func (s *Store) Upsert(ctx context.Context, ownerID string, p purchase.Purchase) error {
	query := `
		INSERT INTO purchases (owner_id, id, name, icon, price, currency, purchased_at, category, store, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (owner_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			icon = EXCLUDED.icon,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			purchased_at = EXCLUDED.purchased_at,
			category = EXCLUDED.category,
			store = EXCLUDED.store,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		ownerID,
		p.ID,
		p.Name,
		p.Icon,
		p.Price,
		p.Currency,
		p.Date,
		string(p.Category),
		p.Store,
	)
	if err != nil {
		return fmt.Errorf("upserting purchase: %w", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM purchases WHERE owner_id = $1 AND id = $2`, ownerID, id); err != nil {
		return fmt.Errorf("deleting purchase: %w", err)
	}

	return nil
}

// Watch signals after the owner's purchases change, until ctx is done. The
// first watcher starts the shared listener and the last one stops it. Watch
// returns once the listener is in effect, or fails after acquireTimeout. While
// the listener reconnects every watcher is woken once, since notifications
// sent in between are lost.
func (s *Store) Watch(ctx context.Context, ownerID string) (<-chan struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.listenMu.Lock()
	ch := s.hub.Watch(ctx, ownerID)

	if s.listener == nil {
		listenCtx, cancel := context.WithCancel(context.Background())
		l := &listener{cancel: cancel, ready: make(chan struct{})}
		s.listener = l

		go s.listen(listenCtx, sync.OnceFunc(func() { close(l.ready) }))
	}

	ready := s.listener.ready
	s.listenMu.Unlock()

	timer := time.NewTimer(acquireTimeout)
	defer timer.Stop()

	select {
	case <-ready:
		return ch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("listening on %s: not ready after %s", Channel, acquireTimeout)
	}
}

// Listening reports whether the shared listener is running.
func (s *Store) Listening() bool {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()

	return s.listener != nil
}

func (s *Store) idle() {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()

	if s.hub.Len() == 0 && s.listener != nil {
		s.listener.cancel()
		s.listener = nil
	}
}

func (s *Store) listen(ctx context.Context, markReady func()) {
	resumed := false

	for {
		err := s.listenOnce(ctx, resumed, markReady)
		if ctx.Err() != nil {
			return
		}

		slog.Warn("purchase listener interrupted, retrying", "error", err, "retry_in", retryDelay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}

		resumed = true
	}
}

func (s *Store) listenOnce(ctx context.Context, resumed bool, markReady func()) error {
	acquireCtx, cancel := context.WithTimeout(ctx, acquireTimeout)
	conn, err := s.pool.Acquire(acquireCtx)
	cancel()

	if err != nil {
		return fmt.Errorf("acquiring listen connection: %w", err)
	}
	defer conn.Release()
	defer unlisten(conn)

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return fmt.Errorf("listening on %s: %w", Channel, err)
	}

	markReady()

	if resumed {
		s.hub.Broadcast()
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("waiting for notification: %w", err)
		}

		s.hub.Notify(n.Payload)
	}
}

func unlisten(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := conn.Exec(ctx, "UNLISTEN *"); err != nil {
		// A connection that cannot UNLISTEN must not go back to the pool still subscribed.
		_ = conn.Conn().Close(ctx)
	}
}
