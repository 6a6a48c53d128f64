// Package session ties a signed-in profile to its ledger backend and keeps
// the latest ledger snapshot in memory.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/MrJamesThe3rd/playledger/internal/export"
	"github.com/MrJamesThe3rd/playledger/internal/importer"
	"github.com/MrJamesThe3rd/playledger/internal/ledger"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

var (
	// ErrNoIdentity is returned by every ledger operation while nobody is
	// signed in.
	ErrNoIdentity = errors.New("no identity: sign in first")
	ErrNoRecords  = errors.New("file contains no purchases")
)

// State is the identity gate's state.
type State int

const (
	NoIdentity State = iota
	EphemeralActive
	SyncedActive
)

func (s State) String() string {
	switch s {
	case NoIdentity:
		return "no-identity"
	case EphemeralActive:
		return "ephemeral"
	case SyncedActive:
		return "synced"
	}

	return "unknown"
}

type Options struct {
	// SeedDemo fills an empty ephemeral ledger with the demo purchases on
	// sign-in.
	SeedDemo bool
	// OnChange is called from the session's delivery goroutine with every
	// new snapshot. It must not call SignIn or SignOut.
	OnChange func([]purchase.Purchase)
	Logger   *slog.Logger
	Importer *importer.Service
	Exporter *export.Service
	Now      func() time.Time
}

// ImportReport describes a finished import.
type ImportReport struct {
	Format   importer.Format    `json:"format"`
	Parsed   int                `json:"parsed"`
	Warnings []purchase.Warning `json:"warnings"`
	Result   ledger.BulkResult  `json:"result"`
}

// Session is the signed-in user and their ledger. Signing in again replaces
// the previous profile and ledger; the two are never merged.
type Session struct {
	factory Factory
	opts    Options
	logger  *slog.Logger

	// switching serializes SignIn and SignOut.
	switching sync.Mutex

	mu         sync.Mutex
	profile    *purchase.UserProfile
	store      ledger.Store
	sub        *ledger.Subscription
	pumpDone   chan struct{}
	purchases  []purchase.Purchase
	generation uint64
	// seq is the subscription delivery purchases was taken from.
	seq uint64
}

func New(factory Factory, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Importer == nil {
		opts.Importer = importer.NewService()
	}

	if opts.Exporter == nil {
		opts.Exporter = export.NewService()
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Session{
		factory: factory,
		opts:    opts,
		logger:  opts.Logger,
	}
}

// SignIn ends any current session, opens the profile's ledger and waits for
// its first snapshot.
func (s *Session) SignIn(ctx context.Context, profile purchase.UserProfile) error {
	if profile.ID == "" {
		return fmt.Errorf("%w: profile has no id", ErrNoIdentity)
	}

	s.switching.Lock()
	defer s.switching.Unlock()

	s.signOut()

	store, err := s.factory.Open(profile)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}

	if profile.Ephemeral && s.opts.SeedDemo {
		if err := seed(ctx, store); err != nil {
			return err
		}
	}

	sub, err := store.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to ledger: %w", err)
	}

	ready := make(chan struct{})
	done := make(chan struct{})

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.profile = &profile
	s.store = store
	s.sub = sub
	s.pumpDone = done
	s.purchases = nil
	s.seq = 0
	s.mu.Unlock()

	go s.pump(gen, sub, ready, done)

	s.logger.Info("signed in", "profile", profile.ID, "state", s.State().String())

	select {
	case <-ready:
		return nil
	case <-done:
		return nil
	case <-ctx.Done():
		s.signOut()
		return ctx.Err()
	}
}

func seed(ctx context.Context, store ledger.Store) error {
	current, err := store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}

	if len(current) > 0 {
		return nil
	}

	if _, err := store.BulkReplace(ctx, purchase.DemoPurchases()); err != nil {
		return fmt.Errorf("seeding demo ledger: %w", err)
	}

	return nil
}

// pump moves snapshots from the subscription into the session until the
// subscription closes. Deliveries for an older sign-in are dropped. Each
// wake-up takes the subscription's latest snapshot, so a snapshot already
// installed by readBack is never replaced by an older one.
func (s *Session) pump(gen uint64, sub *ledger.Subscription, ready, done chan struct{}) {
	defer close(done)

	var notified uint64

	for range sub.Updates() {
		ps, seq := sub.Latest()

		s.mu.Lock()
		if s.generation != gen {
			s.mu.Unlock()
			return
		}

		if seq > s.seq {
			s.purchases = ps
			s.seq = seq
		}
		s.mu.Unlock()

		if seq <= notified {
			continue
		}

		if s.opts.OnChange != nil {
			s.opts.OnChange(slices.Clone(ps))
		}

		if notified == 0 {
			close(ready)
		}

		notified = seq
	}
}

// SignOut closes the ledger subscription and forgets the profile. It returns
// after the last OnChange call has finished. Persisted data is kept.
func (s *Session) SignOut() {
	s.switching.Lock()
	defer s.switching.Unlock()

	s.signOut()
}

func (s *Session) signOut() {
	s.mu.Lock()
	if s.profile == nil {
		s.mu.Unlock()
		return
	}

	profileID := s.profile.ID
	sub, done := s.sub, s.pumpDone

	s.generation++
	s.profile = nil
	s.store = nil
	s.sub = nil
	s.pumpDone = nil
	s.purchases = nil
	s.seq = 0
	s.mu.Unlock()

	sub.Close()
	<-done

	s.logger.Info("signed out", "profile", profileID)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.profile == nil:
		return NoIdentity
	case s.profile.Ephemeral:
		return EphemeralActive
	default:
		return SyncedActive
	}
}

func (s *Session) Profile() (purchase.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		return purchase.UserProfile{}, false
	}

	return *s.profile, true
}

// Purchases returns the latest snapshot delivered by the backend.
func (s *Session) Purchases() ([]purchase.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		return nil, ErrNoIdentity
	}

	out := slices.Clone(s.purchases)
	if out == nil {
		out = []purchase.Purchase{}
	}

	return out, nil
}

func (s *Session) active() (ledger.Store, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return nil, 0, ErrNoIdentity
	}

	return s.store, s.generation, nil
}

// readBack installs the subscription's latest snapshot right after a write.
// Backends that deliver synchronously, like the device-local one, have
// already delivered the write, so Purchases reflects it once the write
// returns. Remote writes still arrive later through the pump.
func (s *Session) readBack(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen || s.sub == nil {
		return
	}

	if ps, seq := s.sub.Latest(); seq > s.seq {
		s.purchases = ps
		s.seq = seq
	}
}

// Add normalizes p and upserts it. The stored purchase is returned.
func (s *Session) Add(ctx context.Context, p purchase.Purchase) (purchase.Purchase, error) {
	store, gen, err := s.active()
	if err != nil {
		return purchase.Purchase{}, err
	}

	for _, issue := range purchase.Normalize(&p, s.opts.Now().UTC()) {
		s.logger.Warn("purchase coerced", "id", p.ID, "field", issue.Field, "message", issue.Message)
	}

	if err := store.Add(ctx, p); err != nil {
		return purchase.Purchase{}, fmt.Errorf("adding purchase: %w", err)
	}

	s.readBack(gen)

	return p, nil
}

func (s *Session) Remove(ctx context.Context, id string) error {
	store, gen, err := s.active()
	if err != nil {
		return err
	}

	if err := store.Remove(ctx, id); err != nil {
		return fmt.Errorf("removing purchase: %w", err)
	}

	s.readBack(gen)

	return nil
}

func (s *Session) Clear(ctx context.Context) (ledger.BulkResult, error) {
	store, gen, err := s.active()
	if err != nil {
		return ledger.BulkResult{}, err
	}

	result, err := store.Clear(ctx)
	if result.Completed > 0 {
		s.readBack(gen)
	}

	if err != nil {
		return result, fmt.Errorf("clearing ledger: %w", err)
	}

	return result, nil
}

// Import parses r and writes the purchases with BulkReplace. An unreadable
// file or one without purchases leaves the ledger untouched. A failed bulk
// write still returns the report, whose Result says how far it got.
func (s *Session) Import(ctx context.Context, format importer.Format, r io.Reader) (*ImportReport, error) {
	store, gen, err := s.active()
	if err != nil {
		return nil, err
	}

	batch, err := s.opts.Importer.Import(format, r)
	if err != nil {
		return nil, fmt.Errorf("parsing %s file: %w", format, err)
	}

	report := &ImportReport{
		Format:   format,
		Parsed:   len(batch.Purchases),
		Warnings: batch.Warnings,
	}

	if report.Warnings == nil {
		report.Warnings = []purchase.Warning{}
	}

	if len(batch.Purchases) == 0 {
		return report, ErrNoRecords
	}

	report.Result, err = store.BulkReplace(ctx, batch.Purchases)
	if report.Result.Completed > 0 {
		s.readBack(gen)
	}

	if err != nil {
		return report, fmt.Errorf("writing imported purchases: %w", err)
	}

	s.logger.Info("import finished",
		"format", format,
		"parsed", report.Parsed,
		"warnings", len(report.Warnings),
		"written", report.Result.Completed)

	return report, nil
}

// Export writes the backend's current ledger as canonical CSV.
func (s *Session) Export(ctx context.Context, w io.Writer) error {
	store, _, err := s.active()
	if err != nil {
		return err
	}

	ps, err := store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}

	return s.opts.Exporter.Export(ctx, w, ps)
}
