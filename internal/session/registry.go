package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

// ErrSessionClosed is returned by Registry.Get when the session was dropped
// while it was still signing in.
var ErrSessionClosed = errors.New("session closed while signing in")

// Registry keeps one signed-in Session per profile, for servers handling
// many users at once.
type Registry struct {
	factory Factory
	opts    Options
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*entry
}

// entry is a registry slot. Signing in happens outside the registry lock;
// callers for the same profile wait on ready.
type entry struct {
	ready    chan struct{}
	session  *Session
	err      error
	lastUsed time.Time
}

func NewRegistry(factory Factory, opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Registry{
		factory:  factory,
		opts:     opts,
		logger:   opts.Logger,
		sessions: make(map[string]*entry),
	}
}

// Get returns the profile's session, signing it in on first use. Only the
// first caller for a profile signs in; the others wait for it or for their
// own ctx.
func (r *Registry) Get(ctx context.Context, profile purchase.UserProfile) (*Session, error) {
	for {
		r.mu.Lock()

		e, ok := r.sessions[profile.ID]
		if !ok {
			e = &entry{ready: make(chan struct{})}
			r.sessions[profile.ID] = e
			r.mu.Unlock()

			return r.signIn(ctx, profile, e)
		}

		r.mu.Unlock()

		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		if e.err != nil {
			return nil, e.err
		}

		if current, ok := e.session.Profile(); ok && current.Ephemeral == profile.Ephemeral {
			r.mu.Lock()
			e.lastUsed = r.opts.Now()
			r.mu.Unlock()

			return e.session, nil
		}

		r.remove(profile.ID, e)
	}
}

func (r *Registry) signIn(ctx context.Context, profile purchase.UserProfile, e *entry) (*Session, error) {
	s := New(r.factory, r.opts)
	err := s.SignIn(ctx, profile)

	r.mu.Lock()
	current := r.sessions[profile.ID] == e

	switch {
	case err != nil && current:
		delete(r.sessions, profile.ID)
	case err == nil && !current:
		err = ErrSessionClosed
	}

	if err == nil {
		e.session = s
	}

	e.err = err
	e.lastUsed = r.opts.Now()
	close(e.ready)
	r.mu.Unlock()

	if err != nil {
		s.SignOut()
		return nil, err
	}

	return s, nil
}

// remove drops e if it still holds the profile's slot.
func (r *Registry) remove(profileID string, e *entry) {
	r.mu.Lock()
	if r.sessions[profileID] != e {
		r.mu.Unlock()
		return
	}

	delete(r.sessions, profileID)
	r.mu.Unlock()

	e.signOut()
}

// signOut ends a signed-in entry. An entry still signing in is left to its
// signIn, which notices it lost the slot.
func (e *entry) signOut() {
	select {
	case <-e.ready:
		if e.session != nil {
			e.session.SignOut()
		}
	default:
	}
}

// Drop signs the profile's session out, if there is one.
func (r *Registry) Drop(profileID string) {
	r.mu.Lock()
	e, ok := r.sessions[profileID]
	delete(r.sessions, profileID)
	r.mu.Unlock()

	if ok {
		e.signOut()
	}
}

// EvictIdle signs out every session unused for longer than maxIdle and
// returns how many it evicted.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := r.opts.Now().Add(-maxIdle)

	var idle []*entry

	r.mu.Lock()
	for id, e := range r.sessions {
		select {
		case <-e.ready:
		default:
			continue
		}

		if e.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			idle = append(idle, e)
		}
	}
	r.mu.Unlock()

	for _, e := range idle {
		e.signOut()
	}

	return len(idle)
}

// RunEvictor calls EvictIdle every interval until ctx is done.
func (r *Registry) RunEvictor(ctx context.Context, maxIdle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(maxIdle); n > 0 {
				r.logger.Info("evicted idle sessions", "count", n, "remaining", r.Len())
			}
		}
	}
}

// Close signs every session out.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range sessions {
		e.signOut()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}
