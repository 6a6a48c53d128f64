package ledger

import (
	"slices"
	"sync"

	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

// Subscription carries ledger snapshots from a Store to one consumer.
//
// At most one snapshot is buffered: a delivery made while the previous one
// is still unread replaces it. Once Close returns nothing more is delivered
// and the Updates channel is closed.
type Subscription struct {
	mu      sync.Mutex
	closed  bool
	updates chan []purchase.Purchase
	done    chan struct{}
	latest  []purchase.Purchase
	seq     uint64

	stopOnce sync.Once
	stop     func()
}

// NewSubscription returns an open subscription. stop is called once, on the
// first Close, and must not return before the producer has stopped
// delivering.
func NewSubscription(stop func()) *Subscription {
	if stop == nil {
		stop = func() {}
	}

	return &Subscription{
		updates: make(chan []purchase.Purchase, 1),
		done:    make(chan struct{}),
		stop:    stop,
	}
}

// Updates returns the snapshot channel. It is closed by Close.
func (s *Subscription) Updates() <-chan []purchase.Purchase {
	return s.updates
}

// Done is closed when the subscription is closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Deliver hands a copy of ps to the consumer, replacing any snapshot not yet
// read. It reports false once the subscription is closed.
func (s *Subscription) Deliver(ps []purchase.Purchase) bool {
	snapshot := slices.Clone(ps)
	if snapshot == nil {
		snapshot = []purchase.Purchase{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case <-s.updates:
	default:
	}

	s.updates <- snapshot
	s.latest = snapshot
	s.seq++

	return true
}

// Latest returns the most recent snapshot and its delivery number, counting
// from 1. It returns 0 before the first delivery. The slice must not be
// modified.
func (s *Subscription) Latest() ([]purchase.Purchase, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.latest, s.seq
}

// Close stops the subscription. It is safe to call more than once and from
// several goroutines.
func (s *Subscription) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true

		select {
		case <-s.updates:
		default:
		}

		close(s.updates)
		close(s.done)
	}
	s.mu.Unlock()

	s.stopOnce.Do(s.stop)
}
