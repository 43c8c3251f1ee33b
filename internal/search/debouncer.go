package search

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSuperseded is returned when a newer query for the same key arrived
// before this one finished.
var ErrSuperseded = errors.New("search superseded by a newer query")

// Debouncer coalesces bursts of queries per key. Only the most recent ticket
// for a key is allowed to reach the upstream searcher; older tickets are
// cancelled while they wait and discarded if they finish late.
type Debouncer struct {
	delay     time.Duration
	idleAfter time.Duration

	mu      sync.Mutex
	next    uint64
	entries map[string]*entry
	now     func() time.Time
}

type entry struct {
	token      uint64
	superseded chan struct{}
	touched    time.Time
}

// NewDebouncer creates a debouncer that waits delay before releasing a
// ticket. Keys untouched for longer than idleAfter are pruned on the next
// call to Take.
func NewDebouncer(delay, idleAfter time.Duration) *Debouncer {
	if idleAfter <= 0 {
		idleAfter = time.Minute
	}
	return &Debouncer{
		delay:     delay,
		idleAfter: idleAfter,
		entries:   make(map[string]*entry),
		now:       time.Now,
	}
}

// Ticket is one query's claim on a key.
type Ticket struct {
	d          *Debouncer
	key        string
	token      uint64
	superseded <-chan struct{}
}

// Take issues a new ticket for key, superseding any outstanding one.
func (d *Debouncer) Take(key string) *Ticket {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.pruneLocked(now)

	if prev, ok := d.entries[key]; ok {
		close(prev.superseded)
	}

	d.next++
	e := &entry{token: d.next, superseded: make(chan struct{}), touched: now}
	d.entries[key] = e

	return &Ticket{d: d, key: key, token: e.token, superseded: e.superseded}
}

// Wait blocks for the debounce delay. It returns ErrSuperseded as soon as a
// newer ticket is taken for the same key, or ctx.Err() if ctx ends first.
func (t *Ticket) Wait(ctx context.Context) error {
	timer := time.NewTimer(t.d.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		if !t.Current() {
			return ErrSuperseded
		}
		return nil
	case <-t.superseded:
		return ErrSuperseded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current reports whether no newer ticket has been taken for this key.
func (t *Ticket) Current() bool {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()

	e, ok := t.d.entries[t.key]
	return ok && e.token == t.token
}

// Done releases the key if this ticket still owns it.
func (t *Ticket) Done() {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()

	if e, ok := t.d.entries[t.key]; ok && e.token == t.token {
		delete(t.d.entries, t.key)
	}
}

// Pending returns the number of keys with an outstanding ticket.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func (d *Debouncer) pruneLocked(now time.Time) {
	for key, e := range d.entries {
		if now.Sub(e.touched) > d.idleAfter {
			close(e.superseded)
			delete(d.entries, key)
		}
	}
}
