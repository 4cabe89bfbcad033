package xemm

import (
	"container/list"
	"sync"
	"time"
)

// ShadowKeepAlive is how long a stopped id remains resolvable so that
// late-arriving fill/completion events can still be correlated to a pair.
const ShadowKeepAlive = 900 * time.Second

type shadowEntry struct {
	id        ClientOrderId
	expiresAt time.Time
}

// PairTracker maps ClientOrderId to the MarketPair it belongs to, with
// aging for recently-stopped ids so late events can still be attributed
// during their shadow window.
type PairTracker struct {
	mu sync.Mutex

	live   map[ClientOrderId]MarketPair
	shadow map[ClientOrderId]MarketPair

	// expiry is a time-ordered queue of shadow entries, drained from the
	// front on every Tick call since entries are appended in increasing
	// expiry order.
	expiry *list.List
}

// NewPairTracker constructs an empty tracker.
func NewPairTracker() *PairTracker {
	return &PairTracker{
		live:   make(map[ClientOrderId]MarketPair),
		shadow: make(map[ClientOrderId]MarketPair),
		expiry: list.New(),
	}
}

// StartTracking records id as belonging to pair.
func (t *PairTracker) StartTracking(id ClientOrderId, pair MarketPair) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.shadow[id]; ok {
		delete(t.shadow, id)
		for e := t.expiry.Front(); e != nil; e = e.Next() {
			if e.Value.(shadowEntry).id == id {
				t.expiry.Remove(e)
				break
			}
		}
	}
	t.live[id] = pair
}

// StopTracking moves id from the live set into the shadow set, where it
// remains resolvable for ShadowKeepAlive before it is forgotten entirely.
func (t *PairTracker) StopTracking(id ClientOrderId, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pair, ok := t.live[id]
	if !ok {
		return
	}
	delete(t.live, id)
	t.shadow[id] = pair
	t.expiry.PushBack(shadowEntry{id: id, expiresAt: now.Add(ShadowKeepAlive)})
}

// Lookup resolves id to its pair, checking the live set then the shadow
// set. It returns ok=false for an id this tracker never saw, which is the
// expected outcome for events outside the strategy's universe.
func (t *PairTracker) Lookup(id ClientOrderId) (pair MarketPair, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if pair, ok = t.live[id]; ok {
		return pair, true
	}
	pair, ok = t.shadow[id]
	return pair, ok
}

// Advance drains shadow entries whose keep-alive window has elapsed.
// Called once per tick before evaluating any pair.
func (t *PairTracker) Advance(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for e := t.expiry.Front(); e != nil; {
		next := e.Next()
		entry := e.Value.(shadowEntry)
		if entry.expiresAt.After(now) {
			break
		}
		delete(t.shadow, entry.id)
		t.expiry.Remove(e)
		e = next
	}
}

// NumLive reports how many ids are presently live-tracked, for tests and
// status reporting.
func (t *PairTracker) NumLive() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}
