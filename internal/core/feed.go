package core

import (
	"log"
	"sort"
	"sync"

	"github.com/studymate-ai/studymate/internal/store"
)

// Feed fans out full history snapshots per identity. Every store write
// triggers a fresh load of the identity's entire exchange set, re-sorted
// descending by creation time, delivered to every subscriber. Consumers
// replace their local list wholesale on each delivery.
type Feed struct {
	store *store.SQLiteStore

	mu     sync.Mutex
	subs   map[string]map[int]chan []store.Exchange
	nextID int
}

func NewFeed(st *store.SQLiteStore) *Feed {
	return &Feed{
		store: st,
		subs:  make(map[string]map[int]chan []store.Exchange),
	}
}

// Subscribe registers a snapshot channel for the identity and returns it
// with an unsubscribe func. The caller must unsubscribe on teardown or
// identity change; a stale subscription would otherwise keep receiving
// snapshots for a superseded identity.
func (f *Feed) Subscribe(identity string) (<-chan []store.Exchange, func()) {
	ch := make(chan []store.Exchange, 1)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	if f.subs[identity] == nil {
		f.subs[identity] = make(map[int]chan []store.Exchange)
	}
	f.subs[identity][id] = ch
	f.mu.Unlock()

	unsubscribe := func() {
		f.mu.Lock()
		if subs, ok := f.subs[identity]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(f.subs, identity)
			}
		}
		f.mu.Unlock()
	}
	return ch, unsubscribe
}

// Notify reloads the identity's history and pushes it to all current
// subscribers. A slow subscriber is never blocked on: its stale snapshot
// is dropped so the latest one wins.
func (f *Feed) Notify(identity string) {
	snapshot, err := f.Snapshot(identity)
	if err != nil {
		log.Printf("history feed refresh failed for identity %s: %v", identity, err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs[identity] {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// Snapshot loads and sorts the identity's full history.
func (f *Feed) Snapshot(identity string) ([]store.Exchange, error) {
	exchanges, err := f.store.GetExchanges(identity)
	if err != nil {
		return nil, err
	}
	SortExchanges(exchanges)
	return exchanges, nil
}

// SortExchanges orders a batch descending by creation time. Records with
// no timestamp yet sort as oldest, i.e. last.
func SortExchanges(exchanges []store.Exchange) {
	sort.SliceStable(exchanges, func(i, j int) bool {
		return exchanges[i].CreatedAt.After(exchanges[j].CreatedAt)
	})
}
