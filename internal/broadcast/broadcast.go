// Package broadcast is the SPEC_FULL.md §6 addition backing the
// query/subscription contract's "subscribers" side: a registry of
// buffered per-subscriber channels with non-blocking, drop-on-full
// publish. Grounded on the callback-channel pattern in the teacher's
// internal/mcp/server.go (AsyncIndexingState.UpdateChannel, a buffered
// channel fed by a non-blocking send), generalized from one fixed
// channel into a registry so multiple subscribers can each get their
// own backlog.
package broadcast

import (
	"sync"

	"github.com/standardbeagle/codeprop/internal/ids"
)

// EventType discriminates the three broadcast shapes spec.md's
// subscription contract names.
type EventType uint8

const (
	GraphUpdate EventType = iota
	FocusNode
	IndexerStatus
)

// IndexerPhase is IndexerStatus's progress marker.
type IndexerPhase uint8

const (
	PhaseScanning IndexerPhase = iota
	PhaseParsing
	PhaseResolving
	PhaseRanking
	PhaseReady
)

// Event is one broadcast envelope. Only the fields relevant to Type
// are populated.
type Event struct {
	Type EventType

	// GraphUpdate
	AddedNodes    []ids.NodeID
	ModifiedNodes []ids.NodeID
	RemovedNodes  []ids.NodeID

	// FocusNode
	FocusedNode ids.NodeID
	File        string
	Line        int

	// IndexerStatus
	Phase          IndexerPhase
	FilesRemaining int
}

// Broadcaster fans out Events to every registered subscriber. Publish
// never blocks: a subscriber whose channel is full misses the event,
// per spec.md's broadcast semantics treating subscribers as best-effort
// consumers of a live stream, not a durable log.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[int]chan Event
	nextID      int
	depth       int
}

// New returns a Broadcaster whose subscriber channels are buffered to
// depth entries.
func New(depth int) *Broadcaster {
	if depth <= 0 {
		depth = 32
	}
	return &Broadcaster{subscribers: make(map[int]chan Event), depth: depth}
}

// Subscription is a live registration; call Unsubscribe when done.
type Subscription struct {
	id int
	ch chan Event
	b  *Broadcaster
}

// Events returns the subscription's event channel.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Unsubscribe removes the subscription and closes its channel.
func (s *Subscription) Unsubscribe() { s.b.unsubscribe(s.id) }

// Subscribe registers a new subscriber and returns its Subscription.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.depth)
	b.subscribers[id] = ch
	return &Subscription{id: id, ch: ch, b: b}
}

func (b *Broadcaster) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Publish fans ev out to every current subscriber, dropping it for any
// subscriber whose channel is currently full. Called after the Graph's
// exclusive lock releases, in commit order, per spec.md's ordering
// guarantee for GraphUpdate events.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports the number of live subscriptions, mainly for
// diagnostics and tests.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
