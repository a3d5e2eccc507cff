// Package matchmaker implements one FIFO queue per variant slug. When a
// queue's length reaches the variant's queueTarget, it atomically dequeues
// the head N entries and mints a Table for them. The per-variant mutex and
// in-memory-queue-plus-size-broadcast shape is grounded in the teacher
// pack's matchmaking handler, which guards its queue with a mutex and
// reports queue size after every join.
package matchmaker

import (
	"fmt"
	"sync"

	"poker-core/internal/broadcast"
	"poker-core/internal/events"
)

// Variant describes the queueing parameters for one game variant.
type Variant struct {
	Slug        string
	QueueTarget int // number of entries required to mint a table
}

// TableFactory mints a new Table for a matched group of userIds, in seat
// order, and returns its id. Matchmaker never constructs Table itself so it
// stays decoupled from Table's wiring (clock, registry, broadcaster, RNG).
type TableFactory func(variant string, userIDs []string) (tableID string, err error)

var ErrAlreadyQueued = fmt.Errorf("matchmaker: already queued or in an active game")

type queue struct {
	mu      sync.Mutex
	entries []string
	target  int
}

// Matchmaker owns every variant's queue.
type Matchmaker struct {
	broadcaster *broadcast.Broadcaster
	mintTable   TableFactory

	mu      sync.RWMutex
	queues  map[string]*queue
	queued  map[string]string // userId -> variant slug, across all queues
}

// New creates a Matchmaker with one empty queue per variant.
func New(variants []Variant, broadcaster *broadcast.Broadcaster, mintTable TableFactory) *Matchmaker {
	m := &Matchmaker{
		broadcaster: broadcaster,
		mintTable:   mintTable,
		queues:      make(map[string]*queue),
		queued:      make(map[string]string),
	}
	for _, v := range variants {
		m.queues[v.Slug] = &queue{target: v.QueueTarget}
	}
	return m
}

// JoinQueue enqueues userId for variantSlug. Rejects if the user is already
// queued anywhere.
func (m *Matchmaker) JoinQueue(userID, variantSlug string) error {
	m.mu.Lock()
	if _, ok := m.queued[userID]; ok {
		m.mu.Unlock()
		return ErrAlreadyQueued
	}
	q, ok := m.queues[variantSlug]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("matchmaker: unknown variant %q", variantSlug)
	}
	m.queued[userID] = variantSlug
	m.mu.Unlock()

	q.mu.Lock()
	q.entries = append(q.entries, userID)
	var matched []string
	if len(q.entries) >= q.target {
		matched = q.entries[:q.target]
		q.entries = q.entries[q.target:]
	}
	count := len(q.entries)
	q.mu.Unlock()

	m.broadcastQueueInfo(variantSlug, count, q.target)

	if matched != nil {
		m.mint(variantSlug, matched)
	}
	return nil
}

// LeaveQueue removes userId from variantSlug's queue if present.
func (m *Matchmaker) LeaveQueue(userID, variantSlug string) error {
	m.mu.Lock()
	cur, ok := m.queued[userID]
	if !ok || cur != variantSlug {
		m.mu.Unlock()
		return nil
	}
	delete(m.queued, userID)
	q, ok := m.queues[variantSlug]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	q.mu.Lock()
	for i, u := range q.entries {
		if u == userID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	count := len(q.entries)
	q.mu.Unlock()

	m.broadcastQueueInfo(variantSlug, count, q.target)
	return nil
}

// CheckStatus reports whether userId is currently queued, and for which
// variant.
func (m *Matchmaker) CheckStatus(userID string) events.QueueStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slug, ok := m.queued[userID]
	return events.QueueStatus{InQueue: ok, QueueType: slug}
}

func (m *Matchmaker) mint(variantSlug string, userIDs []string) {
	m.mu.Lock()
	for _, u := range userIDs {
		delete(m.queued, u)
	}
	m.mu.Unlock()

	tableID, err := m.mintTable(variantSlug, userIDs)
	if err != nil {
		// The table could not be constructed; re-queue the matched group at
		// the front so they are not silently dropped.
		m.mu.Lock()
		for _, u := range userIDs {
			m.queued[u] = variantSlug
		}
		m.mu.Unlock()
		q := m.queues[variantSlug]
		q.mu.Lock()
		q.entries = append(userIDs, q.entries...)
		q.mu.Unlock()
		return
	}

	if m.broadcaster != nil {
		for _, u := range userIDs {
			m.broadcaster.Publish(roomForUser(u), events.MatchFound{GameID: tableID})
		}
	}
}

// roomForUser is the personal notification room a socket subscribes to on
// connect, independent of any table room.
func roomForUser(userID string) string { return "user:" + userID }

func (m *Matchmaker) broadcastQueueInfo(variantSlug string, count, target int) {
	if m.broadcaster == nil {
		return
	}
	needed := target - count
	if needed < 0 {
		needed = 0
	}
	m.broadcaster.Publish("queue:"+variantSlug, events.QueueInfo{
		QueueType: variantSlug,
		Count:     count,
		Needed:    needed,
		Target:    target,
	})
}
