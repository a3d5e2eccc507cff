// Package broadcast implements the Broadcaster: publishes events to named
// rooms (one per table, one per tournament) and guarantees per-room
// ordering. Each room is served by its own goroutine reading from a buffered
// channel, so publishes from a room's single-writer actor are delivered to
// subscribers in the order they were published, while rooms never block one
// another.
package broadcast

import (
	"sync"
)

// Subscriber receives room events in publish order.
type Subscriber interface {
	Deliver(event interface{})
}

type room struct {
	mu          sync.Mutex
	subscribers map[string]Subscriber // keyed by userId
	queue       chan interface{}
	done        chan struct{}
}

func newRoom() *room {
	r := &room{
		subscribers: make(map[string]Subscriber),
		queue:       make(chan interface{}, 256),
		done:        make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *room) run() {
	for {
		select {
		case event := <-r.queue:
			r.mu.Lock()
			subs := make([]Subscriber, 0, len(r.subscribers))
			for _, s := range r.subscribers {
				subs = append(subs, s)
			}
			r.mu.Unlock()
			for _, s := range subs {
				s.Deliver(event)
			}
		case <-r.done:
			return
		}
	}
}

// Broadcaster owns every room; Table and TournamentSupervisor each publish
// into exactly one room (named by their id).
type Broadcaster struct {
	mu    sync.Mutex
	rooms map[string]*room
}

// New creates an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{rooms: make(map[string]*room)}
}

func (b *Broadcaster) roomFor(roomID string) *room {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rooms[roomID]
	if !ok {
		r = newRoom()
		b.rooms[roomID] = r
	}
	return r
}

// Subscribe joins userId to roomID; delivery afterward preserves the order
// events were Published.
func (b *Broadcaster) Subscribe(roomID, userID string, sub Subscriber) {
	r := b.roomFor(roomID)
	r.mu.Lock()
	r.subscribers[userID] = sub
	r.mu.Unlock()
}

// Unsubscribe removes userId from roomID.
func (b *Broadcaster) Unsubscribe(roomID, userID string) {
	b.mu.Lock()
	r, ok := b.rooms[roomID]
	b.mu.Unlock()
	if !ok {
		return
	}
	r.mu.Lock()
	delete(r.subscribers, userID)
	r.mu.Unlock()
}

// Publish enqueues event for delivery to every current subscriber of
// roomID, preserving the order Publish was called in for that room.
func (b *Broadcaster) Publish(roomID string, event interface{}) {
	r := b.roomFor(roomID)
	r.queue <- event
}

// CloseRoom stops a room's delivery goroutine. Call when a Table or
// Tournament is torn down.
func (b *Broadcaster) CloseRoom(roomID string) {
	b.mu.Lock()
	r, ok := b.rooms[roomID]
	if ok {
		delete(b.rooms, roomID)
	}
	b.mu.Unlock()
	if ok {
		close(r.done)
	}
}
