// Package sockettest provides an in-memory socket.Bus.
package sockettest

import (
	"sync"

	"arc_community_backend/internal/client/socket"
	"arc_community_backend/internal/events"
)

type listener struct {
	id socket.ListenerID
	h  socket.Handler
}

// Bus delivers Publish calls synchronously to registered handlers and
// records everything emitted.
type Bus struct {
	mu        sync.Mutex
	listeners map[events.Type][]listener
	nextID    socket.ListenerID
	emitted   []events.Event
	EmitErr   error
}

var _ socket.Bus = (*Bus)(nil)

func New() *Bus {
	return &Bus{listeners: map[events.Type][]listener{}}
}

func (b *Bus) On(t events.Type, h socket.Handler) socket.ListenerID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.listeners[t] = append(b.listeners[t], listener{id: b.nextID, h: h})
	return b.nextID
}

func (b *Bus) Off(id socket.ListenerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, ls := range b.listeners {
		for i, l := range ls {
			if l.id == id {
				b.listeners[t] = append(ls[:i:i], ls[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) Emit(ev events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.EmitErr != nil {
		return b.EmitErr
	}
	b.emitted = append(b.emitted, ev)
	return nil
}

// Publish hands ev to every handler registered for its type.
func (b *Bus) Publish(ev events.Event) {
	b.mu.Lock()
	ls := append([]listener(nil), b.listeners[ev.EventType()]...)
	b.mu.Unlock()
	for _, l := range ls {
		l.h(ev)
	}
}

// Listeners returns how many handlers are registered for t.
func (b *Bus) Listeners(t events.Type) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[t])
}

// Emitted returns a copy of the emitted events.
func (b *Bus) Emitted() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.emitted...)
}
