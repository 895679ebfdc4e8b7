package main

import (
	"arc_community_backend/internal/client/socket"
	"arc_community_backend/internal/events"
)

// noopBus stands in for the socket when a command does not watch for events.
type noopBus struct{}

func (noopBus) On(events.Type, socket.Handler) socket.ListenerID { return 0 }
func (noopBus) Off(socket.ListenerID)                            {}
func (noopBus) Emit(events.Event) error                          { return socket.ErrNotConnected }
