package presence

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"arc_community_backend/internal/client/socket/sockettest"
	"arc_community_backend/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSort_GroupsStrictlyByPriority(t *testing.T) {
	statuses := []string{events.StatusOnline, events.StatusAway, events.StatusBusy, events.StatusDND}
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		users := map[string]Info{}
		for i := 0; i < 1+rng.Intn(30); i++ {
			users[fmt.Sprintf("u-%d", i)] = Info{Username: fmt.Sprintf("user%02d", rng.Intn(10)), Status: statuses[rng.Intn(len(statuses))]}
		}
		entries := Sort(users)
		require.Len(t, entries, len(users))
		for i := 1; i < len(entries); i++ {
			assert.LessOrEqual(t, Priority(entries[i-1].Status), Priority(entries[i].Status), "round %d index %d", round, i)
		}
		assert.Equal(t, entries, Sort(users), "order must not depend on map iteration")
	}
}

func TestSort_UnknownStatusLastAndTieBreaks(t *testing.T) {
	entries := Sort(map[string]Info{
		"3": {Username: "bravo", Status: "invisible"},
		"2": {Username: "bravo", Status: events.StatusOnline},
		"1": {Username: "bravo", Status: events.StatusOnline},
		"4": {Username: "alpha", Status: events.StatusDND},
		"5": {Username: "alpha", Status: events.StatusOnline},
	})
	ids := []string{}
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	assert.Equal(t, []string{"5", "1", "2", "4", "3"}, ids)
}

func TestPanel_AppliesEventsFromBus(t *testing.T) {
	bus := sockettest.New()
	p := NewPanel()
	unsubscribe := p.Subscribe(bus)

	bus.Publish(events.PresenceSnapshotPayload{Users: []events.PresencePayload{
		{UserID: "a", Username: "alice", Status: events.StatusAway},
		{UserID: "b", Username: "bob", Status: events.StatusOnline},
	}})
	bus.Publish(events.PresencePayload{UserID: "c", Username: "cara", Status: events.StatusDND})
	bus.Publish(events.PresencePayload{UserID: "b", Username: "bob", Status: events.StatusOffline})

	assert.Equal(t, []Entry{
		{UserID: "a", Username: "alice", Status: events.StatusAway},
		{UserID: "c", Username: "cara", Status: events.StatusDND},
	}, p.Entries())

	unsubscribe()
	bus.Publish(events.PresencePayload{UserID: "d", Username: "dan", Status: events.StatusOnline})
	_, ok := p.Status("d")
	assert.False(t, ok)
}

func TestStatusSelector(t *testing.T) {
	bus := sockettest.New()
	var picked []string
	sel := NewStatusSelector(bus, func(s string) { picked = append(picked, s) }, zap.NewNop())

	assert.ErrorIs(t, sel.Select("offline"), ErrInvalidStatus)
	assert.Empty(t, bus.Emitted())

	require.NoError(t, sel.Select(events.StatusBusy))
	assert.Equal(t, []events.Event{events.StatusChangePayload{Status: events.StatusBusy}}, bus.Emitted())
	assert.Equal(t, []string{events.StatusBusy}, picked)

	bus.EmitErr = errors.New("socket closed")
	assert.Error(t, sel.Select(events.StatusAway))
	assert.Equal(t, []string{events.StatusBusy}, picked)

	assert.NoError(t, NewStatusSelector(sockettest.New(), nil, zap.NewNop()).Select(events.StatusDND))
}
