package memory

import (
	"fmt"
	"testing"

	"github.com/davicafu/eventlab/internal/eventstore/domain"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	"github.com/stretchr/testify/assert"
)

func appendN(s *FallbackStore, stream string, n int) {
	for i := 0; i < n; i++ {
		evt := sharedEvents.NewEvent(fmt.Sprintf("test.event.%d", i), map[string]interface{}{"n": i}, sharedEvents.Metadata{})
		s.Append(stream, evt)
	}
}

func TestAppendAssignsSequentialRevisions(t *testing.T) {
	s := NewFallbackStore()

	rev0, created0 := s.Append("stream-a", sharedEvents.NewEvent("test.first", nil, sharedEvents.Metadata{}))
	rev1, created1 := s.Append("stream-a", sharedEvents.NewEvent("test.second", nil, sharedEvents.Metadata{}))

	assert.Equal(t, uint64(0), rev0)
	assert.True(t, created0)
	assert.Equal(t, uint64(1), rev1)
	assert.False(t, created1)
}

func TestReadStream_RoundTrip(t *testing.T) {
	s := NewFallbackStore()
	appendN(s, "stream-rt", 5)

	events := s.ReadStream("stream-rt", domain.ReadStreamOptions{Direction: domain.Forward})

	assert.Len(t, events, 5)
	for i, evt := range events {
		assert.Equal(t, uint64(i), evt.Revision)
		assert.Equal(t, fmt.Sprintf("test.event.%d", i), evt.Type)
		assert.Equal(t, i, evt.Data["n"])
	}
}

func TestReadStream_Pagination(t *testing.T) {
	s := NewFallbackStore()
	appendN(s, "stream-pag", 5)

	first3 := s.ReadStream("stream-pag", domain.ReadStreamOptions{Direction: domain.Forward, MaxCount: 3})
	assert.Len(t, first3, 3)
	assert.Equal(t, uint64(0), first3[0].Revision)
	assert.Equal(t, uint64(2), first3[2].Revision)

	backward := s.ReadStream("stream-pag", domain.ReadStreamOptions{Direction: domain.Backward})
	assert.Len(t, backward, 5)
	assert.Equal(t, uint64(4), backward[0].Revision)
	assert.Equal(t, uint64(0), backward[4].Revision)
}

func TestReadStream_FromRevision(t *testing.T) {
	s := NewFallbackStore()
	appendN(s, "stream-from", 5)

	events := s.ReadStream("stream-from", domain.ReadStreamOptions{FromRevision: 3, Direction: domain.Forward})
	assert.Len(t, events, 2)
	assert.Equal(t, uint64(3), events[0].Revision)
}

func TestReadStream_Nonexistent(t *testing.T) {
	s := NewFallbackStore()

	events := s.ReadStream("never-written", domain.ReadStreamOptions{})
	assert.Empty(t, events)
}

func TestReadAll_PrefixFilter(t *testing.T) {
	s := NewFallbackStore()
	appendN(s, "orders-1", 2)
	appendN(s, "users-1", 3)

	all := s.ReadAll(domain.ReadAllOptions{Direction: domain.Forward})
	assert.Len(t, all, 5)

	users := s.ReadAll(domain.ReadAllOptions{Direction: domain.Forward, StreamPrefix: "users-"})
	assert.Len(t, users, 3)
	for _, evt := range users {
		assert.Equal(t, "users-1", evt.StreamName)
	}
}
