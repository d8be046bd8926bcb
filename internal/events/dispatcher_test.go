package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []string

	d.Subscribe(EventUserDeleted, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.UserID)
		return errors.New("boom")
	})
	d.Subscribe(EventUserDeleted, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.UserID)
		return nil
	})
	d.Subscribe(EventUserUpdated, func(context.Context, Event) error {
		seen = append(seen, "other")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventUserDeleted, "u1", "fb-1", UserDeletedPayload{Deleted: 1}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"first:u1", "second:u1"}, seen)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), NewEvent(EventCohortAdded, "u1", "", nil)))
}

func TestNewEvent(t *testing.T) {
	a := NewEvent(EventUserRegistered, "u1", "fb-1", nil)
	b := NewEvent(EventUserRegistered, "u1", "fb-1", nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
}
