package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type chanConn struct {
	events chan UserEvent
}

func newChanConn() *chanConn {
	return &chanConn{events: make(chan UserEvent, 8)}
}

func (c *chanConn) WriteJSON(v interface{}) error {
	c.events <- v.(UserEvent)
	return nil
}

func (c *chanConn) Close() error { return nil }

func (c *chanConn) wait(t *testing.T) UserEvent {
	t.Helper()
	select {
	case evt := <-c.events:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return UserEvent{}
	}
}

func TestHubFanOutReachesAllUserConns(t *testing.T) {
	userID := primitive.NewObjectID()
	c1 := newChanConn()
	c2 := newChanConn()

	id1 := RegisterUserConn(userID, c1)
	id2 := RegisterUserConn(userID, c2)
	defer UnregisterUserConn(userID, id1)
	defer UnregisterUserConn(userID, id2)

	FanOutUserEvent(userID, UserEvent{Type: EventTypeNotification})

	assert.Equal(t, EventTypeNotification, c1.wait(t).Type)
	assert.Equal(t, EventTypeNotification, c2.wait(t).Type)
}

func TestHubFanOutIsScopedToUser(t *testing.T) {
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	aliceConn := newChanConn()
	bobConn := newChanConn()

	aliceID := RegisterUserConn(alice, aliceConn)
	bobID := RegisterUserConn(bob, bobConn)
	defer UnregisterUserConn(alice, aliceID)
	defer UnregisterUserConn(bob, bobID)

	FanOutUserEvent(alice, UserEvent{Type: EventTypeNotification})

	aliceConn.wait(t)
	select {
	case <-bobConn.events:
		t.Fatal("event leaked to another user's connection")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterReportsLastConnection(t *testing.T) {
	userID := primitive.NewObjectID()
	c1 := newChanConn()
	c2 := newChanConn()

	id1 := RegisterUserConn(userID, c1)
	id2 := RegisterUserConn(userID, c2)

	require.False(t, UnregisterUserConn(userID, id1))
	require.True(t, UnregisterUserConn(userID, id2))

	// Removing an already-removed connection is harmless.
	assert.False(t, UnregisterUserConn(userID, id2))
}
