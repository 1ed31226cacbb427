package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNewManager(t *testing.T) {
	manager := NewManager(nil)
	assert.NotNil(t, manager)
	assert.NotNil(t, manager.sessions)
	assert.Empty(t, manager.sessions)
}

func TestTouchCreatesSession(t *testing.T) {
	manager := NewManager(nil)

	session, err := manager.Touch("", "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "user-1", session.ActorID)
	assert.Equal(t, 1, session.Turns)
	assert.WithinDuration(t, time.Now(), session.CreatedAt, 1*time.Second)

	// Verify the session was added to the manager
	retrieved, err := manager.GetSession(session.ID)
	assert.NoError(t, err)
	assert.Equal(t, session, retrieved)
}

func TestTouchExistingSession(t *testing.T) {
	manager := NewManager(nil)

	first, err := manager.Touch("s-1", "user-1")
	require.NoError(t, err)
	second, err := manager.Touch("s-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, 2, second.Turns)
	assert.Equal(t, 1, manager.Count())
}

func TestTouchRejectsOtherActor(t *testing.T) {
	manager := NewManager(nil)
	_, err := manager.Touch("s-1", "user-1")
	require.NoError(t, err)

	_, err = manager.Touch("s-1", "user-2")
	assert.ErrorIs(t, err, ErrActorMismatch)

	session, err := manager.GetSession("s-1")
	require.NoError(t, err)
	assert.Equal(t, 1, session.Turns)
}

func TestGetSessionNotFound(t *testing.T) {
	manager := NewManager(nil)

	_, err := manager.GetSession("non-existent-id")
	assert.Equal(t, ErrSessionNotFound, err)
}

func TestRemoveSession(t *testing.T) {
	var expired []string
	manager := NewManager(func(id string) { expired = append(expired, id) })
	_, err := manager.Touch("s-1", "user-1")
	require.NoError(t, err)

	manager.RemoveSession("s-1")
	_, err = manager.GetSession("s-1")
	assert.Equal(t, ErrSessionNotFound, err)

	// Removing a non-existent session is a no-op
	manager.RemoveSession("non-existent-id")
	assert.Equal(t, []string{"s-1"}, expired)
}

func TestCleanupSessions(t *testing.T) {
	var expired []string
	manager := NewManager(func(id string) { expired = append(expired, id) })

	now := time.Now()
	manager.now = func() time.Time { return now.Add(-2 * time.Hour) }
	_, err := manager.Touch("old", "user-1")
	require.NoError(t, err)

	manager.now = func() time.Time { return now }
	_, err = manager.Touch("recent", "user-1")
	require.NoError(t, err)

	assert.Equal(t, 1, manager.CleanupSessions(1*time.Hour))
	assert.Equal(t, []string{"old"}, expired)

	_, err = manager.GetSession("old")
	assert.Error(t, err)
	_, err = manager.GetSession("recent")
	assert.NoError(t, err)
}

func TestRunStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	var expired []string
	manager := NewManager(func(id string) {
		mu.Lock()
		expired = append(expired, id)
		mu.Unlock()
	})
	_, err := manager.Touch("s-1", "user-1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		manager.Run(ctx, 5*time.Millisecond, 0)
		close(done)
	}()

	assert.Eventually(t, func() bool { return manager.Count() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"s-1"}, expired)
}
