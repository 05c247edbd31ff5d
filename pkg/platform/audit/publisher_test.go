package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/pkg/platform/audit"
	auditmemory "warden/pkg/platform/audit/store/memory"
)

func TestSyncPublisher(t *testing.T) {
	ctx := context.Background()
	store := auditmemory.NewInMemoryStore()
	pub := audit.NewPublisher(store)

	t.Run("appends synchronously", func(t *testing.T) {
		err := pub.Emit(ctx, audit.Event{
			Subject: "u1",
			Action:  string(audit.ActionLoginSucceeded),
		})
		require.NoError(t, err)

		events, err := pub.List(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, string(audit.ActionLoginSucceeded), events[0].Action)
	})

	t.Run("defaults timestamp and category", func(t *testing.T) {
		err := pub.Emit(ctx, audit.Event{
			Subject: "u2",
			Action:  string(audit.ActionRolesUpdated),
		})
		require.NoError(t, err)

		events, err := pub.List(ctx, "u2")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.False(t, events[0].Timestamp.IsZero())
		assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	})

	t.Run("explicit category is preserved", func(t *testing.T) {
		err := pub.Emit(ctx, audit.Event{
			Subject:  "u3",
			Action:   string(audit.ActionLogout),
			Category: audit.CategorySecurity,
		})
		require.NoError(t, err)

		events, err := pub.List(ctx, "u3")
		require.NoError(t, err)
		assert.Equal(t, audit.CategorySecurity, events[0].Category)
	})
}

func TestAsyncPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("close drains buffered events", func(t *testing.T) {
		store := auditmemory.NewInMemoryStore()
		pub := audit.NewPublisher(store, audit.WithAsyncBuffer(16))

		for i := 0; i < 5; i++ {
			require.NoError(t, pub.Emit(ctx, audit.Event{
				Subject: "u1",
				Action:  string(audit.ActionLoginSucceeded),
			}))
		}
		pub.Close()

		events, err := store.ListByUser(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, events, 5)
	})

	t.Run("close twice is safe", func(t *testing.T) {
		pub := audit.NewPublisher(auditmemory.NewInMemoryStore(), audit.WithAsyncBuffer(1))
		pub.Close()
		pub.Close()
	})
}

func TestActionCategories(t *testing.T) {
	assert.Equal(t, audit.CategoryCompliance, audit.ActionUserCreated.Category())
	assert.Equal(t, audit.CategorySecurity, audit.ActionLoginFailed.Category())
	assert.Equal(t, audit.CategoryOperations, audit.ActionLogout.Category())
	assert.Equal(t, audit.CategoryOperations, audit.Action("anything-else").Category())
}

func TestMemoryStoreOrdering(t *testing.T) {
	ctx := context.Background()
	store := auditmemory.NewInMemoryStore()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, audit.Event{
			Subject:   "u1",
			Action:    string(audit.ActionLoginSucceeded),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	events, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.True(t, events[0].Timestamp.Before(events[2].Timestamp), "oldest first")
}
