package core

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymate-ai/studymate/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), "test-app")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSortExchangesDescending(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	batch := []store.Exchange{
		{ID: "b", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "pending"}, // server timestamp not yet resolved
		{ID: "d", CreatedAt: base.Add(9 * time.Minute)},
		{ID: "a", CreatedAt: base},
		{ID: "c", CreatedAt: base.Add(5 * time.Minute)},
	}

	SortExchanges(batch)

	ids := make([]string, len(batch))
	for i, ex := range batch {
		ids[i] = ex.ID
	}
	assert.Equal(t, []string{"d", "c", "b", "a", "pending"}, ids)

	for i := 1; i < len(batch)-1; i++ {
		assert.True(t, batch[i-1].CreatedAt.After(batch[i].CreatedAt),
			"list must be strictly descending at %d", i)
	}
}

func TestFeedDeliversSnapshotOnNotify(t *testing.T) {
	st := newTestStore(t)
	feed := NewFeed(st)
	updates, unsubscribe := feed.Subscribe("user-1")
	defer unsubscribe()

	require.NoError(t, st.CreateExchange(&store.Exchange{
		Identity: "user-1", Mode: "qa", PromptText: "hi", ResponseText: "hello",
	}))
	feed.Notify("user-1")

	select {
	case snapshot := <-updates:
		require.Len(t, snapshot, 1)
		assert.Equal(t, "hi", snapshot[0].PromptText)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestFeedScopesSubscriptionsByIdentity(t *testing.T) {
	st := newTestStore(t)
	feed := NewFeed(st)
	updates, unsubscribe := feed.Subscribe("user-1")
	defer unsubscribe()

	require.NoError(t, st.CreateExchange(&store.Exchange{
		Identity: "user-2", Mode: "qa", PromptText: "other", ResponseText: "x",
	}))
	feed.Notify("user-2")

	select {
	case <-updates:
		t.Fatal("snapshot leaked across identities")
	default:
	}
}

func TestFeedUnsubscribeStopsDelivery(t *testing.T) {
	st := newTestStore(t)
	feed := NewFeed(st)
	updates, unsubscribe := feed.Subscribe("user-1")
	unsubscribe()

	require.NoError(t, st.CreateExchange(&store.Exchange{
		Identity: "user-1", Mode: "qa", PromptText: "hi", ResponseText: "hello",
	}))
	feed.Notify("user-1")

	select {
	case <-updates:
		t.Fatal("snapshot delivered after unsubscribe")
	default:
	}
}

func TestFeedDropsStaleSnapshotForSlowSubscriber(t *testing.T) {
	st := newTestStore(t)
	feed := NewFeed(st)
	updates, unsubscribe := feed.Subscribe("user-1")
	defer unsubscribe()

	require.NoError(t, st.CreateExchange(&store.Exchange{
		Identity: "user-1", Mode: "qa", PromptText: "first", ResponseText: "x",
	}))
	feed.Notify("user-1")
	require.NoError(t, st.CreateExchange(&store.Exchange{
		Identity: "user-1", Mode: "qa", PromptText: "second", ResponseText: "y",
	}))
	feed.Notify("user-1") // subscriber never drained; latest snapshot wins

	select {
	case snapshot := <-updates:
		assert.Len(t, snapshot, 2)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}
