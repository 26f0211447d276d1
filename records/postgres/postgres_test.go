package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/nvr-ai/roi-detect/notify"
	"github.com/nvr-ai/roi-detect/records"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Set ROIDETECT_TEST_POSTGRES_DSN to run against a live database.
func openTestStore(t *testing.T, hub *notify.Hub) *Store {
	t.Helper()
	dsn := os.Getenv("ROIDETECT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ROIDETECT_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := Open(ctx, dsn, "emails_channel_test", hub, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestStoreNotifiesThroughListen(t *testing.T) {
	hub := notify.NewHub(nil)
	events, cancel := hub.Subscribe(records.Topic, 8)
	defer cancel()

	store := openTestStore(t, hub)
	ctx := context.Background()

	e, err := store.Create(ctx, records.Email{Name: "ops", Email: "ops@example.com"})
	require.NoError(t, err)
	defer store.Delete(ctx, e.ID) //nolint:errcheck

	select {
	case ev := <-events:
		assert.Equal(t, "INSERT", string(ev.Data))
	case <-time.After(5 * time.Second):
		t.Fatal("no notification received")
	}

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, e)
}

func TestStoreMissingRecord(t *testing.T) {
	store := openTestStore(t, notify.NewHub(nil))

	err := store.Update(context.Background(), -1, records.Email{Email: "x@example.com"})
	assert.True(t, errors.Is(err, records.ErrNotFound))
}

func TestStoreCloseTwice(t *testing.T) {
	// Nothing listens on port 1; the listener keeps failing to connect in the background.
	dsn := "host=127.0.0.1 port=1 sslmode=disable connect_timeout=1"
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)

	store := newStore(db, dsn, "emails_channel_test", notify.NewHub(nil), nil)
	require.NotNil(t, store.logger)
	go store.forward()

	require.NoError(t, store.Close())
	assert.NotPanics(t, func() { assert.NoError(t, store.Close()) })
}
