package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/auth"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestProduct_MissThenHit(t *testing.T) {
	db := openTestDB(t)

	p, fresh, err := db.GetProduct(1, time.Hour)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.False(t, fresh)

	require.NoError(t, db.PutProduct(&api.Product{ID: 1, Name: "Kettle", Price: "19.90", Stock: 3}))

	p, fresh, err = db.GetProduct(1, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, fresh)
	assert.Equal(t, "Kettle", p.Name)
	assert.Equal(t, api.Decimal("19.90"), p.Price)

	_, fresh, err = db.GetProduct(1, 0)
	require.NoError(t, err)
	assert.False(t, fresh, "zero TTL is always stale")
}

func TestProductList_StoresPageAndProducts(t *testing.T) {
	db := openTestDB(t)
	next := "http://x/api/products/?page=2"
	page := &api.Page[api.Product]{
		Count:   3,
		Next:    &next,
		Results: []api.Product{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
	}
	key := api.ProductQuery{Page: 1, Search: "tea"}.Key()

	require.NoError(t, db.PutProductList(key, page))

	got, fresh, err := db.GetProductList(key, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, fresh)
	assert.Equal(t, 3, got.Count)
	assert.True(t, got.HasNext())
	assert.Len(t, got.Results, 2)

	p, _, err := db.GetProduct(2, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "B", p.Name)

	miss, _, err := db.GetProductList("other", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestProductList_DoesNotOverwriteDetail(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.PutProduct(&api.Product{ID: 1, Name: "A", Description: "<p>long</p>"}))
	require.NoError(t, db.PutProductList("k", &api.Page[api.Product]{Results: []api.Product{{ID: 1, Name: "A"}}}))

	p, _, err := db.GetProduct(1, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "<p>long</p>", p.Description)
}

func TestCategories_ReplaceKeepsOrder(t *testing.T) {
	db := openTestDB(t)

	cats, _, err := db.GetCategories(time.Hour)
	require.NoError(t, err)
	assert.Nil(t, cats)

	require.NoError(t, db.PutCategories([]api.Category{{ID: 9, Name: "Zed"}, {ID: 1, Name: "Alpha"}}))
	require.NoError(t, db.PutCategories([]api.Category{{ID: 5, Name: "Tea"}, {ID: 3, Name: "Cups"}}))

	cats, fresh, err := db.GetCategories(time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh)
	require.Len(t, cats, 2)
	assert.Equal(t, "Tea", cats[0].Name)
	assert.Equal(t, "Cups", cats[1].Name)
}

func TestWatchedOrders_PerUser(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	require.NoError(t, db.UpsertWatchedOrder("ann@example.com", WatchedOrder{OrderID: 1, Status: api.OrderStatusPending, LastChecked: now}))
	require.NoError(t, db.UpsertWatchedOrder("ann@example.com", WatchedOrder{OrderID: 1, Status: api.OrderStatusShipped, LastChecked: now}))
	require.NoError(t, db.UpsertWatchedOrder("bob@example.com", WatchedOrder{OrderID: 2, Status: api.OrderStatusPending, LastChecked: now}))

	ann, err := db.GetWatchedOrders("ann@example.com")
	require.NoError(t, err)
	require.Len(t, ann, 1)
	assert.Equal(t, api.OrderStatusShipped, ann[1].Status)
}

func TestNotifications(t *testing.T) {
	db := openTestDB(t)
	user := "ann@example.com"
	t0 := time.Now().Add(-time.Hour)

	add := func(email string, orderID int, from, to api.OrderStatus, at time.Time) bool {
		t.Helper()
		added, err := db.AddNotification(email, orderID, from, to, at)
		require.NoError(t, err)
		return added
	}
	assert.True(t, add(user, 1, api.OrderStatusPending, api.OrderStatusConfirmed, t0))
	assert.True(t, add(user, 1, api.OrderStatusConfirmed, api.OrderStatusShipped, t0.Add(time.Minute)))
	assert.False(t, add(user, 1, api.OrderStatusConfirmed, api.OrderStatusShipped, t0.Add(2*time.Minute)), "duplicate transition is ignored")
	assert.True(t, add("bob@example.com", 7, api.OrderStatusPending, api.OrderStatusCancelled, t0))

	assert.Equal(t, 2, db.UnreadNotificationCount(user))

	list, err := db.ListNotifications(user, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, api.OrderStatusShipped, list[0].ToStatus, "newest first")

	require.NoError(t, db.MarkNotificationRead(list[0].ID))
	assert.Equal(t, 1, db.UnreadNotificationCount(user))
}

func TestSessionStore(t *testing.T) {
	db := openTestDB(t)
	store := NewSessionStore(db, "http://localhost:8000/api")

	st, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, auth.State{}, st)

	want := auth.State{AccessToken: "A1", RefreshToken: "R1", User: &auth.User{ID: 3, Email: "ann@example.com"}}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Clear())
	got, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, auth.State{}, got)
}

func TestSessionStore_BacksSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	db, err := Open(path)
	require.NoError(t, err)

	s := auth.NewSession(NewSessionStore(db, "http://localhost:8000/api"), zerolog.Nop())
	require.NoError(t, s.SetTokens("A1", "R1"))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	restored := auth.NewSession(NewSessionStore(db, "http://localhost:8000/api"), zerolog.Nop())
	require.NoError(t, restored.Restore())
	assert.Equal(t, "A1", restored.AccessToken())
	assert.Equal(t, "R1", restored.RefreshToken())
}

func TestSessionStore_KeyedByServer(t *testing.T) {
	db := openTestDB(t)
	local := NewSessionStore(db, "http://localhost:8000/api")
	other := NewSessionStore(db, "https://shop.example.com/api")

	require.NoError(t, local.Save(auth.State{AccessToken: "A1", RefreshToken: "R1"}))

	got, err := other.Load()
	require.NoError(t, err)
	assert.Equal(t, auth.State{}, got, "credentials for one server are not restored for another")

	require.NoError(t, other.Clear())
	got, err = local.Load()
	require.NoError(t, err)
	assert.Equal(t, "A1", got.AccessToken)
}
