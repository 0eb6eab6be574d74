package watch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/auth"
	"github.com/fragmede/shopterm/internal/cache"
	"github.com/fragmede/shopterm/internal/ui/messages"
)

type shop struct {
	mu     sync.Mutex
	orders []api.Order
	fail   bool
}

func (s *shop) set(orders ...api.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = orders
}

func (s *shop) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.orders)
}

type recorder struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recorder) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func newWatcher(t *testing.T, s *shop) (*Watcher, *cache.DB) {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	db, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	session := auth.NewSession(auth.NewMemoryStore(), zerolog.Nop())
	require.NoError(t, session.SetTokens("A1", "R1"))
	gw := api.NewGateway(api.GatewayConfig{
		BaseURL:           srv.URL + "/api",
		RequestTimeout:    5 * time.Second,
		RequestsPerSecond: 1000,
	}, session)

	return New(api.NewClient(gw), db, time.Hour, zerolog.Nop()), db
}

func TestPoll_FirstSightingRecordsWithoutNotifying(t *testing.T) {
	s := &shop{}
	s.set(api.Order{ID: 1, Status: api.OrderStatusPending})
	w, db := newWatcher(t, s)

	changes, err := w.Poll(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Empty(t, changes)

	known, err := db.GetWatchedOrders("ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, api.OrderStatusPending, known[1].Status)
	assert.Zero(t, db.UnreadNotificationCount("ann@example.com"))
}

func TestPoll_StatusChangeCreatesNotification(t *testing.T) {
	s := &shop{}
	s.set(api.Order{ID: 1, Status: api.OrderStatusPending}, api.Order{ID: 2, Status: api.OrderStatusShipped})
	w, db := newWatcher(t, s)
	ctx := context.Background()

	_, err := w.Poll(ctx, "ann@example.com")
	require.NoError(t, err)

	s.set(api.Order{ID: 1, Status: api.OrderStatusConfirmed}, api.Order{ID: 2, Status: api.OrderStatusShipped})
	changes, err := w.Poll(ctx, "ann@example.com")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, Change{OrderID: 1, From: api.OrderStatusPending, To: api.OrderStatusConfirmed}, changes[0])

	notes, err := db.ListNotifications("ann@example.com", 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, 1, notes[0].OrderID)
	assert.Equal(t, api.OrderStatusConfirmed, notes[0].ToStatus)
	assert.False(t, notes[0].Read)

	changes, err = w.Poll(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Empty(t, changes, "unchanged status is not reported twice")
}

func TestPoll_RepeatedStatusIsNotCountedTwice(t *testing.T) {
	s := &shop{}
	s.set(api.Order{ID: 1, Status: api.OrderStatusPending})
	w, db := newWatcher(t, s)
	ctx := context.Background()
	user := "ann@example.com"

	_, err := w.Poll(ctx, user)
	require.NoError(t, err)

	s.set(api.Order{ID: 1, Status: api.OrderStatusConfirmed})
	changes, err := w.Poll(ctx, user)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	s.set(api.Order{ID: 1, Status: api.OrderStatusPending})
	changes, err = w.Poll(ctx, user)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	// Back to confirmed: the notification for it already exists.
	s.set(api.Order{ID: 1, Status: api.OrderStatusConfirmed})
	changes, err = w.Poll(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, changes)

	notes, err := db.ListNotifications(user, 10)
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	known, err := db.GetWatchedOrders(user)
	require.NoError(t, err)
	assert.Equal(t, api.OrderStatusConfirmed, known[1].Status, "status is still tracked")
}

func TestPoll_UsersAreSeparate(t *testing.T) {
	s := &shop{}
	s.set(api.Order{ID: 1, Status: api.OrderStatusPending})
	w, db := newWatcher(t, s)
	ctx := context.Background()

	_, err := w.Poll(ctx, "ann@example.com")
	require.NoError(t, err)

	s.set(api.Order{ID: 1, Status: api.OrderStatusShipped})
	changes, err := w.Poll(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Empty(t, changes, "bob has never seen order 1")
	assert.Zero(t, db.UnreadNotificationCount("ann@example.com"))
}

func TestPoll_ErrorLeavesStateAlone(t *testing.T) {
	s := &shop{}
	s.set(api.Order{ID: 1, Status: api.OrderStatusPending})
	w, db := newWatcher(t, s)

	s.mu.Lock()
	s.fail = true
	s.mu.Unlock()

	_, err := w.Poll(context.Background(), "ann@example.com")
	require.Error(t, err)
	assert.True(t, api.IsStatus(err, http.StatusBadGateway))

	known, err := db.GetWatchedOrders("ann@example.com")
	require.NoError(t, err)
	assert.Empty(t, known)
}

func TestStartStop(t *testing.T) {
	s := &shop{}
	s.set(api.Order{ID: 1, Status: api.OrderStatusPending})
	w, db := newWatcher(t, s)
	rec := &recorder{}

	w.Start(rec, "ann@example.com")
	user, running := w.Running()
	assert.True(t, running)
	assert.Equal(t, "ann@example.com", user)

	// The first poll runs immediately.
	require.Eventually(t, func() bool {
		known, err := db.GetWatchedOrders("ann@example.com")
		return err == nil && len(known) == 1
	}, 5*time.Second, 10*time.Millisecond)

	w.Stop()
	_, running = w.Running()
	assert.False(t, running)
	assert.Zero(t, rec.count(), "seeding does not notify")

	w.Stop()
}

func TestLoop_SendsNotification(t *testing.T) {
	s := &shop{}
	s.set(api.Order{ID: 7, Status: api.OrderStatusPending})
	w, db := newWatcher(t, s)
	w.interval = 20 * time.Millisecond
	ctx := context.Background()

	_, err := w.Poll(ctx, "ann@example.com")
	require.NoError(t, err)
	s.set(api.Order{ID: 7, Status: api.OrderStatusDelivered})

	rec := &recorder{}
	w.Start(rec, "ann@example.com")
	t.Cleanup(w.Stop)

	require.Eventually(t, func() bool { return rec.count() > 0 }, 5*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	msg, ok := rec.msgs[0].(messages.NewNotificationMsg)
	rec.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, 1, msg.Changes)
	assert.Equal(t, 1, msg.UnreadCount)
	assert.Equal(t, 1, db.UnreadNotificationCount("ann@example.com"))
}
