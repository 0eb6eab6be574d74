// Package watch polls the signed-in user's orders in the background and
// records a notification whenever an order changes status.
package watch

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/cache"
	"github.com/fragmede/shopterm/internal/ui/messages"
)

// Sender delivers messages to the TUI. *tea.Program satisfies it.
type Sender interface {
	Send(tea.Msg)
}

// Change is one observed status transition.
type Change struct {
	OrderID int
	From    api.OrderStatus
	To      api.OrderStatus
}

// Watcher polls GET /orders/ for one user at a time.
type Watcher struct {
	client   *api.Client
	cache    *cache.DB
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	user   string
}

// New creates a stopped watcher.
func New(client *api.Client, db *cache.DB, interval time.Duration, log zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watcher{
		client:   client,
		cache:    db,
		interval: interval,
		log:      log.With().Str("component", "watch").Logger(),
		now:      time.Now,
	}
}

// Start begins polling for userEmail, replacing any previous loop. The first
// poll runs immediately and only records the current statuses.
func (w *Watcher) Start(sender Sender, userEmail string) {
	w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	w.mu.Lock()
	w.cancel = cancel
	w.done = done
	w.user = userEmail
	w.mu.Unlock()

	w.log.Debug().Str("user", userEmail).Dur("interval", w.interval).Msg("order watcher started")
	go w.loop(ctx, done, sender, userEmail)
}

// Stop halts polling and waits for an in-flight poll to finish. It is safe
// to call on a stopped watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done, w.user = nil, nil, ""
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	w.log.Debug().Msg("order watcher stopped")
}

// Running reports whether a loop is active, and for whom.
func (w *Watcher) Running() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.user, w.cancel != nil
}

func (w *Watcher) loop(ctx context.Context, done chan struct{}, sender Sender, userEmail string) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		changes, err := w.Poll(ctx, userEmail)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Warn().Err(err).Msg("polling orders")
		} else if len(changes) > 0 && sender != nil {
			msg := messages.NewNotificationMsg{
				UnreadCount: w.cache.UnreadNotificationCount(userEmail),
				Changes:     len(changes),
			}
			// The UI may be blocked in Stop waiting for this loop.
			go sender.Send(msg)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll fetches the user's orders once, records their statuses and returns
// the transitions that produced a new notification. Orders seen for the
// first time produce no change, and neither does returning to a status the
// user was already notified about.
func (w *Watcher) Poll(ctx context.Context, userEmail string) ([]Change, error) {
	orders, err := w.client.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	known, err := w.cache.GetWatchedOrders(userEmail)
	if err != nil {
		return nil, err
	}

	now := w.now()
	var changes []Change
	for _, o := range orders {
		prev, seen := known[o.ID]
		if seen && prev.Status != o.Status {
			c := Change{OrderID: o.ID, From: prev.Status, To: o.Status}
			added, err := w.cache.AddNotification(userEmail, o.ID, c.From, c.To, now)
			switch {
			case err != nil:
				w.log.Error().Err(err).Int("order", o.ID).Msg("recording notification")
				continue
			case added:
				w.log.Info().Int("order", o.ID).Str("from", string(c.From)).Str("to", string(c.To)).Msg("order status changed")
				changes = append(changes, c)
			default:
				w.log.Debug().Int("order", o.ID).Str("to", string(c.To)).Msg("status already notified")
			}
		}
		if err := w.cache.UpsertWatchedOrder(userEmail, cache.WatchedOrder{
			OrderID:     o.ID,
			Status:      o.Status,
			LastChecked: now,
		}); err != nil {
			w.log.Error().Err(err).Int("order", o.ID).Msg("recording order status")
		}
	}
	return changes, nil
}
