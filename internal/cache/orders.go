package cache

import (
	"time"

	"github.com/fragmede/shopterm/internal/api"
)

// WatchedOrder is the last status seen for one of the user's orders.
type WatchedOrder struct {
	OrderID     int
	Status      api.OrderStatus
	LastChecked time.Time
}

// GetWatchedOrders returns the known order statuses for a user, keyed by
// order ID.
func (d *DB) GetWatchedOrders(userEmail string) (map[int]WatchedOrder, error) {
	rows, err := d.db.Query(`SELECT order_id, status, last_checked FROM order_watch WHERE user_email = ?`, userEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int]WatchedOrder)
	for rows.Next() {
		var wo WatchedOrder
		var status string
		var lastChecked int64
		if err := rows.Scan(&wo.OrderID, &status, &lastChecked); err != nil {
			continue
		}
		wo.Status = api.OrderStatus(status)
		wo.LastChecked = time.Unix(lastChecked, 0)
		result[wo.OrderID] = wo
	}
	return result, rows.Err()
}

// UpsertWatchedOrder records the latest status of an order.
func (d *DB) UpsertWatchedOrder(userEmail string, wo WatchedOrder) error {
	_, err := d.db.Exec(`INSERT OR REPLACE INTO order_watch (user_email, order_id, status, last_checked)
		VALUES (?, ?, ?, ?)`,
		userEmail, wo.OrderID, string(wo.Status), wo.LastChecked.Unix())
	return err
}

// Notification is an order status change the user has not necessarily seen.
type Notification struct {
	ID         int
	OrderID    int
	FromStatus api.OrderStatus
	ToStatus   api.OrderStatus
	CreatedAt  time.Time
	Read       bool
}

// AddNotification inserts a status-change notification and reports whether
// a row was added. Repeated changes to the same status are ignored.
func (d *DB) AddNotification(userEmail string, orderID int, from, to api.OrderStatus, createdAt time.Time) (bool, error) {
	res, err := d.db.Exec(`INSERT OR IGNORE INTO notifications
		(user_email, order_id, from_status, to_status, created_at, read)
		VALUES (?, ?, ?, ?, ?, 0)`,
		userEmail, orderID, string(from), string(to), createdAt.Unix())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListNotifications returns the newest notifications for a user.
func (d *DB) ListNotifications(userEmail string, limit int) ([]Notification, error) {
	rows, err := d.db.Query(`SELECT id, order_id, from_status, to_status, created_at, read
		FROM notifications WHERE user_email = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userEmail, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		var n Notification
		var from, to string
		var createdAt int64
		var readInt int
		if err := rows.Scan(&n.ID, &n.OrderID, &from, &to, &createdAt, &readInt); err != nil {
			continue
		}
		n.FromStatus = api.OrderStatus(from)
		n.ToStatus = api.OrderStatus(to)
		n.CreatedAt = time.Unix(createdAt, 0)
		n.Read = readInt != 0
		result = append(result, n)
	}
	return result, rows.Err()
}

// MarkNotificationRead marks one notification as read.
func (d *DB) MarkNotificationRead(id int) error {
	_, err := d.db.Exec(`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	return err
}

// UnreadNotificationCount returns the count of unread notifications.
func (d *DB) UnreadNotificationCount(userEmail string) int {
	var count int
	d.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE user_email = ? AND read = 0`, userEmail).Scan(&count)
	return count
}
