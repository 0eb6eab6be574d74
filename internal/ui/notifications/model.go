package notifications

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/shopterm/internal/cache"
	"github.com/fragmede/shopterm/internal/render"
	"github.com/fragmede/shopterm/internal/ui/messages"
)

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B")).Bold(true).Padding(1, 0)
	notifStyle     = lipgloss.NewStyle().Padding(0, 1)
	selectedStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#333333")).Padding(0, 1)
	orderStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B")).Bold(true)
	unreadDotStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true)
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

const limit = 50

// Model lists order status changes recorded by the watcher.
type Model struct {
	notifications []cache.Notification
	selectedIdx   int
	db            *cache.DB
	userEmail     string
	err           error
	width         int
	height        int
}

// New creates a notifications view for one user.
func New(db *cache.DB, userEmail string) Model {
	return Model{db: db, userEmail: userEmail}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Load refreshes the notification list from the database.
func (m *Model) Load() {
	m.notifications, m.err = m.db.ListNotifications(m.userEmail, limit)
	if m.selectedIdx >= len(m.notifications) {
		m.selectedIdx = max(len(m.notifications)-1, 0)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.NewNotificationMsg:
		m.Load()
	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.selectedIdx < len(m.notifications)-1 {
				m.selectedIdx++
			}
		case "k", "up":
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}
		case "a":
			for i, n := range m.notifications {
				if !n.Read {
					m.db.MarkNotificationRead(n.ID)
					m.notifications[i].Read = true
				}
			}
		case "enter":
			if m.selectedIdx >= 0 && m.selectedIdx < len(m.notifications) {
				n := m.notifications[m.selectedIdx]
				m.db.MarkNotificationRead(n.ID)
				m.notifications[m.selectedIdx].Read = true
				return m, func() tea.Msg {
					return messages.OpenOrderMsg{OrderID: n.OrderID}
				}
			}
		}
	}
	return m, nil
}

// View renders the notifications list.
func (m Model) View() string {
	var sb strings.Builder

	title := "Notifications"
	if n := m.UnreadCount(); n > 0 {
		title += fmt.Sprintf(" (%d unread)", n)
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")

	if m.err != nil {
		sb.WriteString("\n  Could not load notifications: " + m.err.Error() + "\n")
		return sb.String()
	}
	if len(m.notifications) == 0 {
		sb.WriteString("\n  No order updates yet.\n")
		return sb.String()
	}

	for i, n := range m.notifications {
		var line strings.Builder
		if !n.Read {
			line.WriteString(unreadDotStyle.Render("● "))
		} else {
			line.WriteString("  ")
		}
		line.WriteString(orderStyle.Render(fmt.Sprintf("Order #%d", n.OrderID)))
		line.WriteString(fmt.Sprintf(" %s → %s", n.FromStatus, n.ToStatus))
		line.WriteString(metaStyle.Render("  " + render.TimeAgo(n.CreatedAt)))

		entry := line.String()
		if i == m.selectedIdx {
			entry = selectedStyle.Render(entry)
		} else {
			entry = notifStyle.Render(entry)
		}
		sb.WriteString(entry + "\n")
	}
	sb.WriteString("\n" + metaStyle.Render("  enter:open order  a:mark all read"))

	return sb.String()
}

// UnreadCount returns the number of unread notifications.
func (m Model) UnreadCount() int {
	count := 0
	for _, n := range m.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}
