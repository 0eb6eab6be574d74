package statusbar

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	barStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#FFFFFF"))

	activeTabStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#2E9E6B")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#555555")).
				Foreground(lipgloss.Color("#CCCCCC")).
				Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	notifyStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#FF0000")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	statusTextStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#AAAAAA")).
			Padding(0, 1)

	errorTextStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#FF5555")).
			Padding(0, 1)

	offlineStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#8B0000")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)
)

// Tab identifies a top-level section.
type Tab int

const (
	TabProducts Tab = iota
	TabCart
	TabOrders
	TabAccount
)

var tabs = []struct {
	label string
	tab   Tab
}{
	{"1 Products", TabProducts},
	{"2 Cart", TabCart},
	{"3 Orders", TabOrders},
	{"4 Account", TabAccount},
}

// Model is the status bar at the bottom of the screen.
type Model struct {
	width       int
	active      Tab
	user        string
	cartCount   int
	unreadCount int
	statusText  string
	statusError bool
	offline     bool
}

// New creates a new status bar.
func New() Model {
	return Model{active: TabProducts}
}

// SetSize sets the width.
func (m *Model) SetSize(w int) {
	m.width = w
}

// SetActiveTab highlights a tab.
func (m *Model) SetActiveTab(t Tab) {
	m.active = t
}

// SetUser sets the signed-in user's display name.
func (m *Model) SetUser(name string) {
	m.user = name
}

// SetCartCount sets the number of units in the cart.
func (m *Model) SetCartCount(n int) {
	m.cartCount = n
}

// SetUnread sets the unread notification count.
func (m *Model) SetUnread(count int) {
	m.unreadCount = count
}

// SetStatus sets a temporary status message.
func (m *Model) SetStatus(text string, isError bool) {
	m.statusText = text
	m.statusError = isError
}

// SetOffline sets the offline indicator.
func (m *Model) SetOffline(offline bool) {
	m.offline = offline
}

// Update is a no-op for the status bar.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the status bar.
func (m Model) View() string {
	var tabsStr string
	for _, t := range tabs {
		label := t.label
		if t.tab == TabCart && m.cartCount > 0 {
			label = fmt.Sprintf("%s (%d)", label, m.cartCount)
		}
		if t.tab == m.active {
			tabsStr += activeTabStyle.Render(label)
		} else {
			tabsStr += inactiveTabStyle.Render(label)
		}
	}

	var right string
	if m.statusText != "" {
		if m.statusError {
			right += errorTextStyle.Render(m.statusText)
		} else {
			right += statusTextStyle.Render(m.statusText)
		}
	}
	if m.offline {
		right += offlineStyle.Render("OFFLINE")
	}
	if m.unreadCount > 0 {
		right += notifyStyle.Render(fmt.Sprintf(" %d ", m.unreadCount))
	}
	if m.user != "" {
		right += userStyle.Render(m.user)
	} else {
		right += statusTextStyle.Render("L:login")
	}

	tabsWidth := lipgloss.Width(tabsStr)
	rightWidth := lipgloss.Width(right)
	gap := m.width - tabsWidth - rightWidth
	if gap < 0 {
		gap = 0
	}
	mid := barStyle.Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, tabsStr, mid, right)
}
