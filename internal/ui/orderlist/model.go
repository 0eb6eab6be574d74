package orderlist

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/render"
	"github.com/fragmede/shopterm/internal/ui/messages"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B")).Bold(true).Padding(1, 0)
	rowStyle      = lipgloss.NewStyle().Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("#333333")).Padding(0, 1)
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
)

// StatusStyle colors an order status.
func StatusStyle(s api.OrderStatus) lipgloss.Style {
	c := "#CCCCCC"
	switch s {
	case api.OrderStatusPending:
		c = "#FFD700"
	case api.OrderStatusConfirmed, api.OrderStatusShipped:
		c = "#00BFFF"
	case api.OrderStatusDelivered, api.OrderStatusCompleted:
		c = "#2E9E6B"
	case api.OrderStatusCancelled:
		c = "#FF5555"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Bold(true)
}

// Model lists the user's orders, newest first as served.
type Model struct {
	orders   []api.Order
	selected int
	offset   int
	client   *api.Client
	loading  bool
	err      string
	width    int
	height   int
}

func New(client *api.Client) Model {
	return Model{client: client, loading: true}
}

// Init fetches the orders.
func (m Model) Init() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		orders, err := client.ListOrders(context.Background())
		return messages.OrdersLoadedMsg{Orders: orders, Err: err}
	}
}

func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.OrdersLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = api.Message(msg.Err)
			return m, nil
		}
		m.err = ""
		m.orders = msg.Orders
		if m.selected >= len(m.orders) {
			m.selected = max(len(m.orders)-1, 0)
		}
		return m, nil

	case messages.NewNotificationMsg:
		return m, m.Init()

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.selected < len(m.orders)-1 {
				m.selected++
			}
		case "k", "up":
			if m.selected > 0 {
				m.selected--
			}
		case "g", "home":
			m.selected = 0
		case "G", "end":
			m.selected = max(len(m.orders)-1, 0)
		case "r":
			m.loading = true
			return m, m.Init()
		case "enter":
			if m.selected < len(m.orders) {
				id := m.orders[m.selected].ID
				return m, func() tea.Msg { return messages.OpenOrderMsg{OrderID: id} }
			}
		}
		m.clampOffset()
	}
	return m, nil
}

func (m *Model) visibleRows() int {
	return max(m.height-4, 1)
}

func (m *Model) clampOffset() {
	rows := m.visibleRows()
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+rows {
		m.offset = m.selected - rows + 1
	}
}

func (m Model) View() string {
	var sb strings.Builder
	title := "Orders"
	if m.loading {
		title += " (loading...)"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")

	if m.err != "" {
		sb.WriteString(errorStyle.Render("  "+m.err) + "\n")
		return sb.String()
	}
	if len(m.orders) == 0 && !m.loading {
		sb.WriteString("\n  No orders yet.\n")
		return sb.String()
	}

	end := min(m.offset+m.visibleRows(), len(m.orders))
	for i := m.offset; i < end; i++ {
		o := m.orders[i]
		items := 0
		for _, it := range o.Items {
			items += it.Quantity
		}
		line := fmt.Sprintf("#%-6d %-22s %10s  %s",
			o.ID,
			StatusStyle(o.Status).Render(string(o.Status)),
			render.FormatPrice(o.TotalPrice),
			metaStyle.Render(fmt.Sprintf("%d items · %s · %s", items, o.DeliveryMethod, render.FormatDate(o.CreatedAt))),
		)
		if i == m.selected {
			sb.WriteString(selectedStyle.Render(line))
		} else {
			sb.WriteString(rowStyle.Render(line))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
