package orderview

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/forms"
	"github.com/fragmede/shopterm/internal/render"
	"github.com/fragmede/shopterm/internal/ui/messages"
	"github.com/fragmede/shopterm/internal/ui/orderlist"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B")).Bold(true).Padding(1, 1, 0, 1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Bold(true).Width(12)
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B")).Bold(true)
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
)

// Model shows one order with its items and status history.
type Model struct {
	viewport viewport.Model
	orderID  int
	order    *api.Order
	client   *api.Client
	loading  bool
	err      string
	width    int
	height   int
}

func New(orderID int, client *api.Client) Model {
	vp := viewport.New(0, 0)
	vp.SetContent("  Loading order...")
	return Model{viewport: vp, orderID: orderID, client: client, loading: true}
}

func (m Model) Init() tea.Cmd {
	id := m.orderID
	client := m.client
	return func() tea.Msg {
		o, err := client.GetOrder(context.Background(), id)
		return messages.OrderLoadedMsg{OrderID: id, Order: o, Err: err}
	}
}

func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = max(h-2, 1)
	m.rebuild()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.OrderLoadedMsg:
		if msg.OrderID != m.orderID {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			m.err = api.Message(msg.Err)
		} else {
			m.err = ""
			m.order = msg.Order
		}
		m.rebuild()
		return m, nil
	case messages.NewNotificationMsg:
		return m, m.Init()
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.Init()
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) rebuild() {
	if m.err != "" {
		m.viewport.SetContent("  " + errorStyle.Render(m.err))
		return
	}
	o := m.order
	if o == nil {
		return
	}

	var sb strings.Builder
	row := func(label, value string) {
		sb.WriteString("  " + labelStyle.Render(label) + value + "\n")
	}
	row("Status", orderlist.StatusStyle(o.Status).Render(string(o.Status)))
	row("Placed", render.FormatDate(o.CreatedAt)+" ("+render.TimeAgo(o.CreatedAt)+")")
	row("Method", string(o.DeliveryMethod))
	row("Phone", o.PhoneNumber)
	switch o.DeliveryMethod {
	case api.DeliveryMethodDelivery:
		row("Address", o.DeliveryAddress)
		if o.DeliveryTime != nil {
			row("Deliver at", o.DeliveryTime.Local().Format(forms.DateTimeLayout))
		}
	case api.DeliveryMethodPickup:
		row("Store", o.StoreAddress)
	}
	row("Total", render.FormatPrice(o.TotalPrice))

	sb.WriteString("\n  " + sectionStyle.Render("Items") + "\n")
	for _, it := range o.Items {
		sb.WriteString(fmt.Sprintf("  %-40s %3d × %s\n", render.Truncate(it.ProductName, 40), it.Quantity, render.FormatPrice(it.Price)))
	}

	if len(o.StatusHistory) > 0 {
		sb.WriteString("\n  " + sectionStyle.Render("History") + "\n")
		for _, h := range o.StatusHistory {
			line := fmt.Sprintf("  %s  %s → %s", render.FormatDate(h.CreatedAt), h.FromStatus, h.ToStatus)
			if h.Comment != "" {
				line += metaStyle.Render("  " + h.Comment)
			}
			sb.WriteString(line + "\n")
		}
	}
	m.viewport.SetContent(sb.String())
}

func (m Model) View() string {
	title := fmt.Sprintf("Order #%d", m.orderID)
	if m.loading {
		title += " (loading...)"
	}
	return titleStyle.Render(title) + "\n" + m.viewport.View()
}
