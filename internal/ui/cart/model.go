package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/render"
	"github.com/fragmede/shopterm/internal/ui/messages"
)

var (
	selectedBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B"))
	normalBorderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	nameStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	metaStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	headerStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B")).Bold(true)
	totalStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorMsgStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	warnStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
)

type itemOffset struct {
	startLine int
	endLine   int
}

// Model shows the cart with one selectable line per item.
type Model struct {
	viewport viewport.Model
	cart     *api.Cart
	stock    map[int]int
	offsets  []itemOffset
	cursor   int
	client   *api.Client
	loading  bool
	busy     bool
	err      string
	width    int
	height   int
}

// New creates a cart view.
func New(client *api.Client) Model {
	return Model{
		viewport: viewport.New(0, 0),
		client:   client,
	}
}

// Init fetches the cart.
func (m Model) Init() tea.Cmd {
	return m.loadCart()
}

// Load marks the view loading and fetches the cart.
func (m Model) Load() (Model, tea.Cmd) {
	m.loading = true
	return m, m.loadCart()
}

// Cart returns the last loaded cart, or nil.
func (m Model) Cart() *api.Cart {
	return m.cart
}

// SetSize updates viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = h - 4 // title, blank, total, hint
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
	m.rebuildContent()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.CartLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = api.Message(msg.Err)
			m.rebuildContent()
			return m, nil
		}
		m.err = ""
		if msg.Stock != nil {
			m.stock = msg.Stock
		}
		m.setCart(msg.Cart)
		return m, nil

	case messages.CartUpdatedMsg:
		m.busy = false
		if msg.Err != nil {
			m.err = api.Message(msg.Err)
			m.rebuildContent()
			return m, nil
		}
		m.err = ""
		m.setCart(msg.Cart)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.cart != nil && m.cursor < len(m.cart.Items)-1 {
				m.cursor++
				m.rebuildContent()
				m.scrollToCursor()
			}
			return m, nil
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
				m.rebuildContent()
				m.scrollToCursor()
			}
			return m, nil
		case "+", "=":
			return m.changeQuantity(1)
		case "-", "_":
			return m.changeQuantity(-1)
		case "d", "delete", "x":
			item, ok := m.selected()
			if !ok || m.busy {
				return m, nil
			}
			m.busy = true
			return m, m.mutate("remove", func(ctx context.Context) (*api.Cart, error) {
				return m.client.RemoveCartItem(ctx, item.ID)
			})
		case "enter":
			if item, ok := m.selected(); ok {
				id := item.Product
				return m, func() tea.Msg { return messages.OpenProductMsg{ProductID: id} }
			}
			return m, nil
		case "c":
			if m.cart == nil || len(m.cart.Items) == 0 {
				return m, func() tea.Msg { return messages.StatusMsg{Text: "Your cart is empty", IsError: true} }
			}
			return m, func() tea.Msg { return messages.OpenCheckoutMsg{} }
		case "r":
			return m.Load()
		case "g", "home":
			m.cursor = 0
			m.rebuildContent()
			m.viewport.GotoTop()
			return m, nil
		case "G", "end":
			if m.cart != nil && len(m.cart.Items) > 0 {
				m.cursor = len(m.cart.Items) - 1
				m.rebuildContent()
				m.viewport.GotoBottom()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// changeQuantity adjusts the selected line. Going below one removes it.
func (m Model) changeQuantity(delta int) (Model, tea.Cmd) {
	item, ok := m.selected()
	if !ok || m.busy {
		return m, nil
	}
	qty := item.Quantity + delta
	m.busy = true
	if qty < 1 {
		return m, m.mutate("remove", func(ctx context.Context) (*api.Cart, error) {
			return m.client.RemoveCartItem(ctx, item.ID)
		})
	}
	return m, m.mutate("update", func(ctx context.Context) (*api.Cart, error) {
		return m.client.UpdateCartItem(ctx, item.ID, qty)
	})
}

func (m Model) mutate(action string, fn func(context.Context) (*api.Cart, error)) tea.Cmd {
	return func() tea.Msg {
		c, err := fn(context.Background())
		return messages.CartUpdatedMsg{Cart: c, Action: action, Err: err}
	}
}

func (m Model) selected() (api.CartItem, bool) {
	if m.cart == nil || m.cursor < 0 || m.cursor >= len(m.cart.Items) {
		return api.CartItem{}, false
	}
	return m.cart.Items[m.cursor], true
}

func (m *Model) setCart(c *api.Cart) {
	m.cart = c
	if c != nil && m.cursor >= len(c.Items) {
		m.cursor = max(len(c.Items)-1, 0)
	}
	m.rebuildContent()
}

// View renders the cart.
func (m Model) View() string {
	title := "Cart"
	if m.cart != nil {
		title += fmt.Sprintf(" (%d items)", m.cart.ItemCount())
	}
	if m.loading {
		title += " (loading...)"
	} else if m.busy {
		title += " (updating...)"
	}

	var footer string
	if m.cart != nil && len(m.cart.Items) > 0 {
		footer = totalStyle.Render("Total: "+render.FormatCents(m.cart.TotalCents())) + "\n"
	} else {
		footer = "\n"
	}
	if m.err != "" {
		footer += errorMsgStyle.Render(m.err)
	} else {
		footer += metaStyle.Render("+/-:quantity  d:remove  enter:product  c:checkout  r:refresh")
	}
	return headerStyle.Render(title) + "\n\n" + m.viewport.View() + "\n" + footer
}

func (m *Model) rebuildContent() {
	if m.cart == nil || len(m.cart.Items) == 0 {
		m.offsets = nil
		switch {
		case m.loading || (m.cart == nil && m.err == ""):
			m.viewport.SetContent("  Loading cart...")
		case m.cart == nil:
			m.viewport.SetContent("")
		default:
			m.viewport.SetContent("  Your cart is empty. Press 1 to browse products.")
		}
		return
	}

	var sb strings.Builder
	m.offsets = make([]itemOffset, len(m.cart.Items))
	lineCount := 0
	for i, it := range m.cart.Items {
		start := lineCount
		border := normalBorderStyle.Render("▎")
		if i == m.cursor {
			border = selectedBorderStyle.Render("▎")
		}
		sb.WriteString(border + " " + nameStyle.Render(it.ProductName) + "\n")
		sb.WriteString(border + " " + metaStyle.Render(fmt.Sprintf("%s × %d = %s",
			render.FormatPrice(it.ProductPrice), it.Quantity, render.FormatCents(it.SubtotalCents()))))
		if warn := stockWarning(it, m.stock); warn != "" {
			sb.WriteString("  " + warnStyle.Render(warn))
		}
		sb.WriteString("\n\n")
		lineCount += 3
		m.offsets[i] = itemOffset{startLine: start, endLine: lineCount - 1}
	}
	m.viewport.SetContent(sb.String())
}

func (m *Model) scrollToCursor() {
	if m.cursor >= len(m.offsets) {
		return
	}
	ri := m.offsets[m.cursor]
	if ri.startLine < m.viewport.YOffset {
		m.viewport.SetYOffset(ri.startLine)
	}
	if ri.endLine >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(ri.endLine - m.viewport.Height + 1)
	}
}

// stockWarning flags lines asking for more than is currently available.
func stockWarning(it api.CartItem, stock map[int]int) string {
	n, ok := stock[it.Product]
	switch {
	case !ok:
		return ""
	case n == 0:
		return "out of stock"
	case it.Quantity > n:
		return fmt.Sprintf("only %d left", n)
	}
	return ""
}

func (m Model) loadCart() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx := context.Background()
		c, err := client.GetCart(ctx)
		if err != nil {
			return messages.CartLoadedMsg{Err: err}
		}
		return messages.CartLoadedMsg{Cart: c, Stock: CurrentStock(ctx, client, c)}
	}
}

// CurrentStock looks up live stock for every product in the cart. Products
// that fail to load are left out.
func CurrentStock(ctx context.Context, client *api.Client, c *api.Cart) map[int]int {
	if c == nil || len(c.Items) == 0 {
		return nil
	}
	ids := make([]int, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.Product
	}
	products, err := client.BatchGetProducts(ctx, ids)
	if err != nil {
		return nil
	}
	stock := make(map[int]int, len(products))
	for _, p := range products {
		if p != nil {
			stock[p.ID] = p.Stock
		}
	}
	return stock
}
