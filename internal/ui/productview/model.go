package productview

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/cache"
	"github.com/fragmede/shopterm/internal/config"
	"github.com/fragmede/shopterm/internal/forms"
	"github.com/fragmede/shopterm/internal/render"
	"github.com/fragmede/shopterm/internal/ui/messages"
)

var (
	nameStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Padding(0, 1)
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Padding(0, 1)
	priceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B")).Bold(true)
	oldPriceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Strikethrough(true)
	sectionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B")).Bold(true)
	authorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	selStyle      = lipgloss.NewStyle().Background(lipgloss.Color("#333333"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	separator     = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
)

const scrollStep = 3

type reviewOffset struct {
	startLine int
	endLine   int
}

type reviewsPageMsg struct {
	productID int
	page      int
	reviews   *api.Page[api.Review]
	err       error
}

// Model is the product detail view: description, attributes and reviews.
type Model struct {
	viewport    viewport.Model
	qty         textinput.Model
	askQty      bool
	qtyErr      string
	productID   int
	product     *api.Product
	reviews     []api.Review
	reviewCount int
	reviewPage  int
	moreReviews bool
	offsets     []reviewOffset
	selectedIdx int
	stale       bool
	loadErr     string
	client      *api.Client
	cache       *cache.DB
	cfg         config.Config
	validator   *forms.Validator
	loading     bool
	width       int
	height      int
}

// New creates a product view for productID.
func New(productID int, cfg config.Config, client *api.Client, db *cache.DB) Model {
	vp := viewport.New(0, 0)
	vp.SetContent("Loading...")

	ti := textinput.New()
	ti.Prompt = "quantity: "
	ti.CharLimit = 4
	ti.Width = 6

	return Model{
		viewport:  vp,
		qty:       ti,
		productID: productID,
		client:    client,
		cache:     db,
		cfg:       cfg,
		validator: forms.New(),
		loading:   true,
	}
}

// Init loads the product and its first page of reviews.
func (m Model) Init() tea.Cmd {
	return m.load(false)
}

func (m Model) load(force bool) tea.Cmd {
	id := m.productID
	client := m.client
	db := m.cache
	ttl := m.cfg.ProductTTL
	return func() tea.Msg {
		return LoadProduct(context.Background(), client, db, ttl, id, force)
	}
}

// ProductID returns the id this view shows.
func (m Model) ProductID() int {
	return m.productID
}

// Product returns the loaded product, or nil.
func (m Model) Product() *api.Product {
	return m.product
}

// Prompting reports whether the quantity prompt has focus.
func (m Model) Prompting() bool {
	return m.askQty
}

// SetSize updates viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.resizeViewport()
	m.rebuildContent()
}

func (m *Model) resizeViewport() {
	header := m.renderHeader()
	headerLines := strings.Count(header, "\n") + 1
	m.viewport.Height = m.height - headerLines - 1
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.ProductLoadedMsg:
		if msg.ProductID != m.productID {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			m.loadErr = api.Message(msg.Err)
			m.viewport.SetContent("  " + errStyle.Render("Error loading product: "+m.loadErr))
			return m, nil
		}
		m.loadErr = ""
		m.stale = msg.Stale
		m.product = msg.Detail.Product
		m.reviews = nil
		m.reviewCount = 0
		m.moreReviews = false
		m.reviewPage = 1
		if r := msg.Detail.Reviews; r != nil {
			m.reviews = r.Results
			m.reviewCount = r.Count
			m.moreReviews = r.HasNext()
		}
		m.selectedIdx = 0
		m.resizeViewport()
		m.rebuildContent()
		return m, nil

	case reviewsPageMsg:
		if msg.productID != m.productID {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			return m, statusCmd("Could not load more reviews: "+api.Message(msg.err), true)
		}
		m.reviewPage = msg.page
		m.reviews = append(m.reviews, msg.reviews.Results...)
		m.moreReviews = msg.reviews.HasNext()
		m.rebuildContent()
		return m, nil

	case messages.CartUpdatedMsg:
		if msg.Err == nil {
			m.askQty = false
		} else {
			m.qtyErr = api.Message(msg.Err)
		}
		return m, nil

	case messages.ReviewResultMsg:
		if msg.ProductID == m.productID && msg.Err == nil {
			m.loading = true
			return m, m.load(true)
		}
		return m, nil

	case tea.KeyMsg:
		if m.askQty {
			return m.updateQuantity(msg)
		}
		switch msg.String() {
		case "j", "down":
			if m.selectedIdx >= 0 && m.selectedIdx < len(m.offsets) {
				off := m.offsets[m.selectedIdx]
				if off.endLine >= m.viewport.YOffset+m.viewport.Height {
					m.viewport.SetYOffset(m.viewport.YOffset + scrollStep)
					return m, nil
				}
			}
			if m.selectedIdx < len(m.reviews)-1 {
				m.selectedIdx++
				m.rebuildContent()
				m.scrollToCursor()
			} else {
				m.viewport.SetYOffset(m.viewport.YOffset + scrollStep)
			}
			return m, nil
		case "k", "up":
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.rebuildContent()
				m.scrollToCursor()
			} else {
				m.viewport.SetYOffset(m.viewport.YOffset - scrollStep)
			}
			return m, nil
		case "g", "home":
			m.selectedIdx = 0
			m.rebuildContent()
			m.viewport.GotoTop()
			return m, nil
		case "G", "end":
			if len(m.reviews) > 0 {
				m.selectedIdx = len(m.reviews) - 1
			}
			m.rebuildContent()
			m.viewport.GotoBottom()
			return m, nil
		case "n":
			if m.moreReviews && !m.loading {
				m.loading = true
				return m, m.loadReviews(m.reviewPage + 1)
			}
			return m, nil
		case "a":
			if m.product == nil {
				return m, nil
			}
			if !m.product.InStock() {
				return m, statusCmd("Out of stock", true)
			}
			if !m.client.Session().IsAuthenticated() {
				return m, func() tea.Msg { return messages.OpenLoginMsg{} }
			}
			m.askQty = true
			m.qtyErr = ""
			m.qty.SetValue("1")
			m.qty.CursorEnd()
			return m, m.qty.Focus()
		case "w":
			if m.product == nil {
				return m, nil
			}
			if !m.client.Session().IsAuthenticated() {
				return m, func() tea.Msg { return messages.OpenLoginMsg{} }
			}
			id, name := m.product.ID, m.product.Name
			return m, func() tea.Msg {
				return messages.OpenReviewMsg{ProductID: id, ProductName: name}
			}
		case "ctrl+r", "r":
			m.loading = true
			m.viewport.SetContent("  Refreshing...")
			return m, m.load(true)
		case "ctrl+d", "pgdown":
			m.viewport.HalfViewDown()
			return m, nil
		case "ctrl+u", "pgup":
			m.viewport.HalfViewUp()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateQuantity(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.askQty = false
		m.qty.Blur()
		return m, nil
	case "enter":
		n, err := strconv.Atoi(strings.TrimSpace(m.qty.Value()))
		if err != nil {
			m.qtyErr = "Enter a whole number"
			return m, nil
		}
		if err := m.validator.Validate(forms.Quantity{Quantity: n, Stock: m.product.Stock}); err != nil {
			if fe, ok := err.(forms.Errors); ok {
				m.qtyErr = fe.Field("quantity")
			} else {
				m.qtyErr = err.Error()
			}
			return m, nil
		}
		m.qty.Blur()
		m.qtyErr = ""
		client := m.client
		productID := m.product.ID
		return m, func() tea.Msg {
			cart, err := client.AddToCart(context.Background(), productID, n)
			return messages.CartUpdatedMsg{Cart: cart, Action: "add", Err: err}
		}
	}
	var cmd tea.Cmd
	m.qty, cmd = m.qty.Update(msg)
	return m, cmd
}

func (m Model) loadReviews(page int) tea.Cmd {
	id := m.productID
	client := m.client
	return func() tea.Msg {
		r, err := client.ListReviews(context.Background(), id, page)
		return reviewsPageMsg{productID: id, page: page, reviews: r, err: err}
	}
}

// View renders the product view.
func (m Model) View() string {
	footer := dimStyle.Render(" j/k:reviews  a:add to cart  w:write review  n:more reviews  r:refresh")
	if m.askQty {
		footer = " " + m.qty.View()
		if m.qtyErr != "" {
			footer += "  " + errStyle.Render(m.qtyErr)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.viewport.View(), footer)
}

func (m *Model) rebuildContent() {
	if m.product == nil {
		if m.loading {
			m.viewport.SetContent("  Loading product...")
		}
		return
	}

	width := m.width - 4
	if width < 20 {
		width = 20
	}

	var sb strings.Builder
	lines := 0
	write := func(s string) {
		sb.WriteString(s)
		sb.WriteString("\n")
		lines += strings.Count(s, "\n") + 1
	}

	if desc := strings.TrimSpace(m.product.Description); desc != "" {
		write(sectionStyle.Render("  Description"))
		for _, line := range strings.Split(render.HTMLToText(desc, width), "\n") {
			write("  " + line)
		}
		write("")
	}

	if len(m.product.Attributes) > 0 {
		write(sectionStyle.Render("  Specifications"))
		labelWidth := 0
		for _, a := range m.product.Attributes {
			labelWidth = max(labelWidth, len(a.Attribute))
		}
		for _, a := range m.product.Attributes {
			write(fmt.Sprintf("  %-*s  %s", labelWidth, a.Attribute, a.Display()))
		}
		write("")
	}

	write(sectionStyle.Render(fmt.Sprintf("  Reviews (%d)", m.reviewCount)))
	m.offsets = make([]reviewOffset, len(m.reviews))
	if len(m.reviews) == 0 {
		write(dimStyle.Render("  No reviews yet."))
	}
	for i, r := range m.reviews {
		start := lines
		selected := i == m.selectedIdx
		bar := authorStyle.Render("│")

		header := render.Stars(float64(r.Rating)) + " " + authorStyle.Render(r.UserEmail) +
			" " + dimStyle.Render(render.TimeAgo(r.CreatedAt))
		headerLine := "  " + bar + " " + header
		if selected {
			headerLine = selStyle.Render(headerLine)
		}
		write(headerLine)
		for _, line := range strings.Split(render.HTMLToText(r.Text, width-4), "\n") {
			bodyLine := "  " + bar + " " + line
			if selected {
				bodyLine = selStyle.Render(bodyLine)
			}
			write(bodyLine)
		}
		write("")
		m.offsets[i] = reviewOffset{startLine: start, endLine: lines - 1}
	}
	if m.moreReviews {
		write(dimStyle.Render(fmt.Sprintf("  %d more, press n", m.reviewCount-len(m.reviews))))
	}

	m.viewport.SetContent(sb.String())
}

func (m *Model) scrollToCursor() {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.offsets) {
		return
	}
	off := m.offsets[m.selectedIdx]
	if off.startLine < m.viewport.YOffset || off.startLine >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(off.startLine)
	}
}

func (m Model) renderHeader() string {
	if m.product == nil {
		return nameStyle.Render("Loading...")
	}
	p := m.product

	price := priceStyle.Render(render.FormatPrice(p.Price))
	if p.OldPrice != "" && p.OldPrice != p.Price {
		price += " " + oldPriceStyle.Render(render.FormatPrice(p.OldPrice))
	}
	stock := "out of stock"
	if p.InStock() {
		stock = fmt.Sprintf("%d in stock", p.Stock)
	}
	meta := fmt.Sprintf("%s | %s %s (%d) | %s", price, render.Stars(p.Rating.Float()), p.Rating, p.ReviewsCount, stock)
	if m.stale {
		meta += " | offline copy"
	}

	parts := []string{
		nameStyle.Render(p.Name),
		metaStyle.Render(meta),
		separator.Render(strings.Repeat("─", max(m.width, 1))),
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// LoadProduct fetches the product with its first review page. A fresh cached
// product skips the product request. If the network fails, a cached copy of
// any age is returned with Stale set.
func LoadProduct(ctx context.Context, client *api.Client, db *cache.DB, ttl time.Duration, id int, force bool) messages.ProductLoadedMsg {
	cached, fresh, _ := db.GetProduct(id, ttl)
	if cached != nil && fresh && !force {
		reviews, err := client.ListReviews(ctx, id, 1)
		if err != nil {
			reviews = &api.Page[api.Review]{}
		}
		return messages.ProductLoadedMsg{ProductID: id, Detail: &api.ProductDetail{Product: cached, Reviews: reviews}}
	}

	detail, err := client.GetProductDetail(ctx, id)
	if err != nil {
		if cached != nil && !api.IsStatus(err, http.StatusNotFound) {
			return messages.ProductLoadedMsg{
				ProductID: id,
				Detail:    &api.ProductDetail{Product: cached, Reviews: &api.Page[api.Review]{}},
				Stale:     true,
			}
		}
		return messages.ProductLoadedMsg{ProductID: id, Err: err}
	}
	db.PutProduct(detail.Product)
	return messages.ProductLoadedMsg{ProductID: id, Detail: detail}
}

func statusCmd(text string, isErr bool) tea.Cmd {
	return func() tea.Msg { return messages.StatusMsg{Text: text, IsError: isErr} }
}
