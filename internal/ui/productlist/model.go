package productlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/cache"
	"github.com/fragmede/shopterm/internal/config"
	"github.com/fragmede/shopterm/internal/render"
	"github.com/fragmede/shopterm/internal/ui/messages"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B")).Bold(true)
	filterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
)

// Orderings cycles through the backend's ordering fields.
var Orderings = []struct {
	Field string
	Label string
}{
	{"", "default"},
	{"price", "price ↑"},
	{"-price", "price ↓"},
	{"-rating", "top rated"},
	{"-created_at", "newest"},
	{"name", "name"},
}

type promptMode int

const (
	promptNone promptMode = iota
	promptSearch
	promptPrice
)

// Model is the catalog view.
type Model struct {
	list       list.Model
	prompt     textinput.Model
	mode       promptMode
	query      api.ProductQuery
	ordering   int
	categories []api.Category
	category   int // index into categories, -1 for all
	page       *api.Page[api.Product]
	stale      bool
	err        string
	client     *api.Client
	cache      *cache.DB
	cfg        config.Config
	loading    bool
	width      int
	height     int
}

// New creates a new product list model.
func New(cfg config.Config, client *api.Client, db *cache.DB) Model {
	l := list.New(nil, Delegate{}, 0, 0)
	l.Title = "Products"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	ti := textinput.New()
	ti.CharLimit = 100
	ti.Width = 40

	return Model{
		list:     l,
		prompt:   ti,
		query:    api.ProductQuery{Page: 1, PageSize: cfg.PageSize},
		category: -1,
		client:   client,
		cache:    db,
		cfg:      cfg,
	}
}

// Init loads the first page and the category list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadProducts(false), m.loadCategories())
}

// SetSize updates the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.list.SetSize(w, h-2)
}

// Query returns the active catalog query.
func (m Model) Query() api.ProductQuery {
	return m.query
}

// Prompting reports whether a text prompt has focus.
func (m Model) Prompting() bool {
	return m.mode != promptNone
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.ProductsLoadedMsg:
		if msg.Query.Key() != m.query.Key() {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			m.err = api.Message(msg.Err)
			m.list.Title = m.title()
			return m, nil
		}
		m.err = ""
		m.stale = msg.Stale
		m.page = msg.Page
		offset := (m.query.Page - 1) * m.query.PageSize
		items := make([]list.Item, 0, len(msg.Page.Results))
		for i, p := range msg.Page.Results {
			items = append(items, ProductItem{Product: p, Index: offset + i})
		}
		m.list.SetItems(items)
		m.list.Select(0)
		m.list.Title = m.title()
		return m, nil

	case messages.CategoriesLoadedMsg:
		if msg.Err == nil {
			m.categories = msg.Categories
		}
		return m, nil

	case tea.KeyMsg:
		if m.mode != promptNone {
			return m.updatePrompt(msg)
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(ProductItem); ok {
				return m, func() tea.Msg {
					return messages.OpenProductMsg{ProductID: item.ID}
				}
			}
			return m, nil
		case "/":
			return m, m.openPrompt(promptSearch, "search: ", m.query.Search)
		case "p":
			current := ""
			if m.query.MinPrice != "" || m.query.MaxPrice != "" {
				current = m.query.MinPrice + "-" + m.query.MaxPrice
			}
			return m, m.openPrompt(promptPrice, "price min-max: ", current)
		case "c":
			return m, m.cycleCategory()
		case "o":
			m.ordering = (m.ordering + 1) % len(Orderings)
			m.query.Ordering = Orderings[m.ordering].Field
			return m, m.reload()
		case "]", "right":
			if m.page != nil && m.page.HasNext() {
				m.query.Page++
				return m, m.startLoad(false)
			}
			return m, nil
		case "[", "left":
			if m.query.Page > 1 {
				m.query.Page--
				return m, m.startLoad(false)
			}
			return m, nil
		case "x":
			m.query = api.ProductQuery{Page: 1, PageSize: m.cfg.PageSize}
			m.ordering = 0
			m.category = -1
			return m, m.startLoad(false)
		case "r", "ctrl+r":
			return m, m.startLoad(true)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) openPrompt(mode promptMode, prompt, value string) tea.Cmd {
	m.mode = mode
	m.prompt.Prompt = prompt
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	return m.prompt.Focus()
}

func (m Model) updatePrompt(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = promptNone
		m.prompt.Blur()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.prompt.Value())
		mode := m.mode
		m.mode = promptNone
		m.prompt.Blur()
		switch mode {
		case promptSearch:
			m.query.Search = value
		case promptPrice:
			lo, hi, err := ParsePriceRange(value)
			if err != nil {
				m.err = err.Error()
				return m, nil
			}
			m.query.MinPrice, m.query.MaxPrice = lo, hi
		}
		return m, m.reload()
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *Model) cycleCategory() tea.Cmd {
	if len(m.categories) == 0 {
		return nil
	}
	m.category++
	if m.category >= len(m.categories) {
		m.category = -1
	}
	if m.category < 0 {
		m.query.Category = ""
	} else {
		m.query.Category = m.categories[m.category].Slug
	}
	return m.reload()
}

// reload restarts at page one after a filter change.
func (m *Model) reload() tea.Cmd {
	m.query.Page = 1
	return m.startLoad(false)
}

func (m *Model) startLoad(force bool) tea.Cmd {
	m.loading = true
	m.err = ""
	m.list.Title = m.title()
	return m.loadProducts(force)
}

// View renders the product list.
func (m Model) View() string {
	var footer string
	switch {
	case m.mode != promptNone:
		footer = m.prompt.View()
	case m.err != "":
		footer = errorStyle.Render(m.err)
	default:
		footer = filterStyle.Render(m.filterSummary())
	}
	return m.list.View() + "\n" + footer
}

func (m Model) title() string {
	t := "Products"
	if m.query.Search != "" {
		t += fmt.Sprintf(" matching %q", m.query.Search)
	}
	if m.page != nil && m.query.PageSize > 0 {
		pages := (m.page.Count + m.query.PageSize - 1) / m.query.PageSize
		t += fmt.Sprintf(" (page %d/%d, %d total)", m.query.Page, max(pages, 1), m.page.Count)
	}
	if m.loading {
		t += " (loading...)"
	} else if m.stale {
		t += " (offline copy)"
	}
	return t
}

func (m Model) filterSummary() string {
	parts := []string{}
	if m.query.Category != "" && m.category >= 0 {
		parts = append(parts, "category: "+m.categories[m.category].Name)
	}
	if m.query.MinPrice != "" || m.query.MaxPrice != "" {
		parts = append(parts, fmt.Sprintf("price: %s-%s", m.query.MinPrice, m.query.MaxPrice))
	}
	parts = append(parts, "sort: "+Orderings[m.ordering].Label)
	hint := "/ search  c category  p price  o sort  [ ] page  x clear"
	return promptStyle.Render(strings.Join(parts, " · ")) + "  " + hint
}

// ParsePriceRange parses "10-50", "10-", "-50" or "" into bounds.
func ParsePriceRange(s string) (string, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", nil
	}
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		return "", "", fmt.Errorf("use min-max, e.g. 10-50")
	}
	lo, hi = strings.TrimSpace(lo), strings.TrimSpace(hi)
	var loC, hiC int64
	var err error
	if lo != "" {
		if loC, err = api.Decimal(lo).Cents(); err != nil || loC < 0 {
			return "", "", fmt.Errorf("invalid minimum price %q", lo)
		}
	}
	if hi != "" {
		if hiC, err = api.Decimal(hi).Cents(); err != nil || hiC < 0 {
			return "", "", fmt.Errorf("invalid maximum price %q", hi)
		}
	}
	if lo != "" && hi != "" && loC > hiC {
		return "", "", fmt.Errorf("minimum %s is above maximum %s", render.FormatCents(loC), render.FormatCents(hiC))
	}
	return lo, hi, nil
}

func (m Model) loadProducts(force bool) tea.Cmd {
	q := m.query
	client := m.client
	db := m.cache
	cfg := m.cfg
	return func() tea.Msg {
		return LoadProducts(context.Background(), client, db, cfg, q, force)
	}
}

// LoadProducts serves a fresh cached page when there is one, otherwise
// fetches and caches it. When the fetch fails a stale cached page is used.
func LoadProducts(ctx context.Context, client *api.Client, db *cache.DB, cfg config.Config, q api.ProductQuery, force bool) messages.ProductsLoadedMsg {
	key := q.Key()
	cached, fresh, _ := db.GetProductList(key, cfg.ProductListTTL)
	if fresh && cached != nil && !force {
		return messages.ProductsLoadedMsg{Query: q, Page: cached}
	}

	page, err := client.ListProducts(ctx, q)
	if err != nil {
		if cached != nil {
			return messages.ProductsLoadedMsg{Query: q, Page: cached, Stale: true}
		}
		return messages.ProductsLoadedMsg{Query: q, Err: err}
	}
	db.PutProductList(key, page)
	return messages.ProductsLoadedMsg{Query: q, Page: page}
}

func (m Model) loadCategories() tea.Cmd {
	client := m.client
	db := m.cache
	ttl := m.cfg.CategoryTTL
	return func() tea.Msg {
		cats, fresh, _ := db.GetCategories(ttl)
		if fresh && len(cats) > 0 {
			return messages.CategoriesLoadedMsg{Categories: cats}
		}
		fetched, err := client.ListCategories(context.Background())
		if err != nil {
			if len(cats) > 0 {
				return messages.CategoriesLoadedMsg{Categories: cats}
			}
			return messages.CategoriesLoadedMsg{Err: err}
		}
		flat := flatten(fetched)
		db.PutCategories(flat)
		return messages.CategoriesLoadedMsg{Categories: flat}
	}
}

// flatten lists parents before their children.
func flatten(cats []api.Category) []api.Category {
	var out []api.Category
	for _, c := range cats {
		out = append(out, c)
		if len(c.Children) > 0 {
			out = append(out, flatten(c.Children)...)
		}
	}
	return out
}
