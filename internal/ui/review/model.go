package review

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/forms"
	"github.com/fragmede/shopterm/internal/render"
	"github.com/fragmede/shopterm/internal/ui/messages"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B")).Bold(true)
	starStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
)

// ErrNotPurchased is shown when the backend refuses a review from a user who
// has not bought the product.
const ErrNotPurchased = "You can only review products you have purchased."

// Model is the review composer.
type Model struct {
	textarea    textarea.Model
	rating      int
	productID   int
	productName string
	client      *api.Client
	validator   *forms.Validator
	err         string
	submitting  bool
	width       int
	height      int
}

// New creates a review form for a product. The rating starts at five.
func New(productID int, productName string, client *api.Client) Model {
	ta := textarea.New()
	ta.Placeholder = "What did you think?"
	ta.Focus()
	ta.SetWidth(80)
	ta.SetHeight(10)
	ta.CharLimit = 2000

	return Model{
		textarea:    ta,
		rating:      5,
		productID:   productID,
		productName: productName,
		client:      client,
		validator:   forms.New(),
	}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	tw := w - 4
	if tw > 100 {
		tw = 100
	}
	m.textarea.SetWidth(tw)
	th := h - 10
	if th < 5 {
		th = 5
	}
	m.textarea.SetHeight(th)
}

// Rating returns the selected star count.
func (m Model) Rating() int {
	return m.rating
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+s":
			return m.submit()
		case "alt+1", "alt+2", "alt+3", "alt+4", "alt+5":
			m.rating = int(msg.String()[4] - '0')
			return m, nil
		case "ctrl+left":
			m.rating = max(m.rating-1, 1)
			return m, nil
		case "ctrl+right":
			m.rating = min(m.rating+1, 5)
			return m, nil
		}

	case messages.ReviewResultMsg:
		m.submitting = false
		if msg.Err != nil {
			m.err = errorText(msg.Err)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	form := forms.Review{Rating: m.rating, Text: strings.TrimSpace(m.textarea.Value())}
	if err := m.validator.Validate(form); err != nil {
		var fe forms.Errors
		if errors.As(err, &fe) {
			if msg := fe.Field("text"); msg != "" {
				m.err = "Review: " + msg
			} else {
				m.err = "Rating: " + fe.Field("rating")
			}
			return m, nil
		}
		m.err = err.Error()
		return m, nil
	}
	m.submitting = true
	m.err = ""
	client := m.client
	productID := m.productID
	req := form.Request()
	return m, func() tea.Msg {
		_, err := client.CreateReview(context.Background(), productID, req)
		return messages.ReviewResultMsg{ProductID: productID, Err: err}
	}
}

func errorText(err error) string {
	if api.IsStatus(err, http.StatusForbidden) {
		return ErrNotPurchased
	}
	if fe := forms.FromAPI(err); fe != nil {
		return fe.Error()
	}
	return api.Message(err)
}

// View renders the review form.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Review: " + render.Truncate(m.productName, 60)))
	sb.WriteString("\n\n")
	sb.WriteString("Rating: " + starStyle.Render(render.Stars(float64(m.rating))))
	sb.WriteString("\n\n")
	sb.WriteString(m.textarea.View())
	sb.WriteString("\n\n")

	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n")
	}

	if m.submitting {
		sb.WriteString("Submitting...")
	} else {
		sb.WriteString(hintStyle.Render("Alt+1..5 or Ctrl+←/→ to rate | Ctrl+S to submit | Esc to cancel"))
	}

	content := sb.String()
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
