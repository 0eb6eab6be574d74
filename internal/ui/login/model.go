package login

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/forms"
	"github.com/fragmede/shopterm/internal/ui/fields"
	"github.com/fragmede/shopterm/internal/ui/messages"
)

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B")).Bold(true).
			Padding(1, 0)
)

// Model is the login form view.
type Model struct {
	form       *fields.Set
	validator  *forms.Validator
	client     *api.Client
	err        string
	notice     string
	submitting bool
	width      int
	height     int
}

// New creates a new login form.
func New(client *api.Client) Model {
	return Model{
		form: fields.NewSet(
			fields.Text("email", "Email", "you@example.com", 254),
			fields.Password("password", "Password"),
		),
		validator: forms.New(),
		client:    client,
	}
}

// WithNotice shows text above the form, e.g. after a session expired.
func (m Model) WithNotice(text string) Model {
	m.notice = text
	return m
}

// WithEmail prefills the email and focuses the password.
func (m Model) WithEmail(email string) Model {
	m.form.Field("email").SetValue(email)
	m.form.FocusKey("password")
	return m
}

// Init focuses the first empty field.
func (m Model) Init() tea.Cmd {
	if m.form.Value("email") != "" {
		return m.form.FocusKey("password")
	}
	return m.form.Focus(0)
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.form.SetWidth(min(max(w-20, 20), 40))
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+n":
			return m, func() tea.Msg { return messages.OpenRegisterMsg{} }
		case "enter":
			if m.form.Focused().Key == "email" {
				return m, m.form.Next()
			}
			return m.submit()
		}

	case messages.LoginResultMsg:
		m.submitting = false
		if msg.Err != nil {
			m.form.Errors = forms.FromAPI(msg.Err)
			if m.form.Errors == nil {
				m.err = api.Message(msg.Err)
			}
			m.form.Field("password").SetValue("")
			return m, nil
		}
		return m, nil
	}

	cmd := m.form.Update(msg)
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	form := forms.Login{
		Email:    strings.TrimSpace(m.form.Value("email")),
		Password: m.form.Value("password"),
	}
	m.err = ""
	if err := m.validator.Validate(form); err != nil {
		var fe forms.Errors
		if errors.As(err, &fe) {
			m.form.Errors = fe
			return m, m.form.FocusFirstError()
		}
		m.err = err.Error()
		return m, nil
	}
	m.form.Errors = nil
	m.submitting = true
	client := m.client
	return m, func() tea.Msg {
		user, err := client.Login(context.Background(), form.Email, form.Password)
		return messages.LoginResultMsg{User: user, Err: err}
	}
}

// View renders the login form.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Sign in"))
	sb.WriteString("\n\n")
	if m.notice != "" {
		sb.WriteString(noticeStyle.Render(m.notice))
		sb.WriteString("\n\n")
	}
	sb.WriteString(m.form.View())

	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n\n")
	}

	if m.submitting {
		sb.WriteString("Signing in...")
	} else {
		sb.WriteString(focusedStyle.Render("Enter") + " to submit, " +
			focusedStyle.Render("Ctrl+N") + " to create an account, " +
			focusedStyle.Render("Esc") + " to cancel")
	}

	content := sb.String()
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
