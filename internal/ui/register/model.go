package register

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
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
)

// Model is the account registration form.
type Model struct {
	form       *fields.Set
	validator  *forms.Validator
	client     *api.Client
	err        string
	submitting bool
	width      int
	height     int
}

func New(client *api.Client) Model {
	return Model{
		form: fields.NewSet(
			fields.Text("email", "Email", "you@example.com", 254),
			fields.Password("password", "Password"),
			fields.Password("password_confirm", "Confirm"),
			fields.Text("first_name", "First name", "", 150),
			fields.Text("last_name", "Last name", "", 150),
			fields.Text("birth_date", "Birth date", forms.DateLayout, 10),
			fields.Choice("gender", "Gender", "male", "female"),
		),
		validator: forms.New(),
		client:    client,
	}
}

func (m Model) Init() tea.Cmd {
	return m.form.Focus(0)
}

func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.form.SetWidth(min(max(w-24, 20), 40))
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+s":
			return m.submit()
		case "enter":
			if m.form.Focused().Key == "gender" {
				return m.submit()
			}
			return m, m.form.Next()
		}

	case messages.RegisterResultMsg:
		m.submitting = false
		if msg.Err != nil {
			m.form.Errors = forms.FromAPI(msg.Err)
			m.err = ""
			if m.form.Errors == nil {
				m.err = api.Message(msg.Err)
			}
			return m, m.form.FocusFirstError()
		}
		return m, nil
	}

	return m, m.form.Update(msg)
}

func (m Model) submit() (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	form := forms.Register{
		Email:           strings.TrimSpace(m.form.Value("email")),
		Password:        m.form.Value("password"),
		PasswordConfirm: m.form.Value("password_confirm"),
		FirstName:       m.form.Value("first_name"),
		LastName:        m.form.Value("last_name"),
		BirthDate:       m.form.Value("birth_date"),
		Gender:          m.form.Value("gender"),
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
	req := form.Request()
	return m, func() tea.Msg {
		_, err := client.Register(context.Background(), req)
		return messages.RegisterResultMsg{Email: req.Email, Err: err}
	}
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Create account"))
	sb.WriteString("\n\n")
	sb.WriteString(m.form.View())
	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err) + "\n\n")
	}
	if m.submitting {
		sb.WriteString("Creating account...")
	} else {
		sb.WriteString(hintStyle.Render("Tab to switch fields | Ctrl+S to submit | Esc to cancel"))
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
}
