package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/auth"
	"github.com/fragmede/shopterm/internal/forms"
	"github.com/fragmede/shopterm/internal/ui/fields"
	"github.com/fragmede/shopterm/internal/ui/messages"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B")).Bold(true).Padding(1, 0)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Bold(true).Width(12)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
)

type userLoadedMsg struct {
	User *auth.User
	Err  error
}

// Model is the account view with an inline edit form.
type Model struct {
	user      *auth.User
	form      *fields.Set
	editing   bool
	saving    bool
	loading   bool
	err       string
	client    *api.Client
	validator *forms.Validator
	width     int
	height    int
}

// New shows the session's cached profile while a fresh copy loads.
func New(client *api.Client) Model {
	return Model{
		user:      client.Session().User(),
		loading:   true,
		client:    client,
		validator: forms.New(),
	}
}

// Init reloads the profile from the server.
func (m Model) Init() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		user, err := client.Me(context.Background())
		if err == nil {
			client.Session().SetUser(*user)
		}
		return userLoadedMsg{User: user, Err: err}
	}
}

// Editing reports whether the edit form is open.
func (m Model) Editing() bool {
	return m.editing
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form.SetWidth(min(max(w-24, 20), 40))
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case userLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			if m.user == nil {
				m.err = api.Message(msg.Err)
			}
			return m, nil
		}
		m.user = msg.User
		return m, nil

	case messages.ProfileUpdatedMsg:
		m.saving = false
		if msg.Err != nil {
			m.form.Errors = forms.FromAPI(msg.Err)
			if m.form.Errors == nil {
				m.err = api.Message(msg.Err)
			}
			return m, m.form.FocusFirstError()
		}
		m.user = msg.User
		m.editing = false
		m.err = ""
		return m, nil

	case tea.KeyMsg:
		if !m.editing {
			switch msg.String() {
			case "e":
				if m.user == nil {
					return m, nil
				}
				return m, m.openEditor()
			case "r":
				m.loading = true
				return m, m.Init()
			}
			return m, nil
		}
		switch msg.String() {
		case "esc":
			m.editing = false
			m.err = ""
			return m, nil
		case "ctrl+s":
			return m.save()
		case "enter":
			if m.form.Focused().Key == "gender" {
				return m.save()
			}
			return m, m.form.Next()
		}
		return m, m.form.Update(msg)
	}
	if m.editing {
		return m, m.form.Update(msg)
	}
	return m, nil
}

func (m *Model) openEditor() tea.Cmd {
	first := fields.Text("first_name", "First name", "", 150)
	first.SetValue(m.user.FirstName)
	last := fields.Text("last_name", "Last name", "", 150)
	last.SetValue(m.user.LastName)
	born := fields.Text("birth_date", "Birth date", forms.DateLayout, 10)
	born.SetValue(m.user.BirthDate)
	gender := fields.Choice("gender", "Gender", "male", "female")
	gender.SetValue(m.user.Gender)

	m.form = fields.NewSet(first, last, born, gender)
	m.form.SetWidth(min(max(m.width-24, 20), 40))
	m.editing = true
	m.err = ""
	return m.form.Focus(0)
}

func (m Model) save() (Model, tea.Cmd) {
	if m.saving {
		return m, nil
	}
	form := forms.Profile{
		FirstName: m.form.Value("first_name"),
		LastName:  m.form.Value("last_name"),
		BirthDate: m.form.Value("birth_date"),
		Gender:    m.form.Value("gender"),
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
	m.saving = true
	client := m.client
	req := form.Request()
	return m, func() tea.Msg {
		user, err := client.UpdateMe(context.Background(), req)
		return messages.ProfileUpdatedMsg{User: user, Err: err}
	}
}

// View renders the profile.
func (m Model) View() string {
	if m.user == nil {
		if m.err != "" {
			return titleStyle.Render("Error: " + m.err)
		}
		return titleStyle.Render("Loading profile...")
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.user.DisplayName()))
	sb.WriteString("\n")

	if m.editing {
		sb.WriteString(m.form.View())
		if m.err != "" {
			sb.WriteString(errorStyle.Render(m.err) + "\n\n")
		}
		if m.saving {
			sb.WriteString("Saving...")
		} else {
			sb.WriteString(hintStyle.Render("Tab to switch fields | Ctrl+S to save | Esc to cancel"))
		}
		return sb.String()
	}

	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		sb.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Email", m.user.Email)
	row("First name", m.user.FirstName)
	row("Last name", m.user.LastName)
	row("Birth date", m.user.BirthDate)
	if m.user.Age != nil {
		row("Age", fmt.Sprint(*m.user.Age))
	}
	row("Gender", m.user.Gender)
	verified := "no"
	if m.user.IsEmailVerified {
		verified = "yes"
	}
	row("Verified", verified)
	sb.WriteString("\n")
	if m.loading {
		sb.WriteString(hintStyle.Render("Refreshing..."))
	} else {
		sb.WriteString(hintStyle.Render("e:edit  r:refresh  L:log out"))
	}
	return sb.String()
}
