// Package fields is the tab-cycled input group shared by the account and
// checkout forms.
package fields

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/shopterm/internal/forms"
)

var (
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	choiceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	chosenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B")).Bold(true)
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
)

// Field is one labeled input. Fields with Choices are toggled with
// left/right/space instead of typed into.
type Field struct {
	Key     string
	Label   string
	Choices []string
	Hidden  bool

	input  textinput.Model
	choice int
}

// Text returns a free-text field.
func Text(key, label, placeholder string, limit int) *Field {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 40
	return &Field{Key: key, Label: label, input: ti}
}

// Password returns a masked text field.
func Password(key, label string) *Field {
	f := Text(key, label, "", 128)
	f.input.EchoMode = textinput.EchoPassword
	f.input.EchoCharacter = '•'
	return f
}

// Choice returns a field cycling through choices.
func Choice(key, label string, choices ...string) *Field {
	return &Field{Key: key, Label: label, Choices: choices}
}

// Value returns the field's current text or choice.
func (f *Field) Value() string {
	if len(f.Choices) > 0 {
		return f.Choices[f.choice]
	}
	return f.input.Value()
}

// SetValue sets the text or selects the matching choice.
func (f *Field) SetValue(v string) {
	if len(f.Choices) > 0 {
		for i, c := range f.Choices {
			if c == v {
				f.choice = i
			}
		}
		return
	}
	f.input.SetValue(v)
}

// Set is an ordered group of fields with one focused at a time.
type Set struct {
	fields  []*Field
	focused int
	Errors  forms.Errors
}

// NewSet focuses the first field.
func NewSet(fields ...*Field) *Set {
	s := &Set{fields: fields}
	s.Focus(0)
	return s
}

// Field looks a field up by key.
func (s *Set) Field(key string) *Field {
	for _, f := range s.fields {
		if f.Key == key {
			return f
		}
	}
	return nil
}

// Value is shorthand for Field(key).Value().
func (s *Set) Value(key string) string {
	if f := s.Field(key); f != nil {
		return f.Value()
	}
	return ""
}

// Focused returns the focused field.
func (s *Set) Focused() *Field {
	return s.fields[s.focused]
}

// Focus moves focus to the i'th field.
func (s *Set) Focus(i int) tea.Cmd {
	for _, f := range s.fields {
		f.input.Blur()
	}
	s.focused = i
	if len(s.Focused().Choices) > 0 {
		return nil
	}
	return s.Focused().input.Focus()
}

// FocusKey moves focus to the named field.
func (s *Set) FocusKey(key string) tea.Cmd {
	for i, f := range s.fields {
		if f.Key == key {
			return s.Focus(i)
		}
	}
	return nil
}

// Next moves focus forward, skipping hidden fields.
func (s *Set) Next() tea.Cmd { return s.step(1) }

// Prev moves focus backward, skipping hidden fields.
func (s *Set) Prev() tea.Cmd { return s.step(-1) }

func (s *Set) step(dir int) tea.Cmd {
	n := len(s.fields)
	i := s.focused
	for range n {
		i = (i + dir + n) % n
		if !s.fields[i].Hidden {
			break
		}
	}
	return s.Focus(i)
}

// SetWidth sizes every text input.
func (s *Set) SetWidth(w int) {
	for _, f := range s.fields {
		f.input.Width = w
	}
}

// FocusFirstError focuses the first visible field with an error.
func (s *Set) FocusFirstError() tea.Cmd {
	for i, f := range s.fields {
		if !f.Hidden && s.Errors.Field(f.Key) != "" {
			return s.Focus(i)
		}
	}
	return nil
}

// Update handles tab navigation and routes other keys to the focused field.
func (s *Set) Update(msg tea.Msg) tea.Cmd {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "tab", "down":
			return s.Next()
		case "shift+tab", "up":
			return s.Prev()
		}
		if f := s.Focused(); len(f.Choices) > 0 {
			switch km.String() {
			case "left", "h":
				f.choice = (f.choice - 1 + len(f.Choices)) % len(f.Choices)
			case "right", "l", " ":
				f.choice = (f.choice + 1) % len(f.Choices)
			}
			return nil
		}
	}
	var cmd tea.Cmd
	f := s.Focused()
	f.input, cmd = f.input.Update(msg)
	return cmd
}

// View renders visible fields with labels padded to the widest label.
// Errors not tied to a visible field are listed underneath.
func (s *Set) View() string {
	width := 0
	for _, f := range s.fields {
		if !f.Hidden {
			width = max(width, lipgloss.Width(f.Label))
		}
	}
	label := labelStyle.Width(width + 1)

	var sb strings.Builder
	shown := map[string]bool{}
	for i, f := range s.fields {
		if f.Hidden {
			continue
		}
		shown[f.Key] = true
		l := label.Render(f.Label)
		if i == s.focused {
			l = focusedStyle.Bold(true).Width(width + 1).Render(f.Label)
		}
		sb.WriteString(l + " " + s.renderInput(f, i == s.focused))
		sb.WriteString("\n")
		if msg := s.Errors.Field(f.Key); msg != "" {
			sb.WriteString(strings.Repeat(" ", width+2) + errorStyle.Render(msg) + "\n")
		}
		sb.WriteString("\n")
	}
	for _, k := range slices.Sorted(maps.Keys(s.Errors)) {
		if !shown[k] {
			sb.WriteString(errorStyle.Render(s.Errors[k]) + "\n")
		}
	}
	return sb.String()
}

func (s *Set) renderInput(f *Field, focused bool) string {
	if len(f.Choices) == 0 {
		return f.input.View()
	}
	parts := make([]string, len(f.Choices))
	for i, c := range f.Choices {
		if i == f.choice {
			parts[i] = chosenStyle.Render("(•) " + c)
		} else {
			parts[i] = choiceStyle.Render("( ) " + c)
		}
	}
	out := strings.Join(parts, "  ")
	if focused {
		out += choiceStyle.Render("   ←/→")
	}
	return out
}
