package fields

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/fragmede/shopterm/internal/forms"
)

func newCheckoutSet() *Set {
	return NewSet(
		Text("phone_number", "Phone", "", 20),
		Choice("delivery_method", "Delivery", "courier", "pickup"),
		Text("delivery_address", "Address", "", 200),
		Text("customer_email", "Email", "", 254),
	)
}

func TestSet_TabSkipsHidden(t *testing.T) {
	s := newCheckoutSet()
	s.Field("delivery_address").Hidden = true

	s.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "delivery_method", s.Focused().Key)
	s.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "customer_email", s.Focused().Key)
	s.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "phone_number", s.Focused().Key)
	s.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "customer_email", s.Focused().Key)
}

func TestSet_ChoiceToggles(t *testing.T) {
	s := newCheckoutSet()
	s.FocusKey("delivery_method")
	assert.Equal(t, "courier", s.Value("delivery_method"))

	s.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "pickup", s.Value("delivery_method"))
	s.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "courier", s.Value("delivery_method"))
	s.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, "pickup", s.Value("delivery_method"))

	s.Field("delivery_method").SetValue("courier")
	assert.Equal(t, "courier", s.Value("delivery_method"))
}

func TestSet_TypingGoesToFocusedField(t *testing.T) {
	s := newCheckoutSet()
	s.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("+1555")})
	assert.Equal(t, "+1555", s.Value("phone_number"))
	assert.Empty(t, s.Value("customer_email"))
	assert.Empty(t, s.Value("missing"))
}

func TestSet_Errors(t *testing.T) {
	s := newCheckoutSet()
	s.Field("delivery_address").Hidden = true
	s.Errors = forms.Errors{
		"delivery_address": "Address is required",
		"customer_email":   "Enter a valid email",
		"non_field_errors": "Cart is empty.",
	}

	s.FocusFirstError()
	assert.Equal(t, "customer_email", s.Focused().Key)

	view := s.View()
	assert.Contains(t, view, "Enter a valid email")
	assert.Contains(t, view, "Cart is empty.")
	assert.Contains(t, view, "Address is required", "errors for hidden fields are still listed")
}
