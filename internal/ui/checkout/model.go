package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/forms"
	"github.com/fragmede/shopterm/internal/render"
	"github.com/fragmede/shopterm/internal/ui/fields"
	"github.com/fragmede/shopterm/internal/ui/messages"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E6B"))
	itemStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
)

// Step is the checkout stage.
type Step int

const (
	StepShipping Step = iota
	StepConfirm
	StepPlacing
	StepDone
)

// Model is the two-step checkout: shipping details, then confirmation.
type Model struct {
	form      *fields.Set
	step      Step
	cart      *api.Cart
	client    *api.Client
	validator *forms.Validator
	loc       *time.Location
	request   api.CreateOrderRequest
	result    *api.CreateOrderResponse
	err       string
	width     int
	height    int
}

// New creates a checkout for cart. The customer email defaults to the
// signed-in user's.
func New(client *api.Client, cart *api.Cart) Model {
	email := fields.Text("customer_email", "email", "receipt address (optional)", 254)
	if u := client.Session().User(); u != nil {
		email.SetValue(u.Email)
	}
	form := fields.NewSet(
		fields.Text("phone_number", "phone", "+1 555 123 4567", 20),
		fields.Choice("delivery_method", "method", string(api.DeliveryMethodDelivery), string(api.DeliveryMethodPickup)),
		fields.Text("delivery_address", "address", "street, city", 255),
		fields.Text("delivery_time", "deliver at", forms.DateTimeLayout, 16),
		fields.Text("store_address", "store", "store to pick up from", 255),
		email,
	)
	m := Model{
		form:      form,
		cart:      cart,
		client:    client,
		validator: forms.New(),
		loc:       time.Local,
	}
	m.syncMethod()
	return m
}

// Init focuses the first field.
func (m Model) Init() tea.Cmd {
	return m.form.Focus(0)
}

// Step returns the current stage.
func (m Model) Step() Step {
	return m.step
}

// SetSize sets the view dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.form.SetWidth(min(max(w-20, 20), 60))
}

// syncMethod shows only the fields the chosen delivery method needs.
func (m *Model) syncMethod() {
	pickup := m.form.Value("delivery_method") == string(api.DeliveryMethodPickup)
	m.form.Field("delivery_address").Hidden = pickup
	m.form.Field("delivery_time").Hidden = pickup
	m.form.Field("store_address").Hidden = !pickup
}

func (m Model) shipping() forms.Shipping {
	return forms.Shipping{
		PhoneNumber:     m.form.Value("phone_number"),
		DeliveryMethod:  m.form.Value("delivery_method"),
		DeliveryAddress: m.form.Value("delivery_address"),
		DeliveryTime:    m.form.Value("delivery_time"),
		StoreAddress:    m.form.Value("store_address"),
		CustomerEmail:   m.form.Value("customer_email"),
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.OrderPlacedMsg:
		if msg.Err != nil {
			m.step = StepShipping
			m.form.Errors = forms.FromAPI(msg.Err)
			m.err = ""
			if m.form.Errors == nil {
				m.err = api.Message(msg.Err)
			}
			return m, m.form.FocusFirstError()
		}
		m.step = StepDone
		m.result = msg.Result
		return m, nil

	case tea.KeyMsg:
		switch m.step {
		case StepShipping:
			if msg.String() == "ctrl+s" || (msg.String() == "enter" && m.form.Focused().Key == "customer_email") {
				return m.review()
			}
			if msg.String() == "enter" {
				return m, m.form.Next()
			}
		case StepConfirm:
			switch msg.String() {
			case "enter", "y", "ctrl+s":
				m.step = StepPlacing
				client := m.client
				req := m.request
				return m, func() tea.Msg {
					res, err := client.CreateOrder(context.Background(), req)
					return messages.OrderPlacedMsg{Result: res, Err: err}
				}
			case "n", "backspace", "e":
				m.step = StepShipping
				return m, m.form.Focus(0)
			}
			return m, nil
		case StepPlacing:
			return m, nil
		case StepDone:
			if msg.String() == "enter" && m.result != nil {
				id := m.result.OrderID
				return m, func() tea.Msg { return messages.OpenOrderMsg{OrderID: id} }
			}
			return m, nil
		}
	}

	if m.step != StepShipping {
		return m, nil
	}
	cmd := m.form.Update(msg)
	m.syncMethod()
	return m, cmd
}

// review validates the shipping step and moves to confirmation.
func (m Model) review() (Model, tea.Cmd) {
	m.err = ""
	form := m.shipping()
	if err := m.validator.Validate(form); err != nil {
		var fe forms.Errors
		if errors.As(err, &fe) {
			m.form.Errors = fe
			return m, m.form.FocusFirstError()
		}
		m.err = err.Error()
		return m, nil
	}
	req, err := form.Request(m.loc)
	if err != nil {
		m.err = err.Error()
		return m, nil
	}
	m.form.Errors = nil
	m.request = req
	m.step = StepConfirm
	return m, nil
}

// View renders the current step.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Checkout"))
	sb.WriteString("\n\n")

	switch m.step {
	case StepShipping:
		sb.WriteString(m.form.View())
		if m.err != "" {
			sb.WriteString(errorStyle.Render(m.err) + "\n")
		}
		sb.WriteString(hintStyle.Render("Tab to switch fields | Ctrl+S to continue | Esc to cancel"))
	case StepConfirm, StepPlacing:
		sb.WriteString(m.summary())
		sb.WriteString("\n")
		if m.step == StepPlacing {
			sb.WriteString("Placing order...")
		} else {
			sb.WriteString(hintStyle.Render("Enter to place order | e to edit | Esc to cancel"))
		}
	case StepDone:
		r := m.result
		sb.WriteString(okStyle.Render(fmt.Sprintf("Order #%d placed.", r.OrderID)) + "\n\n")
		sb.WriteString(fmt.Sprintf("Status: %s\nTotal:  %s\n\n", r.Status, render.FormatPrice(r.TotalPrice)))
		sb.WriteString(hintStyle.Render("Enter to view order | Esc to go back"))
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
}

func (m Model) summary() string {
	var sb strings.Builder
	if m.cart != nil {
		for _, it := range m.cart.Items {
			sb.WriteString(itemStyle.Render(fmt.Sprintf("%-30s %3d × %s", render.Truncate(it.ProductName, 30), it.Quantity, render.FormatPrice(it.ProductPrice))))
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("\nTotal: %s\n\n", render.FormatCents(m.cart.TotalCents())))
	}
	r := m.request
	sb.WriteString(fmt.Sprintf("Phone:  %s\n", r.PhoneNumber))
	switch r.DeliveryMethod {
	case api.DeliveryMethodDelivery:
		sb.WriteString(fmt.Sprintf("Deliver to: %s\n", r.DeliveryAddress))
		if r.DeliveryTime != nil {
			sb.WriteString(fmt.Sprintf("At:     %s\n", r.DeliveryTime.In(m.loc).Format(forms.DateTimeLayout)))
		}
	case api.DeliveryMethodPickup:
		sb.WriteString(fmt.Sprintf("Pick up at: %s\n", r.StoreAddress))
	}
	if r.CustomerEmail != "" {
		sb.WriteString(fmt.Sprintf("Receipt: %s\n", r.CustomerEmail))
	}
	return sb.String()
}
