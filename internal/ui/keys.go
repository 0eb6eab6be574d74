package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit     key.Binding
	Back     key.Binding
	Help     key.Binding
	Enter    key.Binding
	Refresh  key.Binding
	Login    key.Binding
	Notify   key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Products key.Binding
	Cart     key.Binding
	Orders   key.Binding
	Account  key.Binding
	Search   key.Binding
	AddCart  key.Binding
	Review   key.Binding
	Checkout key.Binding
	Submit   key.Binding
}

var Keys = KeyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Login:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "login/logout")),
	Notify:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "notifications")),
	Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "up")),
	Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "down")),
	PageUp:   key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("ctrl+u", "page up")),
	PageDown: key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("ctrl+d", "page down")),
	Products: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "products")),
	Cart:     key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "cart")),
	Orders:   key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "orders")),
	Account:  key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "account")),
	Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	AddCart:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to cart")),
	Review:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "write review")),
	Checkout: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "checkout")),
	Submit:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Back, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Products, k.Cart, k.Orders, k.Account, k.Notify, k.Login},
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Enter, k.Back},
		{k.Search, k.AddCart, k.Review, k.Checkout, k.Submit, k.Refresh},
		{k.Help, k.Quit},
	}
}
