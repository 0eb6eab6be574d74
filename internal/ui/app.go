package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/auth"
	"github.com/fragmede/shopterm/internal/cache"
	"github.com/fragmede/shopterm/internal/config"
	"github.com/fragmede/shopterm/internal/ui/cart"
	"github.com/fragmede/shopterm/internal/ui/checkout"
	"github.com/fragmede/shopterm/internal/ui/login"
	"github.com/fragmede/shopterm/internal/ui/messages"
	"github.com/fragmede/shopterm/internal/ui/notifications"
	"github.com/fragmede/shopterm/internal/ui/orderlist"
	"github.com/fragmede/shopterm/internal/ui/orderview"
	"github.com/fragmede/shopterm/internal/ui/productlist"
	"github.com/fragmede/shopterm/internal/ui/productview"
	"github.com/fragmede/shopterm/internal/ui/profile"
	"github.com/fragmede/shopterm/internal/ui/register"
	"github.com/fragmede/shopterm/internal/ui/review"
	"github.com/fragmede/shopterm/internal/ui/statusbar"
	"github.com/fragmede/shopterm/internal/watch"
)

// ViewType identifies the active view.
type ViewType int

const (
	ViewProducts ViewType = iota
	ViewProduct
	ViewCart
	ViewCheckout
	ViewOrders
	ViewOrder
	ViewAccount
	ViewLogin
	ViewRegister
	ViewReview
	ViewNotifications
)

// App is the root Bubble Tea model.
type App struct {
	// View state
	activeView    ViewType
	previousViews []ViewType
	showHelp      bool

	// Child models
	productList   productlist.Model
	productView   productview.Model
	cart          cart.Model
	checkout      checkout.Model
	orderList     orderlist.Model
	orderView     orderview.Model
	profile       profile.Model
	loginForm     login.Model
	registerForm  register.Model
	reviewForm    review.Model
	notifications notifications.Model
	statusBar     statusbar.Model
	help          help.Model

	// Shared state
	cfg     config.Config
	client  *api.Client
	cache   *cache.DB
	session *auth.Session
	watcher *watch.Watcher
	log     zerolog.Logger

	// Prefills the login form after the session expires.
	lastEmail string

	width  int
	height int

	// Receives watcher notifications.
	program watch.Sender
}

// NewApp creates the root application model.
func NewApp(cfg config.Config, client *api.Client, db *cache.DB, watcher *watch.Watcher, log zerolog.Logger) *App {
	return &App{
		activeView:  ViewProducts,
		productList: productlist.New(cfg, client, db),
		cart:        cart.New(client),
		statusBar:   statusbar.New(),
		help:        help.New(),
		cfg:         cfg,
		client:      client,
		cache:       db,
		session:     client.Session(),
		watcher:     watcher,
		log:         log,
	}
}

// SetProgram stores the program the order watcher reports to.
func (a *App) SetProgram(p watch.Sender) {
	a.program = p
}

// TerminatedNotifier returns a gateway subscriber that forwards session
// terminations to p. It must not block: the failed request may be running on
// the order watcher's goroutine while the UI waits for it in Stop.
func TerminatedNotifier(p watch.Sender) func(error) {
	return func(err error) {
		go p.Send(messages.SessionTerminatedMsg{Err: err})
	}
}

// ActiveView returns the view currently shown.
func (a *App) ActiveView() ViewType {
	return a.activeView
}

// Init starts the application.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.productList.Init(), a.tryRestoreSession())
}

func (a *App) tryRestoreSession() tea.Cmd {
	session := a.session
	return func() tea.Msg {
		if session.IsAuthenticated() {
			return messages.SessionRestoredMsg{User: session.User()}
		}
		return nil
	}
}

// textInput reports whether the active view consumes printable keys.
func (a *App) textInput() bool {
	switch a.activeView {
	case ViewLogin, ViewRegister, ViewReview:
		return true
	case ViewCheckout:
		return a.checkout.Step() == checkout.StepShipping
	case ViewAccount:
		return a.profile.Editing()
	case ViewProducts:
		return a.productList.Prompting()
	case ViewProduct:
		return a.productView.Prompting()
	}
	return false
}

// Update handles all messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.productList.SetSize(msg.Width, a.contentHeight())
		a.cart.SetSize(msg.Width, a.contentHeight())
		a.statusBar.SetSize(msg.Width)
		a.help.Width = msg.Width
		a.resizeActive()
		return a, nil

	case tea.KeyMsg:
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}
		if !a.textInput() {
			switch {
			case msg.String() == "ctrl+c":
				return a, a.quit()
			case key.Matches(msg, Keys.Quit):
				if len(a.previousViews) == 0 {
					return a, a.quit()
				}
				return a, a.goBack()
			case key.Matches(msg, Keys.Back):
				if len(a.previousViews) > 0 {
					return a, a.goBack()
				}
				if a.activeView != ViewProducts {
					return a, a.switchTab(ViewProducts)
				}
			case key.Matches(msg, Keys.Help):
				a.showHelp = true
				return a, nil
			case key.Matches(msg, Keys.Products):
				return a, a.switchTab(ViewProducts)
			case key.Matches(msg, Keys.Cart):
				return a, a.switchTab(ViewCart)
			case key.Matches(msg, Keys.Orders):
				return a, a.switchTab(ViewOrders)
			case key.Matches(msg, Keys.Account):
				return a, a.switchTab(ViewAccount)
			case key.Matches(msg, Keys.Login):
				if a.session.IsAuthenticated() {
					return a, a.logout()
				}
				return a, a.openLogin("")
			case key.Matches(msg, Keys.Notify) && a.activeView != ViewProduct && a.activeView != ViewCheckout:
				if !a.session.IsAuthenticated() {
					return a, a.openLogin("")
				}
				a.notifications = notifications.New(a.cache, a.userEmail())
				a.notifications.Load()
				a.pushView(ViewNotifications)
				return a, nil
			}
		} else {
			switch msg.String() {
			case "esc":
				if a.activeView == ViewProducts || a.activeView == ViewProduct || a.activeView == ViewAccount {
					// Prompts and inline editors close themselves.
					break
				}
				return a, a.goBack()
			case "ctrl+c":
				return a, a.quit()
			}
		}

	// View transitions.
	case messages.OpenProductMsg:
		a.productView = productview.New(msg.ProductID, a.cfg, a.client, a.cache)
		a.pushView(ViewProduct)
		return a, a.productView.Init()

	case messages.OpenOrderMsg:
		if !a.session.IsAuthenticated() {
			return a, a.openLogin("")
		}
		a.orderView = orderview.New(msg.OrderID, a.client)
		a.pushView(ViewOrder)
		return a, a.orderView.Init()

	case messages.OpenReviewMsg:
		if !a.session.IsAuthenticated() {
			return a, a.openLogin("")
		}
		a.reviewForm = review.New(msg.ProductID, msg.ProductName, a.client)
		a.pushView(ViewReview)
		return a, nil

	case messages.OpenCheckoutMsg:
		a.checkout = checkout.New(a.client, a.cart.Cart())
		a.pushView(ViewCheckout)
		return a, a.checkout.Init()

	case messages.OpenLoginMsg:
		return a, a.openLogin("")

	case messages.OpenRegisterMsg:
		a.registerForm = register.New(a.client)
		a.pushView(ViewRegister)
		return a, a.registerForm.Init()

	case messages.GoBackMsg:
		return a, a.goBack()

	case messages.SessionRestoredMsg:
		a.signedIn(msg.User)
		return a, a.cart.Init()

	case messages.LoginResultMsg:
		if msg.Err == nil {
			a.signedIn(msg.User)
			a.statusBar.SetStatus("Signed in as "+msg.User.DisplayName(), false)
			a.goBack()
			return a, tea.Batch(a.cart.Init(), a.reloadActive())
		}

	case messages.RegisterResultMsg:
		if msg.Err == nil {
			a.goBack()
			a.loginForm = login.New(a.client).
				WithEmail(msg.Email).
				WithNotice("Account created. Check your inbox to verify it, then sign in.")
			a.loginForm.SetSize(a.width, a.contentHeight())
			if a.activeView != ViewLogin {
				a.pushView(ViewLogin)
			}
			return a, a.loginForm.Init()
		}

	case messages.ProfileUpdatedMsg:
		if msg.Err == nil {
			a.statusBar.SetUser(msg.User.DisplayName())
			a.statusBar.SetStatus("Profile saved", false)
		}

	case messages.ReviewResultMsg:
		if msg.Err == nil {
			a.statusBar.SetStatus("Review posted", false)
			a.goBack()
		}

	case messages.CartLoadedMsg:
		if msg.Err == nil && msg.Cart != nil {
			a.statusBar.SetCartCount(msg.Cart.ItemCount())
		}
		if a.activeView != ViewCart {
			a.cart, _ = a.cart.Update(msg)
		}

	case messages.CartUpdatedMsg:
		if msg.Err == nil && msg.Cart != nil {
			a.statusBar.SetCartCount(msg.Cart.ItemCount())
			if msg.Action == "add" {
				a.statusBar.SetStatus("Added to cart", false)
			}
		} else if msg.Err != nil {
			a.statusBar.SetStatus(api.Message(msg.Err), true)
		}
		if a.activeView != ViewCart {
			a.cart, _ = a.cart.Update(msg)
		}

	case messages.OrderPlacedMsg:
		if msg.Err == nil {
			a.statusBar.SetCartCount(0)
			a.statusBar.SetStatus(fmt.Sprintf("Order #%d placed", msg.Result.OrderID), false)
			var cmd tea.Cmd
			a.cart, cmd = a.cart.Load()
			cmds = append(cmds, cmd)
		}

	case messages.ProductsLoadedMsg:
		a.statusBar.SetOffline(msg.Stale)

	case messages.ProductLoadedMsg:
		a.statusBar.SetOffline(msg.Stale)

	case messages.NewNotificationMsg:
		a.statusBar.SetUnread(msg.UnreadCount)
		if msg.Changes > 0 {
			a.statusBar.SetStatus(fmt.Sprintf("%d order update(s)", msg.Changes), false)
		}

	case messages.SessionTerminatedMsg:
		a.signedOut()
		a.previousViews = nil
		a.loginForm = login.New(a.client).WithNotice(api.Message(api.ErrSessionTerminated))
		if a.lastEmail != "" {
			a.loginForm = a.loginForm.WithEmail(a.lastEmail)
		}
		a.log.Warn().Err(msg.Err).Msg("session terminated")
		a.activeView = ViewLogin
		a.loginForm.SetSize(a.width, a.contentHeight())
		return a, a.loginForm.Init()

	case messages.LoggedOutMsg:
		a.signedOut()
		a.statusBar.SetStatus("Signed out", false)
		return a, a.switchTab(ViewProducts)

	case messages.StatusMsg:
		a.statusBar.SetStatus(msg.Text, msg.IsError)
		return a, nil
	}

	cmds = append(cmds, a.routeActive(msg))

	var cmd tea.Cmd
	a.statusBar, cmd = a.statusBar.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

func (a *App) routeActive(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.activeView {
	case ViewProducts:
		a.productList, cmd = a.productList.Update(msg)
	case ViewProduct:
		a.productView, cmd = a.productView.Update(msg)
	case ViewCart:
		a.cart, cmd = a.cart.Update(msg)
	case ViewCheckout:
		a.checkout, cmd = a.checkout.Update(msg)
	case ViewOrders:
		a.orderList, cmd = a.orderList.Update(msg)
	case ViewOrder:
		a.orderView, cmd = a.orderView.Update(msg)
	case ViewAccount:
		a.profile, cmd = a.profile.Update(msg)
	case ViewLogin:
		a.loginForm, cmd = a.loginForm.Update(msg)
	case ViewRegister:
		a.registerForm, cmd = a.registerForm.Update(msg)
	case ViewReview:
		a.reviewForm, cmd = a.reviewForm.Update(msg)
	case ViewNotifications:
		a.notifications, cmd = a.notifications.Update(msg)
		if _, ok := msg.(tea.KeyMsg); ok {
			a.statusBar.SetUnread(a.cache.UnreadNotificationCount(a.userEmail()))
		}
	}
	return cmd
}

// View renders the application.
func (a *App) View() string {
	var content string
	switch a.activeView {
	case ViewProducts:
		content = a.productList.View()
	case ViewProduct:
		content = a.productView.View()
	case ViewCart:
		content = a.cart.View()
	case ViewCheckout:
		content = a.checkout.View()
	case ViewOrders:
		content = a.orderList.View()
	case ViewOrder:
		content = a.orderView.View()
	case ViewAccount:
		content = a.profile.View()
	case ViewLogin:
		content = a.loginForm.View()
	case ViewRegister:
		content = a.registerForm.View()
	case ViewReview:
		content = a.reviewForm.View()
	case ViewNotifications:
		content = a.notifications.View()
	}

	if a.showHelp {
		a.help.ShowAll = true
		box := HelpBoxStyle.Render(HelpTitleStyle.Render("Keys") + "\n\n" + a.help.View(Keys))
		content = lipgloss.Place(a.width, a.contentHeight(), lipgloss.Center, lipgloss.Center, box)
	}

	content = lipgloss.NewStyle().Height(a.contentHeight()).MaxHeight(a.contentHeight()).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, content, a.statusBar.View())
}

func (a *App) contentHeight() int {
	return max(a.height-1, 1)
}

func (a *App) resizeActive() {
	w, h := a.width, a.contentHeight()
	switch a.activeView {
	case ViewProduct:
		a.productView.SetSize(w, h)
	case ViewCheckout:
		a.checkout.SetSize(w, h)
	case ViewOrders:
		a.orderList.SetSize(w, h)
	case ViewOrder:
		a.orderView.SetSize(w, h)
	case ViewAccount:
		a.profile.SetSize(w, h)
	case ViewLogin:
		a.loginForm.SetSize(w, h)
	case ViewRegister:
		a.registerForm.SetSize(w, h)
	case ViewReview:
		a.reviewForm.SetSize(w, h)
	case ViewNotifications:
		a.notifications.SetSize(w, h)
	}
}

func (a *App) pushView(v ViewType) {
	a.previousViews = append(a.previousViews, a.activeView)
	a.activeView = v
	a.resizeActive()
}

func (a *App) goBack() tea.Cmd {
	if len(a.previousViews) > 0 {
		a.activeView = a.previousViews[len(a.previousViews)-1]
		a.previousViews = a.previousViews[:len(a.previousViews)-1]
		a.resizeActive()
	}
	return nil
}

// switchTab jumps to a top-level view, clearing the back stack. Tabs other
// than Products need a signed-in user.
func (a *App) switchTab(v ViewType) tea.Cmd {
	if v != ViewProducts && !a.session.IsAuthenticated() {
		return a.openLogin("")
	}
	a.previousViews = nil
	a.activeView = v
	a.statusBar.SetActiveTab(tabFor(v))

	var cmd tea.Cmd
	switch v {
	case ViewCart:
		a.cart, cmd = a.cart.Load()
	case ViewOrders:
		a.orderList = orderlist.New(a.client)
		cmd = a.orderList.Init()
	case ViewAccount:
		a.profile = profile.New(a.client)
		cmd = a.profile.Init()
	}
	a.resizeActive()
	return cmd
}

// reloadActive refreshes views whose content depends on who is signed in.
func (a *App) reloadActive() tea.Cmd {
	switch a.activeView {
	case ViewCart, ViewOrders, ViewAccount:
		return a.switchTab(a.activeView)
	}
	return nil
}

func tabFor(v ViewType) statusbar.Tab {
	switch v {
	case ViewCart, ViewCheckout:
		return statusbar.TabCart
	case ViewOrders, ViewOrder, ViewNotifications:
		return statusbar.TabOrders
	case ViewAccount:
		return statusbar.TabAccount
	}
	return statusbar.TabProducts
}

func (a *App) openLogin(email string) tea.Cmd {
	if a.activeView == ViewLogin {
		return nil
	}
	a.loginForm = login.New(a.client)
	if email != "" {
		a.loginForm = a.loginForm.WithEmail(email)
	}
	a.pushView(ViewLogin)
	return a.loginForm.Init()
}

func (a *App) userEmail() string {
	if u := a.session.User(); u != nil {
		return u.Email
	}
	return ""
}

func (a *App) signedIn(u *auth.User) {
	if u == nil {
		return
	}
	a.lastEmail = u.Email
	a.statusBar.SetUser(u.DisplayName())
	a.statusBar.SetUnread(a.cache.UnreadNotificationCount(u.Email))
	if a.watcher != nil {
		a.watcher.Start(a.program, u.Email)
	}
	a.log.Info().Str("user", u.Email).Msg("signed in")
}

func (a *App) signedOut() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.statusBar.SetUser("")
	a.statusBar.SetUnread(0)
	a.statusBar.SetCartCount(0)
	a.cart = cart.New(a.client)
	a.cart.SetSize(a.width, a.contentHeight())
}

func (a *App) logout() tea.Cmd {
	client := a.client
	return func() tea.Msg {
		if err := client.Logout(); err != nil {
			return messages.StatusMsg{Text: "Logout failed: " + err.Error(), IsError: true}
		}
		return messages.LoggedOutMsg{}
	}
}

func (a *App) quit() tea.Cmd {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	return tea.Quit
}

var _ watch.Sender = (*tea.Program)(nil)
