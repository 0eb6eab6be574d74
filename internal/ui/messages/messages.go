package messages

import (
	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/auth"
)

// View transition messages.
type (
	OpenProductMsg struct{ ProductID int }
	OpenOrderMsg   struct{ OrderID int }
	OpenReviewMsg  struct {
		ProductID   int
		ProductName string
	}
	OpenCheckoutMsg struct{}
	OpenLoginMsg    struct{}
	OpenRegisterMsg struct{}
	GoBackMsg       struct{}
)

// Data messages.
type (
	ProductsLoadedMsg struct {
		Query api.ProductQuery
		Page  *api.Page[api.Product]
		// Stale is set when the page came from the cache because the API
		// could not be reached.
		Stale bool
		Err   error
	}

	CategoriesLoadedMsg struct {
		Categories []api.Category
		Err        error
	}

	ProductLoadedMsg struct {
		ProductID int
		Detail    *api.ProductDetail
		Stale     bool
		Err       error
	}

	CartLoadedMsg struct {
		Cart *api.Cart
		// Stock maps product id to units available, for the products in
		// the cart that could be fetched.
		Stock map[int]int
		Err   error
	}

	// CartUpdatedMsg follows an add, update or remove.
	CartUpdatedMsg struct {
		Cart   *api.Cart
		Action string
		Err    error
	}

	OrdersLoadedMsg struct {
		Orders []api.Order
		Err    error
	}

	OrderLoadedMsg struct {
		OrderID int
		Order   *api.Order
		Err     error
	}

	OrderPlacedMsg struct {
		Result *api.CreateOrderResponse
		Err    error
	}

	LoginResultMsg struct {
		User *auth.User
		Err  error
	}

	RegisterResultMsg struct {
		Email string
		Err   error
	}

	ProfileUpdatedMsg struct {
		User *auth.User
		Err  error
	}

	ReviewResultMsg struct {
		ProductID int
		Err       error
	}

	NewNotificationMsg struct {
		UnreadCount int
		Changes     int
	}

	StatusMsg struct {
		Text    string
		IsError bool
	}

	SessionRestoredMsg struct {
		User *auth.User
	}

	// SessionTerminatedMsg is delivered when the gateway could not recover
	// an expired session. The app returns to the login view.
	SessionTerminatedMsg struct {
		Err error
	}

	LoggedOutMsg struct{}
)
