package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fragmede/shopterm/internal/auth"
)

const (
	loginPath    = "/auth/login/"
	registerPath = "/auth/register/"
	mePath       = "/auth/me/"
)

// Login exchanges email and password for credentials, stores them in the
// session and loads the profile. A wrong password comes back as a 401
// *Error and leaves the session untouched.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.User, error) {
	req, err := NewRequest(http.MethodPost, loginPath, LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	req.Anonymous = true

	var tokens TokenPair
	if err := c.do(ctx, req, &tokens); err != nil {
		return nil, err
	}
	if tokens.Access == "" {
		return nil, fmt.Errorf("login response carried no access credential")
	}

	session := c.Session()
	if err := session.SetTokens(tokens.Access, tokens.Refresh); err != nil {
		return nil, err
	}

	user, err := c.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if err := session.SetUser(*user); err != nil {
		return nil, err
	}
	return user, nil
}

// Register creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, r RegisterRequest) (*auth.User, error) {
	req, err := NewRequest(http.MethodPost, registerPath, r)
	if err != nil {
		return nil, err
	}
	req.Anonymous = true

	var user auth.User
	if err := c.do(ctx, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me fetches the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (*auth.User, error) {
	var user auth.User
	if err := c.get(ctx, mePath, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateMe patches the profile and refreshes the copy held by the session.
func (c *Client) UpdateMe(ctx context.Context, p ProfileUpdate) (*auth.User, error) {
	req, err := NewRequest(http.MethodPatch, mePath, p)
	if err != nil {
		return nil, err
	}
	var user auth.User
	if err := c.do(ctx, req, &user); err != nil {
		return nil, err
	}
	if err := c.Session().SetUser(user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout clears the local session. The backend keeps no server-side session.
func (c *Client) Logout() error {
	return c.Session().Logout()
}
