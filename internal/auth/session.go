package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotAuthenticated is returned when an operation needs a session that has
// been logged out in the meantime.
var ErrNotAuthenticated = errors.New("not authenticated")

// User is the account profile returned by /auth/me/.
type User struct {
	ID              int    `json:"id"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Age             *int   `json:"age,omitempty"`
	BirthDate       string `json:"birth_date,omitempty"`
	Gender          string `json:"gender,omitempty"`
	IsStaff         bool   `json:"is_staff"`
	IsEmailVerified bool   `json:"is_email_verified"`
}

// DisplayName returns "First Last", falling back to the email address.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

// State is the persisted authentication state.
type State struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// IsAuthenticated reports whether an access credential is present.
func (st State) IsAuthenticated() bool {
	return st.AccessToken != ""
}

func (st State) clone() State {
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Session owns the authentication state for one client. Every mutation is
// written through to the Store.
type Session struct {
	mu    sync.Mutex
	state State
	store Store
	log   zerolog.Logger
}

// NewSession creates an empty session backed by store. Call Restore to load
// previously persisted state.
func NewSession(store Store, log zerolog.Logger) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Session{store: store, log: log}
}

// Restore loads the persisted state. A missing state is not an error.
func (s *Session) Restore() error {
	st, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	s.mu.Lock()
	s.state = st.clone()
	s.mu.Unlock()
	if st.IsAuthenticated() {
		s.log.Debug().Str("user", st.User.DisplayName()).Msg("session restored")
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AccessToken
}

func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RefreshToken
}

// User returns a copy of the profile, or nil.
func (s *Session) User() *User {
	return s.Snapshot().User
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsAuthenticated()
}

// SetTokens replaces both credentials.
func (s *Session) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AccessToken = access
	s.state.RefreshToken = refresh
	return s.persistLocked()
}

// SetUser stores the profile of the signed-in user.
func (s *Session) SetUser(u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.User = &u
	return s.persistLocked()
}

// Logout clears credentials and profile, in memory and in the store.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
	if err := s.store.Clear(); err != nil {
		s.log.Error().Err(err).Msg("clearing persisted session")
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// EndIf clears the session only if it still holds exactly the given
// credentials, so a concurrent fresh login is not undone. It reports whether
// a session was actually ended.
func (s *Session) EndIf(access, refresh string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.AccessToken != access || s.state.RefreshToken != refresh {
		return false, nil
	}
	had := s.state.AccessToken != "" || s.state.RefreshToken != "" || s.state.User != nil
	s.state = State{}
	if err := s.store.Clear(); err != nil {
		return had, fmt.Errorf("clearing session: %w", err)
	}
	return had, nil
}

// ApplyRefresh installs the result of a refresh exchange that consumed the
// refresh credential `consumed`. It applies only if the session still holds
// that credential. An empty rotated keeps the existing refresh credential.
func (s *Session) ApplyRefresh(consumed, access, rotated string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.RefreshToken == "" || s.state.RefreshToken != consumed {
		return false, nil
	}
	s.state.AccessToken = access
	if rotated != "" {
		s.state.RefreshToken = rotated
	}
	return true, s.persistLocked()
}

// AccessExpiry returns the expiry encoded in the access credential, if any.
func (s *Session) AccessExpiry() (time.Time, bool) {
	return AccessExpiry(s.AccessToken())
}

func (s *Session) persistLocked() error {
	if err := s.store.Save(s.state.clone()); err != nil {
		s.log.Error().Err(err).Msg("persisting session")
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}
