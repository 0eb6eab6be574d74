package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/fragmede/shopterm/internal/auth"
)

// RefreshPath is the refresh exchange endpoint. Requests to it are never
// intercepted.
const RefreshPath = "/auth/refresh/"

const userAgent = "shopterm/1.0"

var (
	// ErrSessionTerminated wraps the refresh failure returned to a caller
	// whose request could not be recovered.
	ErrSessionTerminated = errors.New("session terminated")
	// ErrNoRefreshCredential is logged when a 401 arrives without a refresh
	// credential to exchange.
	ErrNoRefreshCredential = errors.New("no refresh credential")
)

// Request describes one outbound call. The body is kept in memory so the
// request can be replayed after a credential refresh.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte

	// Anonymous requests are sent without a bearer credential and a 401 on
	// them is returned as-is (login, registration: bad credentials are not
	// an expired session).
	Anonymous bool

	retried bool
	bearer  string
}

// NewRequest builds a request with body encoded as JSON. A nil body sends
// no payload.
func NewRequest(method, path string, body any) (*Request, error) {
	req := &Request{Method: method, Path: path, Header: make(http.Header)}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		req.Body = data
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Retried reports whether the request has already been through a refresh
// recovery.
func (r *Request) Retried() bool {
	return r.retried
}

func (r *Request) setBearer(token string) {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set("Authorization", "Bearer "+token)
	r.bearer = token
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into dst.
func (r *Response) Decode(dst any) error {
	if dst == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, dst); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

type GatewayConfig struct {
	BaseURL           string
	RequestTimeout    time.Duration
	RefreshTimeout    time.Duration
	RequestsPerSecond float64
}

type GatewayOption func(*Gateway)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) { g.http = c }
}

func WithLogger(l zerolog.Logger) GatewayOption {
	return func(g *Gateway) { g.log = l }
}

// WithSessionTerminated subscribes fn to session-terminated events.
func WithSessionTerminated(fn func(error)) GatewayOption {
	return func(g *Gateway) { g.onTerminated = append(g.onTerminated, fn) }
}

// Gateway sends requests on behalf of a session: it attaches the bearer
// credential, and recovers once from an expired access credential by
// exchanging the refresh credential and replaying the request. Concurrent
// recoveries share a single exchange.
type Gateway struct {
	baseURL        string
	http           *http.Client
	session        *auth.Session
	limiter        *rate.Limiter
	refreshTimeout time.Duration
	refreshes      singleflight.Group
	log            zerolog.Logger

	mu           sync.Mutex
	onTerminated []func(error)
}

// NewGateway creates a gateway for session.
func NewGateway(cfg GatewayConfig, session *auth.Session, opts ...GatewayOption) *Gateway {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 20
	}
	refreshTimeout := cfg.RefreshTimeout
	if refreshTimeout <= 0 {
		refreshTimeout = 10 * time.Second
	}
	g := &Gateway{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           &http.Client{Timeout: cfg.RequestTimeout},
		session:        session,
		limiter:        rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		refreshTimeout: refreshTimeout,
		log:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Session returns the session the gateway acts for.
func (g *Gateway) Session() *auth.Session {
	return g.session
}

// BaseURL returns the API root without a trailing slash.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// OnSessionTerminated subscribes fn to session-terminated events. fn is
// called after the session has been cleared, from the goroutine whose
// request failed.
func (g *Gateway) OnSessionTerminated(fn func(error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onTerminated = append(g.onTerminated, fn)
}

// Send transmits req. Statuses >= 400 are returned as *Error; transport
// failures are returned wrapped and leave the session untouched.
func (g *Gateway) Send(ctx context.Context, req *Request) (*Response, error) {
	if !req.Anonymous {
		if token := g.session.AccessToken(); token != "" {
			req.setBearer(token)
		}
	}

	resp, err := g.transmit(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || req.retried || req.Anonymous || isRefreshPath(req.Path) {
		return finish(req, resp)
	}
	return g.recover(ctx, req, resp)
}

// recover handles the first 401 seen by req.
func (g *Gateway) recover(ctx context.Context, req *Request, resp *Response) (*Response, error) {
	req.retried = true
	original := newError(req, resp)
	st := g.session.Snapshot()

	if st.RefreshToken == "" {
		g.log.Info().Str("path", req.Path).Err(ErrNoRefreshCredential).Msg("unauthorized; clearing session")
		g.terminate(st, original)
		return nil, original
	}

	// Another request refreshed while this one was in flight.
	if st.AccessToken != "" && st.AccessToken != req.bearer {
		g.log.Debug().Str("path", req.Path).Msg("credential already refreshed; replaying")
		return g.Send(ctx, req)
	}

	access, err := g.refresh(ctx, st.RefreshToken, req.bearer)
	if err != nil {
		g.log.Warn().Err(err).Str("path", req.Path).Msg("refresh failed; clearing session")
		failure := fmt.Errorf("%w: %w", ErrSessionTerminated, err)
		g.terminate(st, failure)
		return nil, failure
	}

	req.setBearer(access)
	return g.Send(ctx, req)
}

// refresh exchanges refreshToken for a new access credential. Callers racing
// on the same refresh credential share one exchange. stale is the access
// credential that was rejected.
func (g *Gateway) refresh(ctx context.Context, refreshToken, stale string) (string, error) {
	v, err, shared := g.refreshes.Do(refreshToken, func() (any, error) {
		// A flight that finished just before this one started already
		// replaced the rejected credential.
		if current := g.session.AccessToken(); current != "" && current != stale {
			return current, nil
		}
		return g.exchange(context.WithoutCancel(ctx), refreshToken)
	})
	if err != nil {
		return "", err
	}
	g.log.Debug().Bool("shared", shared).Msg("access credential refreshed")
	return v.(string), nil
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// exchange performs the refresh call outside of Send so its own 401 is never
// intercepted. It does not inherit the caller's deadline.
func (g *Gateway) exchange(ctx context.Context, refreshToken string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.refreshTimeout)
	defer cancel()

	req, err := NewRequest(http.MethodPost, RefreshPath, refreshRequest{Refresh: refreshToken})
	if err != nil {
		return "", err
	}
	req.Anonymous = true

	resp, err := g.transmitDirect(ctx, req)
	if err != nil {
		return "", err
	}
	if _, err := finish(req, resp); err != nil {
		return "", err
	}

	var out refreshResponse
	if err := resp.Decode(&out); err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", fmt.Errorf("refresh response carried no access credential")
	}

	applied, err := g.session.ApplyRefresh(refreshToken, out.Access, out.Refresh)
	if err != nil {
		return "", err
	}
	if !applied {
		return "", fmt.Errorf("discarding refreshed credential: %w", auth.ErrNotAuthenticated)
	}
	return out.Access, nil
}

// terminate clears the session if it still holds the credentials seen in
// st, and notifies subscribers when there was a session to end.
func (g *Gateway) terminate(st auth.State, cause error) {
	ended, err := g.session.EndIf(st.AccessToken, st.RefreshToken)
	if err != nil {
		g.log.Error().Err(err).Msg("logout after unauthorized")
	}
	if !ended {
		return
	}

	g.mu.Lock()
	subs := slices.Clone(g.onTerminated)
	g.mu.Unlock()
	for _, fn := range subs {
		fn(cause)
	}
}

func (g *Gateway) transmit(ctx context.Context, req *Request) (*Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s %s: waiting for rate limiter: %w", req.Method, req.Path, err)
	}
	return g.transmitDirect(ctx, req)
}

func (g *Gateway) transmitDirect(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, g.url(req), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Anonymous {
		httpReq.Header.Del("Authorization")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := g.http.Do(httpReq)
	if err != nil {
		g.log.Debug().Err(err).Str("method", req.Method).Str("path", req.Path).Msg("transport failure")
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s %s: %w", req.Method, req.Path, err)
	}

	g.log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Bool("retried", req.retried).
		Dur("took", time.Since(start)).
		Msg("request")

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (g *Gateway) url(req *Request) string {
	u := req.Path
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = g.baseURL + u
	}
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

func isRefreshPath(path string) bool {
	return strings.Contains(path, RefreshPath)
}

func finish(req *Request, resp *Response) (*Response, error) {
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newError(req, resp)
	}
	return resp, nil
}
