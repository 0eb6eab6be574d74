package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fragmede/shopterm/internal/auth"
)

const maxConcurrent = 8

// Client is the shop API client. All calls go through the gateway.
type Client struct {
	gw *Gateway

	// newIdempotencyKey returns a fresh key per order submission.
	newIdempotencyKey func() string
}

// NewClient creates a client on top of gw.
func NewClient(gw *Gateway) *Client {
	return &Client{
		gw:                gw,
		newIdempotencyKey: uuid.NewString,
	}
}

// Gateway returns the underlying gateway.
func (c *Client) Gateway() *Gateway {
	return c.gw
}

// Session returns the session the client acts for.
func (c *Client) Session() *auth.Session {
	return c.gw.Session()
}

// do builds and sends a request, decoding a successful JSON body into dst.
func (c *Client) do(ctx context.Context, req *Request, dst any) error {
	resp, err := c.gw.Send(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(dst)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dst any) error {
	req, err := NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	req.Query = query
	return c.do(ctx, req, dst)
}

func (c *Client) post(ctx context.Context, path string, body, dst any) error {
	req, err := NewRequest(http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return c.do(ctx, req, dst)
}

// getList fetches a list endpoint that may answer with a bare array or a
// paginated envelope.
func getList[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	req, err := NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Query = query
	resp, err := c.gw.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeList[T](resp.Body)
}

// BatchGetProducts fetches multiple products concurrently with a concurrency
// limit. Returns products in the same order as the input IDs. Failed fetches
// are nil.
func (c *Client) BatchGetProducts(ctx context.Context, ids []int) ([]*Product, error) {
	results := make([]*Product, len(ids))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, id := range ids {
		g.Go(func() error {
			p, err := c.GetProduct(ctx, id)
			if err != nil {
				// Non-fatal: individual products can fail.
				return nil
			}
			mu.Lock()
			results[i] = p
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Health checks backend liveness. The endpoint lives at the server root,
// outside the API prefix.
func (c *Client) Health(ctx context.Context) error {
	root, err := url.Parse(c.gw.BaseURL())
	if err != nil {
		return fmt.Errorf("parsing base URL: %w", err)
	}
	root.Path = "/health/"
	req, err := NewRequest(http.MethodGet, root.String(), nil)
	if err != nil {
		return err
	}
	req.Anonymous = true
	_, err = c.gw.Send(ctx, req)
	return err
}
