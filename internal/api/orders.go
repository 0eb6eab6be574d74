package api

import (
	"context"
	"fmt"
	"net/http"
)

// IdempotencyKeyHeader carries the per-submission key on order creation.
const IdempotencyKeyHeader = "Idempotency-Key"

type addToCartRequest struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type updateCartRequest struct {
	ItemID   int `json:"item_id"`
	Quantity int `json:"quantity"`
}

type removeFromCartRequest struct {
	ItemID int `json:"item_id"`
}

// GetCart fetches the signed-in user's cart.
func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.get(ctx, "/cart/", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) AddToCart(ctx context.Context, productID, quantity int) (*Cart, error) {
	var cart Cart
	if err := c.post(ctx, "/cart/add/", addToCartRequest{ProductID: productID, Quantity: quantity}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) UpdateCartItem(ctx context.Context, itemID, quantity int) (*Cart, error) {
	var cart Cart
	if err := c.post(ctx, "/cart/update/", updateCartRequest{ItemID: itemID, Quantity: quantity}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) RemoveCartItem(ctx context.Context, itemID int) (*Cart, error) {
	var cart Cart
	if err := c.post(ctx, "/cart/remove/", removeFromCartRequest{ItemID: itemID}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// ListOrders returns the user's orders, newest first.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	return getList[Order](ctx, c, "/orders/", nil)
}

func (c *Client) GetOrder(ctx context.Context, id int) (*Order, error) {
	var o Order
	if err := c.get(ctx, fmt.Sprintf("/orders/%d/", id), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder checks out the cart. Each call is one submission and gets a
// fresh idempotency key; a replay after a credential refresh resends the
// same request and therefore the same key.
func (c *Client) CreateOrder(ctx context.Context, r CreateOrderRequest) (*CreateOrderResponse, error) {
	req, err := NewRequest(http.MethodPost, "/orders/create/", r)
	if err != nil {
		return nil, err
	}
	req.Header.Set(IdempotencyKeyHeader, c.newIdempotencyKey())

	var out CreateOrderResponse
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
