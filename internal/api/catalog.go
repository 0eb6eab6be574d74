package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// ListProducts fetches one page of the catalog.
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (*Page[Product], error) {
	var page Page[Product]
	if err := c.get(ctx, "/products/", q.Values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProduct fetches a single product by ID.
func (c *Client) GetProduct(ctx context.Context, id int) (*Product, error) {
	var p Product
	if err := c.get(ctx, fmt.Sprintf("/products/%d/", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListCategories returns all categories, following pagination.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var all []Category
	for page := 1; ; page++ {
		q := url.Values{"page": {strconv.Itoa(page)}}
		var p Page[Category]
		if err := c.get(ctx, "/categories/", q, &p); err != nil {
			if page > 1 && IsStatus(err, http.StatusNotFound) {
				break
			}
			return nil, err
		}
		all = append(all, p.Results...)
		if !p.HasNext() {
			break
		}
	}
	return all, nil
}

// ListReviews fetches one page of reviews for a product, newest first.
func (c *Client) ListReviews(ctx context.Context, productID, page int) (*Page[Review], error) {
	q := url.Values{"ordering": {"-created_at"}}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	var p Page[Review]
	if err := c.get(ctx, fmt.Sprintf("/products/%d/reviews/", productID), q, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateReview posts a review. The backend answers 403 when the user has not
// bought the product.
func (c *Client) CreateReview(ctx context.Context, productID int, r ReviewRequest) (*Review, error) {
	var out Review
	if err := c.post(ctx, fmt.Sprintf("/products/%d/reviews/", productID), r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProductDetail is a product together with its first page of reviews.
type ProductDetail struct {
	Product *Product
	Reviews *Page[Review]
}

// GetProductDetail loads the product and its reviews concurrently. A review
// failure is not fatal.
func (c *Client) GetProductDetail(ctx context.Context, id int) (*ProductDetail, error) {
	var d ProductDetail
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		d.Product = p
		return nil
	})
	g.Go(func() error {
		reviews, err := c.ListReviews(ctx, id, 1)
		if err != nil {
			return nil
		}
		d.Reviews = reviews
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if d.Reviews == nil {
		d.Reviews = &Page[Review]{}
	}
	return &d, nil
}
