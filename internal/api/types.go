package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Decimal is a money or rating amount as sent by the backend: usually a
// string ("19.90"), sometimes a bare number, sometimes null.
type Decimal string

func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Decimal(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decimal: %w", err)
	}
	*d = Decimal(n.String())
	return nil
}

func (d Decimal) String() string { return string(d) }

// Cents converts the amount to hundredths, rounding half away from zero
// beyond two decimal places.
func (d Decimal) Cents() (int64, error) {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return 0, nil
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", string(d))
	}
	for len(frac) < 3 {
		frac += "0"
	}
	f, err := strconv.ParseInt(frac[:3], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", string(d))
	}
	cents := w*100 + (f+5)/10
	if neg {
		cents = -cents
	}
	return cents, nil
}

// Float returns the amount as a float for display (ratings).
func (d Decimal) Float() float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(string(d)), 64)
	return f
}

// Page is the paginated list envelope.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func (p *Page[T]) HasNext() bool { return p.Next != nil && *p.Next != "" }

// decodeList accepts either a bare JSON array or a Page envelope.
func decodeList[T any](body []byte) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decoding list: %w", err)
		}
		return items, nil
	}
	var page Page[T]
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decoding page: %w", err)
	}
	return page.Results, nil
}

// TokenPair is returned by the login endpoint.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
	Gender    string `json:"gender"`
}

// ProfileUpdate is the PATCH body for /auth/me/. Email is not editable.
type ProfileUpdate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date,omitempty"`
	Gender    string `json:"gender,omitempty"`
}

type Category struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Slug     string     `json:"slug"`
	Parent   *int       `json:"parent"`
	Children []Category `json:"children"`
}

type ProductImage struct {
	ID     int    `json:"id"`
	Image  string `json:"image"`
	IsMain bool   `json:"is_main"`
}

type ProductAttributeValue struct {
	Attribute string `json:"attribute"`
	Slug      string `json:"slug"`
	Value     any    `json:"value"`
}

// Display formats the attribute value.
func (a ProductAttributeValue) Display() string {
	switch v := a.Value.(type) {
	case nil:
		return "-"
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

type Product struct {
	ID           int                     `json:"id"`
	Name         string                  `json:"name"`
	Slug         string                  `json:"slug"`
	Description  string                  `json:"description"`
	Price        Decimal                 `json:"price"`
	OldPrice     Decimal                 `json:"old_price,omitempty"`
	Stock        int                     `json:"stock"`
	Images       []ProductImage          `json:"images,omitempty"`
	MainImage    string                  `json:"main_image,omitempty"`
	Rating       Decimal                 `json:"rating"`
	ReviewsCount int                     `json:"reviews_count"`
	Attributes   []ProductAttributeValue `json:"attributes,omitempty"`
	CreatedAt    time.Time               `json:"created_at,omitempty"`
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool { return p.Stock > 0 }

// ProductQuery holds the catalog list filters.
type ProductQuery struct {
	Page     int
	PageSize int
	Search   string
	Category string
	MinPrice string
	MaxPrice string
	// Ordering is a backend ordering field, e.g. "price" or "-rating".
	Ordering string
}

// Values encodes the query for GET /products/.
func (q ProductQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	set := func(k, val string) {
		if val = strings.TrimSpace(val); val != "" {
			v.Set(k, val)
		}
	}
	set("search", q.Search)
	set("category", q.Category)
	set("min_price", q.MinPrice)
	set("max_price", q.MaxPrice)
	set("ordering", q.Ordering)
	return v
}

// Key is a stable cache key for the query.
func (q ProductQuery) Key() string {
	return q.Values().Encode()
}

type Review struct {
	ID        int       `json:"id"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	UserEmail string    `json:"user_email"`
	CreatedAt time.Time `json:"created_at"`
}

type ReviewRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

type CartItem struct {
	ID           int     `json:"id"`
	Product      int     `json:"product"`
	ProductName  string  `json:"product_name"`
	ProductPrice Decimal `json:"product_price"`
	Quantity     int     `json:"quantity"`
}

// SubtotalCents is price times quantity.
func (it CartItem) SubtotalCents() int64 {
	c, _ := it.ProductPrice.Cents()
	return c * int64(it.Quantity)
}

type Cart struct {
	ID    int        `json:"id"`
	Items []CartItem `json:"items"`
}

// TotalCents sums all line subtotals.
func (c *Cart) TotalCents() int64 {
	var total int64
	for _, it := range c.Items {
		total += it.SubtotalCents()
	}
	return total
}

// ItemCount sums quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "delivery"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

type OrderItem struct {
	Product     int     `json:"product"`
	ProductName string  `json:"product_name"`
	Price       Decimal `json:"price"`
	Quantity    int     `json:"quantity"`
	MainImage   string  `json:"main_image,omitempty"`
}

type OrderStatusHistory struct {
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status"`
	ChangedBy  string      `json:"changed_by"`
	Comment    string      `json:"comment"`
	CreatedAt  time.Time   `json:"created_at"`
}

type Order struct {
	ID              int                  `json:"id"`
	Status          OrderStatus          `json:"status"`
	DeliveryMethod  DeliveryMethod       `json:"delivery_method"`
	PhoneNumber     string               `json:"phone_number"`
	DeliveryAddress string               `json:"delivery_address,omitempty"`
	DeliveryTime    *time.Time           `json:"delivery_time,omitempty"`
	StoreAddress    string               `json:"store_address,omitempty"`
	TotalPrice      Decimal              `json:"total_price"`
	CreatedAt       time.Time            `json:"created_at"`
	Items           []OrderItem          `json:"items"`
	StatusHistory   []OrderStatusHistory `json:"status_history"`
}

// CreateOrderRequest is the checkout payload.
type CreateOrderRequest struct {
	PhoneNumber     string         `json:"phone_number"`
	DeliveryMethod  DeliveryMethod `json:"delivery_method"`
	DeliveryAddress string         `json:"delivery_address,omitempty"`
	DeliveryTime    *time.Time     `json:"delivery_time"`
	StoreAddress    string         `json:"store_address,omitempty"`
	CustomerEmail   string         `json:"customer_email,omitempty"`
}

type CreateOrderResponse struct {
	OrderID        int            `json:"order_id"`
	Status         OrderStatus    `json:"status"`
	TotalPrice     Decimal        `json:"total_price"`
	DeliveryMethod DeliveryMethod `json:"delivery_method"`
}
