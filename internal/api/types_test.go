package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimal_UnmarshalVariants(t *testing.T) {
	var p struct {
		A Decimal `json:"a"`
		B Decimal `json:"b"`
		C Decimal `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"19.90","b":4.5,"c":null}`), &p))
	assert.Equal(t, Decimal("19.90"), p.A)
	assert.Equal(t, Decimal("4.5"), p.B)
	assert.Equal(t, Decimal(""), p.C)
}

func TestDecimal_Cents(t *testing.T) {
	tests := []struct {
		in   Decimal
		want int64
	}{
		{"19.90", 1990},
		{"19.9", 1990},
		{"20", 2000},
		{"0.005", 1},
		{"1234.504", 123450},
		{"-3.25", -325},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			got, err := tt.in.Cents()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Decimal("abc").Cents()
	assert.Error(t, err)
}

func TestCart_Totals(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{ProductPrice: "10.50", Quantity: 2},
		{ProductPrice: "0.99", Quantity: 3},
	}}
	assert.Equal(t, int64(2397), cart.TotalCents())
	assert.Equal(t, 5, cart.ItemCount())
}

func TestProductQuery_Values(t *testing.T) {
	q := ProductQuery{Page: 2, PageSize: 16, Search: " tea ", MinPrice: "5", Ordering: "-price"}
	v := q.Values()
	assert.Equal(t, "2", v.Get("page"))
	assert.Equal(t, "16", v.Get("page_size"))
	assert.Equal(t, "tea", v.Get("search"))
	assert.Equal(t, "5", v.Get("min_price"))
	assert.Equal(t, "-price", v.Get("ordering"))
	assert.False(t, v.Has("category"))
	assert.False(t, v.Has("max_price"))

	assert.Equal(t, q.Key(), ProductQuery{Page: 2, PageSize: 16, Search: "tea", MinPrice: "5", Ordering: "-price"}.Key())
}

func TestDecodeList_ArrayOrPage(t *testing.T) {
	arr, err := decodeList[Order]([]byte(`[{"id":1},{"id":2}]`))
	require.NoError(t, err)
	assert.Len(t, arr, 2)

	page, err := decodeList[Order]([]byte(`{"count":1,"next":null,"previous":null,"results":[{"id":3}]}`))
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 3, page[0].ID)
}

func TestNewError_DRFShapes(t *testing.T) {
	req := &Request{Method: http.MethodPost, Path: "/auth/register/"}

	t.Run("detail", func(t *testing.T) {
		e := newError(req, &Response{StatusCode: 403, Body: []byte(`{"detail":"You must purchase this product"}`)})
		assert.Equal(t, "You must purchase this product", e.Message())
		assert.True(t, e.IsForbidden())
	})

	t.Run("field lists", func(t *testing.T) {
		e := newError(req, &Response{StatusCode: 400, Body: []byte(`{"email":["user with this email already exists."],"password":"too short"}`)})
		assert.Equal(t, "user with this email already exists.", e.FieldError("email"))
		assert.Equal(t, "too short", e.FieldError("password"))
		assert.Equal(t, "email: user with this email already exists.", e.Message())
	})

	t.Run("non field errors", func(t *testing.T) {
		e := newError(req, &Response{StatusCode: 400, Body: []byte(`{"non_field_errors":["Cart is empty."]}`)})
		assert.Equal(t, "Cart is empty.", e.Message())
	})

	t.Run("not json", func(t *testing.T) {
		e := newError(req, &Response{StatusCode: 502, Body: []byte(`<html>bad gateway</html>`)})
		assert.Equal(t, "Bad Gateway", e.Message())
		assert.Contains(t, e.Error(), "HTTP 502")
	})
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	e := &Error{StatusCode: 404, Detail: "Not found."}
	assert.Equal(t, "Not found.", Message(e))
	assert.True(t, IsStatus(e, http.StatusNotFound))
	assert.True(t, e.IsNotFound())

	ended := fmt.Errorf("%w: %w", ErrSessionTerminated, errors.New("dial tcp: refused"))
	assert.Equal(t, "Your session has expired. Please log in again.", Message(ended))
}
