package forms

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/shopterm/internal/api"
)

func newTestValidator(now time.Time) *Validator {
	v := New()
	v.now = func() time.Time { return now }
	return v
}

func fieldErrors(t *testing.T, err error) Errors {
	t.Helper()
	require.Error(t, err)
	var fe Errors
	require.True(t, errors.As(err, &fe), "got %T", err)
	return fe
}

func TestLogin(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(Login{Email: "ann@example.com", Password: "x"}))

	fe := fieldErrors(t, v.Validate(Login{Email: "not-an-email"}))
	assert.Equal(t, "Enter a valid email address", fe.Field("email"))
	assert.Equal(t, "This field is required", fe.Field("password"))
}

func TestRegister(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	v := newTestValidator(now)
	valid := Register{
		Email:           "ann@example.com",
		Password:        "long-enough",
		PasswordConfirm: "long-enough",
		FirstName:       "Ann",
		LastName:        "Lee",
		BirthDate:       "1990-04-12",
		Gender:          "female",
	}
	assert.NoError(t, v.Validate(valid))

	tests := []struct {
		name  string
		edit  func(*Register)
		field string
		msg   string
	}{
		{"short password", func(r *Register) { r.Password, r.PasswordConfirm = "short", "short" }, "password", "Must be at least 8 characters"},
		{"mismatch", func(r *Register) { r.PasswordConfirm = "different!" }, "password_confirm", "Passwords do not match"},
		{"bad date", func(r *Register) { r.BirthDate = "12/04/1990" }, "birth_date", "Valid birth date required (YYYY-MM-DD)"},
		{"too young", func(r *Register) { r.BirthDate = "2012-06-02" }, "birth_date", "You must be at least 12 years old"},
		{"gender", func(r *Register) { r.Gender = "other" }, "gender", "Choose one of: male, female"},
		{"first name", func(r *Register) { r.FirstName = "" }, "first_name", "This field is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.edit(&r)
			fe := fieldErrors(t, v.Validate(r))
			assert.Equal(t, tt.msg, fe.Field(tt.field))
		})
	}

	t.Run("exactly twelve", func(t *testing.T) {
		r := valid
		r.BirthDate = "2012-06-01"
		assert.NoError(t, v.Validate(r))
	})
}

func TestShipping(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
	v := newTestValidator(now)

	t.Run("pickup needs store address", func(t *testing.T) {
		fe := fieldErrors(t, v.Validate(Shipping{PhoneNumber: "+1 (555) 123-4567", DeliveryMethod: "pickup"}))
		assert.Equal(t, "Store address is required for pickup", fe.Field("store_address"))
		assert.Empty(t, fe.Field("delivery_address"))

		assert.NoError(t, v.Validate(Shipping{PhoneNumber: "5551234567", DeliveryMethod: "pickup", StoreAddress: "1 Main St"}))
	})

	t.Run("delivery needs address and future time", func(t *testing.T) {
		fe := fieldErrors(t, v.Validate(Shipping{PhoneNumber: "5551234567", DeliveryMethod: "delivery"}))
		assert.Equal(t, "Delivery address is required", fe.Field("delivery_address"))
		assert.Equal(t, "This field is required", fe.Field("delivery_time"))

		fe = fieldErrors(t, v.Validate(Shipping{PhoneNumber: "5551234567", DeliveryMethod: "delivery", DeliveryAddress: "2 High St", DeliveryTime: "2024-06-01 09:00"}))
		assert.Equal(t, "Delivery time must be in the future", fe.Field("delivery_time"))

		fe = fieldErrors(t, v.Validate(Shipping{PhoneNumber: "5551234567", DeliveryMethod: "delivery", DeliveryAddress: "2 High St", DeliveryTime: "tomorrow"}))
		assert.Equal(t, "Use the format YYYY-MM-DD HH:MM", fe.Field("delivery_time"))

		assert.NoError(t, v.Validate(Shipping{PhoneNumber: "5551234567", DeliveryMethod: "delivery", DeliveryAddress: "2 High St", DeliveryTime: "2024-06-02 18:30"}))
	})

	t.Run("phone digits", func(t *testing.T) {
		fe := fieldErrors(t, v.Validate(Shipping{PhoneNumber: "555-1234", DeliveryMethod: "pickup", StoreAddress: "x"}))
		assert.Equal(t, "Invalid phone number", fe.Field("phone_number"))
	})

	t.Run("method", func(t *testing.T) {
		fe := fieldErrors(t, v.Validate(Shipping{PhoneNumber: "5551234567", DeliveryMethod: "drone"}))
		assert.Equal(t, "Choose one of: delivery, pickup", fe.Field("delivery_method"))
	})
}

func TestShipping_Request(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)

	req, err := Shipping{
		PhoneNumber:     " 5551234567 ",
		DeliveryMethod:  "delivery",
		DeliveryAddress: "2 High St",
		DeliveryTime:    "2024-06-02 18:30",
		StoreAddress:    "ignored",
	}.Request(loc)
	require.NoError(t, err)
	assert.Equal(t, api.DeliveryMethodDelivery, req.DeliveryMethod)
	assert.Equal(t, "5551234567", req.PhoneNumber)
	assert.Empty(t, req.StoreAddress)
	require.NotNil(t, req.DeliveryTime)
	assert.Equal(t, time.Date(2024, 6, 2, 16, 30, 0, 0, time.UTC), *req.DeliveryTime)

	req, err = Shipping{PhoneNumber: "5551234567", DeliveryMethod: "pickup", StoreAddress: "1 Main St", DeliveryAddress: "x"}.Request(loc)
	require.NoError(t, err)
	assert.Nil(t, req.DeliveryTime)
	assert.Empty(t, req.DeliveryAddress)
	assert.Equal(t, "1 Main St", req.StoreAddress)
}

func TestReviewAndQuantity(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(Review{Rating: 5, Text: "Great kettle"}))

	fe := fieldErrors(t, v.Validate(Review{Rating: 6, Text: "x"}))
	assert.Equal(t, "Must be at most 5", fe.Field("rating"))

	fe = fieldErrors(t, v.Validate(Review{Text: "x"}))
	assert.Equal(t, "This field is required", fe.Field("rating"))

	assert.NoError(t, v.Validate(Quantity{Quantity: 3, Stock: 3}))
	assert.NoError(t, v.Validate(Quantity{Quantity: 9}))

	fe = fieldErrors(t, v.Validate(Quantity{Quantity: 4, Stock: 3}))
	assert.Equal(t, "Only 3 items available in stock", fe.Field("quantity"))

	fe = fieldErrors(t, v.Validate(Quantity{Quantity: 0, Stock: 3}))
	assert.Equal(t, "Must be at least 1", fe.Field("quantity"))
}

func TestFromAPI(t *testing.T) {
	err := &api.Error{StatusCode: 400, Fields: map[string][]string{"email": {"user with this email already exists."}}}
	fe := FromAPI(err)
	assert.Equal(t, "user with this email already exists.", fe.Field("email"))

	assert.Nil(t, FromAPI(errors.New("boom")))
	assert.Nil(t, FromAPI(&api.Error{StatusCode: 500}))
}
