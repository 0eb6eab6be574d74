// Package forms validates user input before it is sent to the API. Field
// names follow the API's JSON names so server-side validation messages can
// be shown next to the same inputs.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fragmede/shopterm/internal/api"
)

// DateLayout is the input format for birth dates.
const DateLayout = "2006-01-02"

// DateTimeLayout is the input format for delivery times, in local time.
const DateTimeLayout = "2006-01-02 15:04"

// MinAge is the youngest age the backend accepts at registration.
const MinAge = 12

type Login struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type Register struct {
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=8"`
	PasswordConfirm string `form:"password_confirm" validate:"required,eqfield=Password"`
	FirstName       string `form:"first_name" validate:"required,max=150"`
	LastName        string `form:"last_name" validate:"required,max=150"`
	BirthDate       string `form:"birth_date" validate:"required,birthdate"`
	Gender          string `form:"gender" validate:"required,oneof=male female"`
}

// Request converts the form to the registration payload.
func (f Register) Request() api.RegisterRequest {
	return api.RegisterRequest{
		Email:     strings.TrimSpace(f.Email),
		Password:  f.Password,
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		BirthDate: strings.TrimSpace(f.BirthDate),
		Gender:    f.Gender,
	}
}

type Profile struct {
	FirstName string `form:"first_name" validate:"required,max=150"`
	LastName  string `form:"last_name" validate:"required,max=150"`
	BirthDate string `form:"birth_date" validate:"omitempty,birthdate"`
	Gender    string `form:"gender" validate:"omitempty,oneof=male female"`
}

func (f Profile) Request() api.ProfileUpdate {
	return api.ProfileUpdate{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		BirthDate: strings.TrimSpace(f.BirthDate),
		Gender:    f.Gender,
	}
}

// Shipping is the first checkout step. Delivery needs an address and a
// future delivery time; pickup needs a store address.
type Shipping struct {
	PhoneNumber     string `form:"phone_number" validate:"required,max=20,phone"`
	DeliveryMethod  string `form:"delivery_method" validate:"required,oneof=delivery pickup"`
	DeliveryAddress string `form:"delivery_address"`
	DeliveryTime    string `form:"delivery_time"`
	StoreAddress    string `form:"store_address"`
	CustomerEmail   string `form:"customer_email" validate:"omitempty,email"`
}

// Request converts a validated form to the order payload. The delivery time
// is interpreted in loc.
func (f Shipping) Request(loc *time.Location) (api.CreateOrderRequest, error) {
	req := api.CreateOrderRequest{
		PhoneNumber:    strings.TrimSpace(f.PhoneNumber),
		DeliveryMethod: api.DeliveryMethod(f.DeliveryMethod),
		CustomerEmail:  strings.TrimSpace(f.CustomerEmail),
	}
	switch req.DeliveryMethod {
	case api.DeliveryMethodDelivery:
		req.DeliveryAddress = strings.TrimSpace(f.DeliveryAddress)
		t, err := time.ParseInLocation(DateTimeLayout, strings.TrimSpace(f.DeliveryTime), loc)
		if err != nil {
			return req, fmt.Errorf("parsing delivery time: %w", err)
		}
		t = t.UTC()
		req.DeliveryTime = &t
	case api.DeliveryMethodPickup:
		req.StoreAddress = strings.TrimSpace(f.StoreAddress)
	}
	return req, nil
}

type Review struct {
	Rating int    `form:"rating" validate:"required,min=1,max=5"`
	Text   string `form:"text" validate:"required,max=2000"`
}

func (f Review) Request() api.ReviewRequest {
	return api.ReviewRequest{Rating: f.Rating, Text: strings.TrimSpace(f.Text)}
}

// Quantity checks a cart quantity against the known stock. Stock 0 means
// unknown and is left to the backend.
type Quantity struct {
	Quantity int `form:"quantity" validate:"min=1"`
	Stock    int `form:"-"`
}

// Errors maps field names to a message. A nil Errors means the form is valid.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// Field returns the message for name, or "".
func (e Errors) Field(name string) string {
	return e[name]
}

// FromAPI extracts per-field messages from a backend validation error.
// It returns nil when err carries none.
func FromAPI(err error) Errors {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return nil
	}
	out := make(Errors, len(apiErr.Fields))
	for k, msgs := range apiErr.Fields {
		out[k] = strings.Join(msgs, " ")
	}
	return out
}

// Validator checks forms.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// New creates a validator with the shop's custom rules registered.
func New() *Validator {
	fv := &Validator{v: validator.New(validator.WithRequiredStructEnabled()), now: time.Now}

	fv.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	fv.v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return countDigits(fl.Field().String()) >= 10
	})
	fv.v.RegisterValidation("birthdate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, strings.TrimSpace(fl.Field().String()))
		return err == nil
	})
	fv.v.RegisterStructValidation(fv.validateShipping, Shipping{})
	fv.v.RegisterStructValidation(fv.validateRegister, Register{})
	fv.v.RegisterStructValidation(validateQuantity, Quantity{})
	return fv
}

// Validate checks form and returns nil or Errors.
func (fv *Validator) Validate(form any) error {
	err := fv.v.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = message(fe)
	}
	return out
}

func (fv *Validator) validateShipping(sl validator.StructLevel) {
	f := sl.Current().Interface().(Shipping)
	switch api.DeliveryMethod(f.DeliveryMethod) {
	case api.DeliveryMethodDelivery:
		if strings.TrimSpace(f.DeliveryAddress) == "" {
			sl.ReportError(f.DeliveryAddress, "delivery_address", "DeliveryAddress", "delivery_address", "")
		}
		raw := strings.TrimSpace(f.DeliveryTime)
		if raw == "" {
			sl.ReportError(f.DeliveryTime, "delivery_time", "DeliveryTime", "required", "")
			return
		}
		t, err := time.ParseInLocation(DateTimeLayout, raw, time.Local)
		if err != nil {
			sl.ReportError(f.DeliveryTime, "delivery_time", "DeliveryTime", "datetime", "")
			return
		}
		if !t.After(fv.now()) {
			sl.ReportError(f.DeliveryTime, "delivery_time", "DeliveryTime", "future", "")
		}
	case api.DeliveryMethodPickup:
		if strings.TrimSpace(f.StoreAddress) == "" {
			sl.ReportError(f.StoreAddress, "store_address", "StoreAddress", "store_address", "")
		}
	}
}

func (fv *Validator) validateRegister(sl validator.StructLevel) {
	f := sl.Current().Interface().(Register)
	born, err := time.Parse(DateLayout, strings.TrimSpace(f.BirthDate))
	if err != nil {
		return
	}
	if age(born, fv.now()) < MinAge {
		sl.ReportError(f.BirthDate, "birth_date", "BirthDate", "minage", "")
	}
}

func validateQuantity(sl validator.StructLevel) {
	f := sl.Current().Interface().(Quantity)
	if f.Stock > 0 && f.Quantity > f.Stock {
		sl.ReportError(f.Quantity, "quantity", "Quantity", "stock", fmt.Sprint(f.Stock))
	}
}

func age(born, now time.Time) int {
	years := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		years--
	}
	return years
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Enter a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "eqfield":
		return "Passwords do not match"
	case "oneof":
		return "Choose one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "phone":
		return "Invalid phone number"
	case "birthdate":
		return "Valid birth date required (YYYY-MM-DD)"
	case "minage":
		return fmt.Sprintf("You must be at least %d years old", MinAge)
	case "datetime":
		return "Use the format YYYY-MM-DD HH:MM"
	case "future":
		return "Delivery time must be in the future"
	case "delivery_address":
		return "Delivery address is required"
	case "store_address":
		return "Store address is required for pickup"
	case "stock":
		return fmt.Sprintf("Only %s items available in stock", fe.Param())
	default:
		return "Invalid value"
	}
}
