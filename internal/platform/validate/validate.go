// Package validate wires go-playground/validator into echo and the apperr
// taxonomy, with clinic-specific tags for phone numbers and HH:MM times.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/nyaruka/phonenumbers"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/pkg/civil"
)

// DefaultRegion is used to interpret phone numbers written without a country code.
const DefaultRegion = "FR"

type Validator struct {
	v      *validator.Validate
	region string
}

// New builds a validator that reports JSON field names and understands the
// phone and clock tags.
func New(region string) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	out := &Validator{v: v, region: region}
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, err := NormalizePhone(fl.Field().String(), out.region)
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := civil.ParseClock(fl.Field().String())
		return err == nil
	})
	return out
}

var std = New(DefaultRegion)

// Struct validates s with the default validator.
func Struct(s interface{}) error { return std.Validate(s) }

// Validate implements echo.Validator.
func (v *Validator) Validate(i interface{}) error {
	err := v.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}
	return translate(verrs)
}

func translate(verrs validator.ValidationErrors) error {
	var required, invalid, msgs []string
	for _, fe := range verrs {
		name := fieldName(fe)
		if fe.Tag() == "required" || fe.Tag() == "required_if" {
			required = append(required, name)
			continue
		}
		invalid = append(invalid, name)
		msgs = append(msgs, fmt.Sprintf("%s %s", name, describe(fe)))
	}
	if len(required) > 0 {
		return apperr.Required(required...)
	}
	return apperr.Validation("invalid input: "+strings.Join(msgs, "; "), invalid...)
}

// fieldName strips the root struct name from the namespace: "CreateInput.date" -> "date".
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "clock":
		return "must be a time in HH:MM format"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "uuid", "uuid4":
		return "must be a valid id"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

// NormalizePhone parses raw in region and returns it in E.164 form.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty phone number")
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("parse phone %q: %w", raw, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("phone %q is not a valid number", raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Phone normalizes raw with the default region.
func Phone(raw string) (string, error) { return NormalizePhone(raw, DefaultRegion) }

// Bind decodes the request body into dst and validates it. Malformed bodies are
// reported as validation errors.
func Bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return apperr.Validation(fmt.Sprintf("invalid request body: %v", he.Message))
		}
		return apperr.Validation("invalid request body")
	}
	return Struct(dst)
}

// Echo returns the default validator for registration as echo's Validator.
func Echo() echo.Validator { return std }
