package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/e-lopezc/serverless-product-catalog-api/catalog/keys"
)

var (
	brandNamePattern   = regexp.MustCompile(`^[A-Za-z0-9 \-_&.]+$`)
	productNamePattern = regexp.MustCompile(`^[A-Za-z0-9 \-_&.,()'"/!+]+$`)
	skuPattern         = regexp.MustCompile(`^[A-Za-z0-9\-_]+$`)
	imagePathPattern   = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)$`)

	maxPrice = decimal.RequireFromString("999999.99")
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		return f.Interface().(decimal.Decimal).String()
	}, decimal.Decimal{})

	rules := map[string]validator.Func{
		"brandname":   matches(brandNamePattern),
		"productname": matches(productNamePattern),
		"sku":         matches(skuPattern),
		"keyid": func(fl validator.FieldLevel) bool {
			return keys.ValidateID(fl.Field().String()) == nil
		},
		"weburl": func(fl validator.FieldLevel) bool {
			_, ok := parseWebURL(fl.Field().String())
			return ok
		},
		"imageurl": func(fl validator.FieldLevel) bool {
			u, ok := parseWebURL(fl.Field().String())
			return ok && imagePathPattern.MatchString(u.Path)
		},
		"price": func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(fl.Field().String())
			if err != nil {
				return false
			}
			return !d.IsNegative() && d.LessThanOrEqual(maxPrice) && d.Equal(d.Round(2))
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register validation %s: %v", tag, err))
		}
	}
	return v
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func parseWebURL(s string) (*url.URL, bool) {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return nil, false
	}
	return u, u.Scheme == "http" || u.Scheme == "https"
}

// validateEntity validates v against its struct tags and reports the first
// failing field as an InvalidArgument error.
func validateEntity(v *validator.Validate, entity string, value any) error {
	err := v.Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &Error{Kind: KindInternal, Entity: entity, Err: err}
	}
	fe := fieldErrs[0]
	field := fe.Field()
	if strings.HasPrefix(field, "images[") {
		field = "images"
	}
	return invalidArgument(entity, field, fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " long"
	case "max":
		return "must be at most " + fe.Param() + " long"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "brandname", "productname", "sku":
		return "contains invalid characters"
	case "keyid":
		return "must be a non-empty id without '#'"
	case "weburl":
		return "must be an http or https URL"
	case "imageurl":
		return "must be an http or https URL to a jpg, jpeg, png, gif or webp image"
	case "price":
		return "must be between 0 and 999999.99 with at most 2 decimal places"
	default:
		return "is invalid"
	}
}

// normalizeName is the form names and SKUs are compared in.
func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func trimAll(ss ...*string) {
	for _, s := range ss {
		*s = strings.TrimSpace(*s)
	}
}
