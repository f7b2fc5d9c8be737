// Package validation wires go-playground/validator with English translations
// and the finance-specific rules, and turns violations into a flat list of
// field errors.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"

	"github.com/tomasagata/extra-api-sub001/model"
)

const (
	categoryNameTag = "categoryname"
	usernameTag     = "username"
	positiveTag     = "positive"
	moneyTag        = "money"
	dateRangeTag    = "daterange"
)

// CategoryNameMessage is reported for any category label that fails ValidCategoryName.
const CategoryNameMessage = "Category must only contain letters or numbers."

// Amounts are stored as DECIMAL(15,2).
var maxAmount = decimal.New(1, 13)

var (
	// The empty string matches on purpose.
	categoryNameRE = regexp.MustCompile(`^[a-zA-Z0-9 ]{0,50}$`)
	usernameRE     = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)
)

// ValidCategoryName reports whether s is an acceptable category label:
// letters, digits or spaces only, at most 50 characters.
func ValidCategoryName(s string) bool {
	return categoryNameRE.MatchString(s)
}

// ValidAmount reports whether d fits a stored amount: at most two decimal
// places and thirteen integer digits. Zero and negative values pass.
func ValidAmount(d decimal.Decimal) bool {
	return d.Equal(d.Round(2)) && d.Abs().LessThan(maxAmount)
}

// ValidDateRange reports whether [from, until] is a usable range. A missing
// bound is always valid; equal bounds are a single-day range.
func ValidDateRange(from, until *model.Date) bool {
	if from == nil || until == nil || from.IsZero() || until.IsZero() {
		return true
	}
	return !from.After(*until)
}

// dateBounded is implemented by request DTOs carrying a date pair.
type dateBounded interface {
	DateBounds() (from, until *model.Date, fromField, untilField string)
}

// FieldError is one violation, addressed by the JSON path of the field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// Errors is the list of violations for one request. It is never empty when
// returned as an error.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.String()
	}
	return strings.Join(parts, "; ")
}

type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func New() (*Validator, error) {
	v := validator.New()

	eng := en.New()
	uni := ut.New(eng, eng)
	trans, found := uni.GetTranslator("en")
	if !found {
		return nil, fmt.Errorf("translator not found")
	}
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, fmt.Errorf("register default translations: %w", err)
	}

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		d, ok := field.Interface().(model.Date)
		if !ok || d.IsZero() {
			return nil
		}
		return d.Time
	}, model.Date{})

	rules := []struct {
		tag     string
		fn      validator.Func
		message string
	}{
		{categoryNameTag, func(fl validator.FieldLevel) bool {
			return ValidCategoryName(fl.Field().String())
		}, CategoryNameMessage},
		{usernameTag, func(fl validator.FieldLevel) bool {
			return usernameRE.MatchString(fl.Field().String())
		}, "{0} must only contain letters, numbers, dots or underscores."},
		{positiveTag, func(fl validator.FieldLevel) bool {
			d, ok := fl.Field().Interface().(decimal.Decimal)
			return ok && d.IsPositive()
		}, "{0} must be greater than zero."},
		{moneyTag, func(fl validator.FieldLevel) bool {
			d, ok := fl.Field().Interface().(decimal.Decimal)
			return ok && ValidAmount(d)
		}, "{0} must have at most 2 decimal places and 13 digits before the point."},
	}
	for _, r := range rules {
		if err := v.RegisterValidation(r.tag, r.fn); err != nil {
			return nil, fmt.Errorf("register %s: %w", r.tag, err)
		}
		if err := registerMessage(v, trans, r.tag, r.message); err != nil {
			return nil, err
		}
	}

	v.RegisterStructValidation(validateDateRange,
		model.FilterRequest{}, model.BudgetRequest{}, model.InvestmentRequest{})
	if err := registerMessage(v, trans, dateRangeTag, "{0} must not be before {1}."); err != nil {
		return nil, err
	}

	return &Validator{validate: v, translator: trans}, nil
}

func registerMessage(v *validator.Validate, trans ut.Translator, tag, message string) error {
	err := v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field(), fe.Param())
			return t
		})
	if err != nil {
		return fmt.Errorf("register %s translation: %w", tag, err)
	}
	return nil
}

func validateDateRange(sl validator.StructLevel) {
	req, ok := sl.Current().Interface().(dateBounded)
	if !ok {
		return
	}
	from, until, fromField, untilField := req.DateBounds()
	if !ValidDateRange(from, until) {
		sl.ReportError(until, untilField, untilField, dateRangeTag, fromField)
	}
}

// Struct validates s and returns nil or a non-empty Errors.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe), Message: fe.Translate(v.translator)})
	}
	return out
}

// fieldPath strips the top-level struct name from the namespace, leaving the
// JSON path, e.g. "categories[0]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
