package validator

import (
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

// Validator provides validation functionality
type Validator interface {
	// Validate returns the first violated rule of obj, or nil.
	Validate(obj interface{}) error
}

// FieldError is the first violation found on a struct.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

type validator struct {
	v *playground.Validate
}

// Option configures extra rules on a Validator.
type Option func(*playground.Validate)

// WithVocabulary registers tag as a rule that accepts only the given values.
// Unlike oneof, values may contain spaces.
func WithVocabulary(tag string, values ...string) Option {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return func(v *playground.Validate) {
		_ = v.RegisterValidation(tag, func(fl playground.FieldLevel) bool {
			_, ok := allowed[fl.Field().String()]
			return ok
		})
	}
}

func New(opts ...Option) Validator {
	v := playground.New(playground.WithRequiredStructEnabled())
	for _, opt := range opts {
		opt(v)
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &validator{v: v}
}

func (v *validator) Validate(obj interface{}) error {
	err := v.v.Struct(obj)
	if err == nil {
		return nil
	}
	errs, ok := err.(playground.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err
	}
	first := errs[0]
	field := fieldPath(first.Namespace())
	return &FieldError{
		Field:   field,
		Tag:     first.Tag(),
		Message: message(field, first),
	}
}

// fieldPath drops the root struct name: "PrescriptionDraft.items[1].dosage" -> "items[1].dosage".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(field string, fe playground.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid identifier", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "datetime":
		return fmt.Sprintf("%s must match the format %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is not a known %s", field, fe.Tag())
	}
}
