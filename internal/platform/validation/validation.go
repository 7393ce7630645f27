// Package validation runs go-playground/validator over request structs and
// converts the result into a field-keyed domain ValidationError.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	val "github.com/go-playground/validator/v10"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	"github.com/pawprint-grooming/service-booking/internal/domain/schedule"
)

var messages = map[string]string{
	"required": "{field} is required",
	"gte":      "{field} must be greater than or equal to {param}",
	"lte":      "{field} must be less than or equal to {param}",
	"oneof":    "{field} must be one of {param}",
	"max":      "{field} must be at most {param} characters",
	"min":      "{field} must contain at least {param} item(s)",
	"email":    "{field} must be a valid email address",
	"date":     "{field} must be a date in YYYY-MM-DD format",
	"clock":    "{field} must be a time in HH:MM format",
	"dive":     "{field} is invalid",
}

var (
	once     sync.Once
	validate *val.Validate
)

func instance() *val.Validate {
	once.Do(func() {
		validate = val.New(val.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		mustRegister("date", func(fl val.FieldLevel) bool {
			_, err := schedule.ParseDate(fl.Field().String())
			return err == nil
		})
		mustRegister("clock", func(fl val.FieldLevel) bool {
			_, err := schedule.ParseTimeOfDay(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

func mustRegister(tag string, fn val.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Struct validates v and returns a *domain.ValidationError listing every failing field.
func Struct(v interface{}) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var valErrors val.ValidationErrors
	if !errors.As(err, &valErrors) {
		return domain.NewValidationError(err.Error())
	}

	fields := make(map[string]string, len(valErrors))
	for _, fe := range valErrors {
		path := fieldPath(fe)
		if _, seen := fields[path]; seen {
			continue
		}
		fields[path] = message(path, fe)
	}
	return domain.NewFieldValidationError(fields)
}

// fieldPath strips the root struct name from the namespace: "Request.owner.email" -> "owner.email".
func fieldPath(fe val.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(path string, fe val.FieldError) string {
	tmpl, ok := messages[fe.Tag()]
	if !ok {
		return path + " is invalid"
	}
	msg := strings.ReplaceAll(tmpl, "{field}", path)
	return strings.ReplaceAll(msg, "{param}", fe.Param())
}
