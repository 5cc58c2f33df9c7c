package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// report wire names (json or query tag) instead of Go field names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
}

// ReadAndValidateRequest binds the body (or query for GET), applies `default`
// tags and validates. It returns nil or a []ValidationError.
func ReadAndValidateRequest(c echo.Context, req interface{}) interface{} {
	// Bind request
	if err := c.Bind(req); err != nil {
		return validatorDefaultRules(err)
	}

	// Set default values
	if err := defaults.Set(req); err != nil {
		return validatorDefaultRules(err)
	}

	// Validate struct
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return validatorDefaultRules(err)
	}

	return nil
}

func validatorDefaultRules(err error) interface{} {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Params:  fieldParams(fe),
			})
		}
		return out
	}

	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return []ValidationError{{Code: "ERR_MALFORMED", Message: msg}}
}

// tagMessages holds "%[1]s" = field and "%[2]s" = tag parameter.
var tagMessages = map[string]string{
	"required": "%[1]s is required",
	"nefield":  "%[1]s must differ from %[2]s",
	"oneof":    "%[1]s must be one of: %[2]s",
	"gt":       "%[1]s must be greater than %[2]s",
	"gte":      "%[1]s must be greater than or equal to %[2]s",
	"lt":       "%[1]s must be less than %[2]s",
	"lte":      "%[1]s must be less than or equal to %[2]s",
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s must have %s %s characters", fe.Field(), bound, fe.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("%s must have %s %s items", fe.Field(), bound, fe.Param())
		default:
			return fmt.Sprintf("%s must be %s %s", fe.Field(), bound, fe.Param())
		}
	case "oneof":
		return fmt.Sprintf(tagMessages["oneof"], fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	if format, ok := tagMessages[fe.Tag()]; ok {
		return fmt.Sprintf(format, fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
}

func fieldParams(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "min", "gte":
		return map[string]interface{}{"min": fe.Param()}
	case "max", "lte":
		return map[string]interface{}{"max": fe.Param()}
	case "gt", "lt", "nefield":
		return map[string]interface{}{"value": fe.Param()}
	case "oneof":
		return map[string]interface{}{"options": strings.Split(fe.Param(), " ")}
	}
	return nil
}
