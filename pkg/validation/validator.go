package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/wellness-auth/pkg/helpers"
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers alias tags for the auth payloads.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// bcrypt refuses input past 72 bytes; max= would count runes
		_ = v.RegisterValidation("pwdbytes", func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= helpers.MaxPasswordBytes
		})
		v.RegisterAlias("pwd", "min=8,pwdbytes")
		v.RegisterAlias("otp", "len=6,numeric")
		v.RegisterAlias("uname", "min=3,max=32")
	}
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	if errors.Is(err, io.EOF) {
		return map[string]string{"payload": "empty body"}
	}

	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()
	kind := fe.Kind()

	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "numeric":
		return "must be numeric"
	case "eqfield":
		return "must match " + lowerFirst(param)
	case "nefield":
		return "must differ from " + lowerFirst(param)

	case "len":
		if kind == reflect.String {
			return "must be exactly " + param + " characters"
		}
		return "length must be " + param
	case "min":
		if isNumberKind(kind) {
			return "must be at least " + param
		}
		return "min length " + param
	case "max":
		if isNumberKind(kind) {
			return "must be at most " + param
		}
		return "max length " + param

	// aliases
	case "pwd":
		return "must be at least 8 characters and at most 72 bytes"
	case "pwdbytes":
		return "must be at most 72 bytes"
	case "otp":
		return "must be a 6-digit code"
	case "uname":
		return "must be 3 to 32 characters"

	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", tag, param)
		}
		return fmt.Sprintf("validation failed for '%s'", tag)
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
