package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

const maxJSONBody = 1 << 20

var (
	strict   = bluemonday.StrictPolicy()
	validate = newValidator()
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
	return v
}

// SanitizeText strips all markup from s and trims it. Entities are decoded
// again so the stored value is plain text; escaping happens on output.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// DecodeJSON reads at most 1 MiB of JSON from r into dst. An empty body
// leaves dst untouched.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// Validate checks v against its validate tags and returns one 422 APIError
// per failing field, or nil.
func Validate(v interface{}) []APIError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []APIError{{Code: http.StatusUnprocessableEntity, Message: err.Error()}}
	}

	out := make([]APIError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, APIError{
			Code:    http.StatusUnprocessableEntity,
			Message: fieldMessage(fe),
			Source:  &APIErrorSource{Pointer: "/" + fe.Field()},
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}
