package request

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/edvin/netedge/internal/compose"
	"github.com/edvin/netedge/internal/platform"
)

var validate = validator.New()

func init() {
	validate.RegisterValidation("rid", func(fl validator.FieldLevel) bool {
		return platform.IsID(fl.Field().String())
	})
	validate.RegisterValidation("address", func(fl validator.FieldLevel) bool {
		return compose.IsAddress(fl.Field().String())
	})
}

func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

// RequireID returns s if it is a well-formed resource id.
func RequireID(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("missing required ID")
	}
	if !platform.IsID(s) {
		return "", fmt.Errorf("malformed ID %q", s)
	}
	return s, nil
}
