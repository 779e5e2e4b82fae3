// Package validate checks a loaded configuration before any file is read.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ppiankov/bufilter/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their config key, not the Go name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Config validates cfg and returns a *model.ConfigurationError for the
// first problem found
func Config(cfg *model.Config) error {
	if cfg == nil {
		return model.NewConfigurationError("", "no configuration", nil)
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return model.NewConfigurationError(field(fe), message(fe), nil)
		}
		return model.NewConfigurationError("", "invalid configuration", err)
	}

	if cfg.Cache.Enabled && cfg.Cache.Dir == "" {
		return model.NewConfigurationError("cache.dir", "required when the cache is enabled", nil)
	}
	if strings.ContainsAny(cfg.Output.InvalidLabel, `:\/?*[]`) {
		return model.NewConfigurationError("output.invalid_label", "must be a valid sheet name", nil)
	}
	return nil
}

// field turns "Config.output.invalid_label" into "output.invalid_label"
func field(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
