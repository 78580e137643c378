package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"go-space/internal/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators installs the custom tags on gin's validator
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("rover", func(fl validator.FieldLevel) bool {
			_, ok := domain.LookupRover(fl.Field().String())
			return ok
		})
	})
}

// Query parameter sets bound by the handlers. Presence rules live in the services.
type (
	neoParams struct {
		Start string `form:"start" binding:"omitempty,datetime=2006-01-02"`
		End   string `form:"end" binding:"omitempty,datetime=2006-01-02"`
	}

	marsParams struct {
		Rover     string `form:"rover" binding:"omitempty,rover"`
		EarthDate string `form:"earth_date" binding:"omitempty,datetime=2006-01-02"`
		Sol       string `form:"sol"`
		Camera    string `form:"camera" binding:"omitempty,max=32"`
	}

	manifestParams struct {
		Rover string `form:"rover" binding:"omitempty,rover"`
	}
)

// sol parses the sol parameter. An empty value counts as absent.
func (p marsParams) sol() (*int, error) {
	if p.Sol == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(p.Sol)
	if err != nil {
		return nil, domain.NewValidationError("Invalid sol parameter: expected an integer")
	}
	if n < 0 {
		return nil, domain.NewValidationError("Invalid sol parameter: must not be negative")
	}
	return &n, nil
}

// bindError turns a binding failure into a ValidationError naming the parameter
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "datetime":
			return domain.NewValidationError(fmt.Sprintf("Invalid %s parameter: expected YYYY-MM-DD", fe.Field()))
		case "rover":
			return domain.NewValidationError(fmt.Sprintf("Unknown rover %q: expected one of %s", fe.Value(), strings.Join(domain.RoverKeys(), ", ")))
		case "min":
			return domain.NewValidationError(fmt.Sprintf("Invalid %s parameter: must not be negative", fe.Field()))
		default:
			return domain.NewValidationError(fmt.Sprintf("Invalid %s parameter", fe.Field()))
		}
	}
	return domain.NewValidationError("Invalid query parameters: " + err.Error())
}
