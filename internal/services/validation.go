package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	types "github.com/yungbote/attrition-backend/internal/domain"
	"github.com/yungbote/attrition-backend/internal/platform/apierr"
)

var requestValidator = sync.OnceValue(newValidator)

// FeedbackAttributes rejects a feedback body that omits any numeric field and
// converts it to attributes for SubmitFeedback.
func FeedbackAttributes(req types.FeedbackRequest) (types.EmployeeAttributes, error) {
	if err := requestValidator().Struct(req); err != nil {
		return types.EmployeeAttributes{}, apierr.BadRequest("invalid_input", errors.New(strings.Join(validationMessages(err), "; ")))
	}
	return req.Attributes(), nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validationMessages flattens validator errors into one message per field.
func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, describeFieldError(fe))
	}
	return out
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
