package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"spacepurchase/internal/types"
)

// ValidationError is one failed field of a request body.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds the field errors and non-blocking warnings of one
// request body.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
}

// IsValid reports whether there are no errors. Warnings do not count.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Warner is implemented by request bodies that can be valid yet questionable.
type Warner interface {
	Warnings() []string
}

// Validator wraps go-playground/validator with the request body rules of the
// purchase API. Field names in errors are the JSON names.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator and registers the custom tags:
//
//	platform  - a known purchase platform
//	not_blank - non-empty after trimming spaces
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("platform", validatePlatform)
	_ = v.RegisterValidation("not_blank", validateNotBlank)

	return &Validator{validate: v, logger: logger}
}

func validatePlatform(fl validator.FieldLevel) bool {
	p := types.Platform(fl.Field().String())
	return p == types.PlatformSpaceOnly || p == types.PlatformComposeLaunch
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// ValidateStruct validates s and returns nil or an *types.AppError whose code
// is that of the first failure. All failures are listed under the
// "validation_errors" detail.
func (v *Validator) ValidateStruct(s any) error {
	result := v.ValidateStructWithWarnings(s)
	if result.IsValid() {
		return nil
	}

	first := result.Errors[0]
	return types.NewAppErrorWithDetails(
		types.ErrorCode(first.Code),
		first.Message,
		nil,
		map[string]any{"validation_errors": result.Errors},
	)
}

// ValidateStructWithWarnings validates s and collects every failure. When s
// is valid and implements Warner, its warnings are included.
func (v *Validator) ValidateStructWithWarnings(s any) ValidationResult {
	var result ValidationResult

	err := v.validate.Struct(s)
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			v.logger.Error("validator misuse", "error", err)
			result.Errors = append(result.Errors, ValidationError{
				Code:    string(types.ErrCodeInternalUnexpected),
				Message: "request could not be validated",
			})
			return result
		}
		for _, fe := range fieldErrs {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fe.Field(),
				Code:    tagToErrorCode(fe.Tag()),
				Message: fieldMessage(fe),
			})
		}
		return result
	}

	if w, ok := s.(Warner); ok {
		result.Warnings = w.Warnings()
	}
	return result
}

// tagToErrorCode maps a validation tag to the code returned to clients.
func tagToErrorCode(tag string) string {
	switch tag {
	case "required", "required_if", "not_blank":
		return string(types.ErrCodeValidationMissingField)
	case "email":
		return string(types.ErrCodeValidationInvalidEmail)
	default:
		return string(types.ErrCodeValidationInvalidAction)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "not_blank":
		return fe.Field() + " is required"
	case "required_if":
		return fe.Field() + " is required for this action"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "platform":
		return fe.Field() + " must be one of space_only, compose_launch"
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
