package billing

import (
	"reflect"
	"strings"

	"spacepurchase/internal/types"

	"github.com/go-playground/validator/v10"
)

// Form is the billing details form as submitted by the browser. Country is
// the display name from the country picker.
type Form struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	WorkEmail string `json:"workEmail" validate:"required,email"`
	Address1  string `json:"address1" validate:"required"`
	Address2  string `json:"address2"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"state_required"`
	ZipCode   string `json:"zipCode" validate:"required"`
	Country   string `json:"country" validate:"required,country_name"`
	VAT       string `json:"vat" validate:"vat_format"`
}

// FieldError is one field-scoped form validation failure.
type FieldError struct {
	Field   string          `json:"field"`
	Code    types.ErrorCode `json:"code"`
	Message string          `json:"message"`
}

// FormErrors is the set of failures of one form submission.
type FormErrors []FieldError

// AppError folds the failures into a single validation AppError whose code is
// that of the first failure.
func (fe FormErrors) AppError() *types.AppError {
	if len(fe) == 0 {
		return nil
	}
	return types.NewAppErrorWithDetails(
		fe[0].Code,
		"billing details are invalid",
		nil,
		map[string]any{"fields": []FieldError(fe)},
	)
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("country_name", func(fl validator.FieldLevel) bool {
		_, ok := GetCountryCodeFromName(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("state_required", func(fl validator.FieldLevel) bool {
		country := fl.Parent().FieldByName("Country").String()
		return !IsStateRequired(country) || strings.TrimSpace(fl.Field().String()) != ""
	}, true)
	_ = v.RegisterValidation("vat_format", func(fl validator.FieldLevel) bool {
		vat := strings.TrimSpace(fl.Field().String())
		if vat == "" {
			return true
		}
		return IsValidVATFormat(fl.Parent().FieldByName("Country").String(), vat)
	}, true)
	return v
}

var formErrorCodes = map[string]types.ErrorCode{
	"required":       types.ErrCodeValidationMissingField,
	"email":          types.ErrCodeValidationInvalidEmail,
	"country_name":   types.ErrCodeValidationInvalidCountry,
	"state_required": types.ErrCodeValidationStateRequired,
	"vat_format":     types.ErrCodeValidationInvalidVAT,
}

var formErrorMessages = map[string]string{
	"required":       "is required",
	"email":          "must be a valid email address",
	"country_name":   "must be a known country",
	"state_required": "is required for the selected country",
	"vat_format":     "is not a valid VAT number for the selected country",
}

// ValidateBillingForm checks a billing form without any network call. It returns
// nil when the form is valid.
func ValidateBillingForm(form Form) FormErrors {
	err := formValidator.Struct(form)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FormErrors{{Field: "", Code: types.ErrCodeInternalUnexpected, Message: err.Error()}}
	}

	out := make(FormErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		code, known := formErrorCodes[fe.Tag()]
		if !known {
			code = types.ErrCodeValidationMissingField
		}
		out = append(out, FieldError{
			Field:   fe.Field(),
			Code:    code,
			Message: fe.Field() + " " + formErrorMessages[fe.Tag()],
		})
	}
	return out
}

// NewBillingDetailsRequest builds the nested upstream shape from a valid form.
// The VAT number is dropped for countries that do not use VAT.
func NewBillingDetailsRequest(form Form) (types.BillingDetailsPayload, error) {
	code, ok := GetCountryCodeFromName(form.Country)
	if !ok {
		return types.BillingDetailsPayload{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidCountry,
			"unknown country",
			nil,
			map[string]any{"country": form.Country},
		)
	}

	payload := types.BillingDetailsPayload{
		FirstName: strings.TrimSpace(form.FirstName),
		LastName:  strings.TrimSpace(form.LastName),
		WorkEmail: strings.TrimSpace(form.WorkEmail),
		Address: types.BillingAddress{
			Address1: strings.TrimSpace(form.Address1),
			Address2: strings.TrimSpace(form.Address2),
			City:     strings.TrimSpace(form.City),
			State:    strings.TrimSpace(form.State),
			ZipCode:  strings.TrimSpace(form.ZipCode),
			Country:  code,
		},
	}
	if IsCountryUsingVAT(form.Country) {
		payload.VAT = strings.TrimSpace(form.VAT)
	}
	return payload, nil
}

// TransformBillingDetails flattens the nested upstream shape.
func TransformBillingDetails(p types.BillingDetailsPayload) types.BillingDetails {
	return types.BillingDetails{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		WorkEmail: p.WorkEmail,
		VAT:       p.VAT,
		Address1:  p.Address.Address1,
		Address2:  p.Address.Address2,
		City:      p.Address.City,
		State:     p.Address.State,
		ZipCode:   p.Address.ZipCode,
		Country:   p.Address.Country,
	}
}

// PayloadFromDetails nests flat details already held by a purchase session,
// for submission once payment succeeds.
func PayloadFromDetails(d types.BillingDetails) types.BillingDetailsPayload {
	return types.BillingDetailsPayload{
		FirstName: d.FirstName,
		LastName:  d.LastName,
		WorkEmail: d.WorkEmail,
		VAT:       d.VAT,
		Address: types.BillingAddress{
			Address1: d.Address1,
			Address2: d.Address2,
			City:     d.City,
			State:    d.State,
			ZipCode:  d.ZipCode,
			Country:  d.Country,
		},
	}
}
