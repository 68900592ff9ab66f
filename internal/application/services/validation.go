package services

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/zatekoja/viewingscheduler/pkg/errors"
)

var (
	ukPostcodePattern = regexp.MustCompile(`(?i)^[A-Z]{1,2}[0-9][A-Z0-9]? ?[0-9][A-Z]{2}$`)
	ukPhonePattern    = regexp.MustCompile(`^(?:\+44|0044|0)\d{9,10}$`)
	personNamePattern = regexp.MustCompile(`^[a-zA-Z\s'\-.]+$`)
	hhmmPattern       = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)
	phoneSeparators   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// Messages keyed by "field.tag", falling back to "field".
var fieldMessages = map[string]string{
	"customer_name.personname": "Customer name can only contain letters, spaces, hyphens, apostrophes, and periods",
	"customer_name":            "Customer name must be between 2 and 100 characters",
	"customer_email":           "Please provide a valid email address",
	"customer_phone":           "Please provide a valid UK phone number",
	"property_address":         "Property address must be between 10 and 500 characters",
	"property_postcode":        "Please provide a valid UK postcode",
	"appointment_date":         "Please provide a valid date in YYYY-MM-DD format",
	"appointment_time":         "Please provide a valid time in HH:MM format",
	"notes":                    "Notes cannot exceed 1000 characters",
	"agent_id":                 "Invalid agent ID format",
	"status":                   "Status must be one of: scheduled, completed, cancelled, no_show",
	"date":                     "Date must be in YYYY-MM-DD format",
	"start_date":               "Start date must be in YYYY-MM-DD format",
	"end_date":                 "End date must be in YYYY-MM-DD format",
	"limit":                    "Limit must be between 1 and 100",
	"offset":                   "Offset must be 0 or greater",
	"id":                       "Invalid appointment ID format",
	"postcode":                 "Please provide a valid UK postcode",
}

// InputValidator checks request payloads before any geocoding or persistence happens.
type InputValidator struct {
	validate *validator.Validate
}

// NewInputValidator registers the scheduler's custom tags
func NewInputValidator() *InputValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// Optional[string] validates as its inner value; absent or null skips omitempty rules.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if opt, ok := field.Interface().(Optional[string]); ok && opt.Value != nil {
			return *opt.Value
		}
		return nil
	}, Optional[string]{})

	mustRegister(v, "ukpostcode", func(fl validator.FieldLevel) bool {
		return ukPostcodePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	mustRegister(v, "ukphone", func(fl validator.FieldLevel) bool {
		return ukPhonePattern.MatchString(phoneSeparators.Replace(strings.TrimSpace(fl.Field().String())))
	})
	mustRegister(v, "personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "hhmm", func(fl validator.FieldLevel) bool {
		return hhmmPattern.MatchString(fl.Field().String())
	})

	return &InputValidator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// ValidateCreate trims the input in place and checks every field.
func (iv *InputValidator) ValidateCreate(input *CreateAppointmentInput) error {
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.CustomerPhone = strings.TrimSpace(input.CustomerPhone)
	input.PropertyAddress = strings.TrimSpace(input.PropertyAddress)
	input.PropertyPostcode = strings.TrimSpace(input.PropertyPostcode)
	input.AgentID = blankToNil(input.AgentID)
	input.CustomerEmail = blankToNil(input.CustomerEmail)
	return iv.check(input)
}

// ValidateUpdate trims supplied fields in place and checks them.
func (iv *InputValidator) ValidateUpdate(input *UpdateAppointmentInput) error {
	trimPtr(input.CustomerName)
	trimPtr(input.CustomerPhone)
	trimPtr(input.PropertyAddress)
	trimPtr(input.PropertyPostcode)
	if input.AgentID.Value != nil && strings.TrimSpace(*input.AgentID.Value) == "" {
		input.AgentID.Value = nil
	}
	return iv.check(input)
}

// ValidateQuery checks list filters.
func (iv *InputValidator) ValidateQuery(query *ListAppointmentsQuery) error {
	return iv.check(query)
}

// ValidateID checks an appointment id path parameter.
func (iv *InputValidator) ValidateID(id string) error {
	if err := iv.validate.Var(id, "required,uuid"); err != nil {
		return apperrors.NewFieldValidationError([]apperrors.FieldError{{Field: "id", Message: fieldMessages["id"]}})
	}
	return nil
}

// ValidatePostcodeFormat checks a postcode before it is geocoded.
func (iv *InputValidator) ValidatePostcodeFormat(postcode string) error {
	if err := iv.validate.Var(strings.TrimSpace(postcode), "required,ukpostcode"); err != nil {
		return apperrors.NewFieldValidationError([]apperrors.FieldError{{Field: "postcode", Message: fieldMessages["postcode"]}})
	}
	return nil
}

func (iv *InputValidator) check(s interface{}) error {
	err := iv.validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError(err.Error())
	}

	details := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apperrors.FieldError{Field: fe.Field(), Message: messageFor(fe)})
	}
	return apperrors.NewFieldValidationError(details)
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := fieldMessages[fe.Field()]; ok {
		return msg
	}
	return fe.Field() + " is invalid"
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}
