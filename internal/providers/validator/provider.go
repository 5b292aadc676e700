package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"trimbook/pkg/logger"
	"trimbook/pkg/model"

	"github.com/go-playground/validator/v10"
)

var (
	slotTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type ProviderValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewProviderValidator(log *logger.Logger) *ProviderValidator {
	v := validator.New()

	if err := v.RegisterValidation("slot_time", validateSlotTime); err != nil {
		log.Fatal("Failed to register 'slot_time' validator",
			"error", err,
		)
	}

	log.Info("Provider validator initialized successfully")

	return &ProviderValidator{
		validate: v,
		logger:   log,
	}
}

func validateSlotTime(fl validator.FieldLevel) bool {
	return slotTimeRegex.MatchString(fl.Field().String())
}

// Validate checks the provider's own fields. The weekly template has its own
// entry point, ValidateWeeklyAvailability, so callers can give template
// failures a distinct error surface.
func (v *ProviderValidator) Validate(provider *model.Provider) error {
	if err := v.validate.Struct(provider); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	return nil
}

// ValidateWeeklyAvailability checks each open day's hours form a non-empty
// window. Closed days ignore their times entirely.
func (v *ProviderValidator) ValidateWeeklyAvailability(weekly map[string]model.DayHours) error {
	if err := v.validateWeekdayKeys(weekly); err != nil {
		return err
	}

	for day, hours := range weekly {
		if err := v.validate.Struct(hours); err != nil {
			var validationErrs validator.ValidationErrors
			if errors.As(err, &validationErrs) {
				translated := v.translateValidationErrors(validationErrs)
				for i := range translated {
					translated[i].Field = fmt.Sprintf("%s.%s", day, translated[i].Field)
				}
				return translated
			}
			return err
		}

		if hours.IsOpen && hours.StartTime >= hours.EndTime {
			return ValidationErrors{
				ValidationError{
					Field:   day,
					Message: fmt.Sprintf("start_time %s must be before end_time %s", hours.StartTime, hours.EndTime),
				},
			}
		}
	}

	return nil
}

func (v *ProviderValidator) ValidateServices(services map[string]model.ServiceDefinition) error {
	for id, svc := range services {
		if id == "" {
			return ValidationErrors{
				ValidationError{
					Field:   "services",
					Message: "service ID cannot be empty",
				},
			}
		}
		if err := v.validate.Struct(svc); err != nil {
			var validationErrs validator.ValidationErrors
			if errors.As(err, &validationErrs) {
				translated := v.translateValidationErrors(validationErrs)
				for i := range translated {
					translated[i].Field = fmt.Sprintf("%s.%s", id, translated[i].Field)
				}
				return translated
			}
			return err
		}
	}
	return nil
}

func (v *ProviderValidator) validateWeekdayKeys(weekly map[string]model.DayHours) error {
	known := make(map[string]bool, len(model.Weekdays))
	for _, day := range model.Weekdays {
		known[day] = true
	}

	for day := range weekly {
		if !known[day] {
			return ValidationErrors{
				ValidationError{
					Field:   "weekly_availability",
					Message: fmt.Sprintf("unknown weekday key: %s", day),
				},
			}
		}
	}
	return nil
}

func (v *ProviderValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "required_if":
			message = fmt.Sprintf("%s is required for open days", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "gte":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "slot_time":
			message = fmt.Sprintf("%s must be a zero-padded HH:MM time", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
