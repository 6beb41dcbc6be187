package domain

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "factorymanager.io/manager/internal/pkg/errors"
)

// Validation limits.
const (
	MinStartWorkYear = 1950
	MinHour          = 0
	MaxHour          = 23
)

var (
	personNamePattern = regexp.MustCompile(`^[a-zA-Z\s]{2,50}$`)
	usernamePattern   = regexp.MustCompile(`^[a-zA-Z0-9_]{2,20}$`)
	strongPassword    = regexp.MustCompile(`^[a-zA-Z\d]{6,}$`)
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	hasLower          = regexp.MustCompile(`[a-z]`)
	hasUpper          = regexp.MustCompile(`[A-Z]`)
	hasDigit          = regexp.MustCompile(`\d`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names.
	v.RegisterTagNameFunc(jsonFieldName)

	mustRegister(v, "personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "objectid", func(fl validator.FieldLevel) bool {
		return IsValidID(fl.Field().String())
	})
	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "password", func(fl validator.FieldLevel) bool {
		return IsAcceptablePassword(fl.Field().String())
	})
	mustRegister(v, "workyear", func(fl validator.FieldLevel) bool {
		y := int(fl.Field().Int())
		return y >= MinStartWorkYear && y <= time.Now().Year()
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("register validation " + tag + ": " + err.Error())
	}
}

// IsAcceptablePassword accepts a strong password (lower, upper and digit,
// 6+ alphanumerics) or an e-mail address.
func IsAcceptablePassword(p string) bool {
	if emailPattern.MatchString(p) {
		return true
	}
	return strongPassword.MatchString(p) && hasLower.MatchString(p) && hasUpper.MatchString(p) && hasDigit.MatchString(p)
}

// EmployeeInput carries the writable scalar fields of an Employee.
type EmployeeInput struct {
	FirstName     string  `json:"firstName" validate:"personname"`
	LastName      string  `json:"lastName" validate:"personname"`
	StartWorkYear int     `json:"startWorkYear" validate:"workyear"`
	DepartmentID  *string `json:"departmentId" validate:"omitempty,objectid"`
}

// DepartmentInput carries the writable fields of a Department.
type DepartmentInput struct {
	Name      string  `json:"name" validate:"personname"`
	ManagerID *string `json:"managerId" validate:"omitempty,objectid"`
}

// ShiftInput carries the writable scalar fields of a Shift. EmployeeIDs is
// only honored on create and is applied through the coordinator.
type ShiftInput struct {
	Date         string   `json:"date" validate:"required"`
	StartingHour *int     `json:"startingHour" validate:"required,min=0,max=23"`
	EndingHour   *int     `json:"endingHour" validate:"required,min=0,max=23"`
	EmployeeIDs  []string `json:"employeeIds" validate:"omitempty,dive,objectid"`
}

// RegisterInput carries a new principal.
type RegisterInput struct {
	FullName         string `json:"fullName" validate:"personname"`
	Username         string `json:"username" validate:"username"`
	Password         string `json:"password" validate:"password"`
	MaxActionsPerDay *int   `json:"maxActionsPerDay" validate:"omitempty,min=0"`
}

// LoginInput carries login credentials.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validate runs struct tags on v and converts failures into a
// VALIDATION_FAILED AppError listing every invalid field.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.ErrValidation("body", err.Error())
	}
	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperrors.FieldError{
			Field:   fe.Field(),
			Code:    apperrors.CodeValidationFailed,
			Message: reasonFor(fe),
		})
	}
	return apperrors.ErrValidationFields(fields)
}

// ValidateID rejects ids that do not have the entity id shape.
func ValidateID(field, id string) error {
	if !IsValidID(id) {
		return apperrors.ErrValidation(field, "must be 24 hexadecimal characters")
	}
	return nil
}

// Parse validates in and returns the parsed date and hours.
func (in ShiftInput) Parse() (Date, int, int, error) {
	if err := Validate(in); err != nil {
		return Date{}, 0, 0, err
	}
	if err := ValidateShiftHours(*in.StartingHour, *in.EndingHour); err != nil {
		return Date{}, 0, 0, err
	}
	d, err := ParseDate(in.Date)
	if err != nil {
		return Date{}, 0, 0, apperrors.ErrValidation("date", "must be a valid date")
	}
	return d, *in.StartingHour, *in.EndingHour, nil
}

// ValidateShiftHours checks the hour range and ordering of a shift.
func ValidateShiftHours(start, end int) error {
	if start < MinHour || start > MaxHour {
		return apperrors.ErrValidation("startingHour", "must be between 0 and 23")
	}
	if end < MinHour || end > MaxHour {
		return apperrors.ErrValidation("endingHour", "must be between 0 and 23")
	}
	if start >= end {
		return apperrors.ErrValidation("endingHour", "must be after startingHour")
	}
	return nil
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "personname":
		return "must be 2-50 letters or spaces"
	case "objectid":
		return "must be 24 hexadecimal characters"
	case "username":
		return "must be 2-20 letters, digits or underscores"
	case "password":
		return "must contain upper case, lower case and a digit (6+ characters) or be an e-mail address"
	case "workyear":
		return "must be between 1950 and the current year"
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
