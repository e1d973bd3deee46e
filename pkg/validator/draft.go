package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyName indicates the worker name is missing
	ErrEmptyName = errors.New("worker name cannot be empty")

	// ErrEmptyEmployeeID indicates the employee id is missing
	ErrEmptyEmployeeID = errors.New("employee id cannot be empty")

	// ErrEmptyDepartment indicates the department is missing
	ErrEmptyDepartment = errors.New("department cannot be empty")

	// ErrInvalidEmployeeID indicates the employee id has an unsupported format
	ErrInvalidEmployeeID = errors.New("employee id may only contain letters, digits and dashes (2-32 characters)")

	// ErrInvalidPhone indicates the phone number is not a Korean mobile number
	ErrInvalidPhone = errors.New("phone number must be a Korean mobile number (01X followed by 7-8 digits)")

	// ErrInvalidEmail indicates the email address is malformed
	ErrInvalidEmail = errors.New("email address is malformed")

	// ErrInvalidExpiry indicates a non-positive expiry window was requested
	ErrInvalidExpiry = errors.New("expiry window must be a positive number of hours")
)

var (
	employeeIDRegex = regexp.MustCompile(`^[A-Za-z0-9-]{2,32}$`)
	phoneRegex      = regexp.MustCompile(`^01[016789]\d{7,8}$`)
	emailRegex      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// DraftValidator validates worker draft fields at the issuance boundary
type DraftValidator struct{}

// NewDraftValidator creates a new draft validator instance
func NewDraftValidator() *DraftValidator {
	return &DraftValidator{}
}

// ValidateName checks the required worker name
func (v *DraftValidator) ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return nil
}

// ValidateEmployeeID checks the required employee identifier
func (v *DraftValidator) ValidateEmployeeID(employeeID string) error {
	if strings.TrimSpace(employeeID) == "" {
		return ErrEmptyEmployeeID
	}
	if !employeeIDRegex.MatchString(employeeID) {
		return ErrInvalidEmployeeID
	}
	return nil
}

// ValidateDepartment checks the required department name
func (v *DraftValidator) ValidateDepartment(department string) error {
	if strings.TrimSpace(department) == "" {
		return ErrEmptyDepartment
	}
	return nil
}

// ValidatePhone checks an optional Korean mobile number.
// Accepts 010-1234-5678, 010 1234 5678, +82 10-1234-5678 and digit-only forms;
// returns the sanitized digit-only number.
func (v *DraftValidator) ValidatePhone(phone string) (string, error) {
	if phone == "" {
		return "", nil
	}

	sanitized := v.SanitizePhone(phone)
	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidPhone
	}

	return sanitized, nil
}

// SanitizePhone strips separators and normalizes the +82 country code
func (v *DraftValidator) SanitizePhone(phone string) string {
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	phone = strings.ReplaceAll(phone, "(", "")
	phone = strings.ReplaceAll(phone, ")", "")
	phone = strings.ReplaceAll(phone, ".", "")
	phone = strings.TrimPrefix(phone, "+")

	// +82 10 XXXX XXXX -> 010XXXXXXXX
	if strings.HasPrefix(phone, "82") && len(phone) >= 11 {
		phone = "0" + phone[2:]
	}

	return phone
}

// ValidateEmail checks an optional email address
func (v *DraftValidator) ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}
