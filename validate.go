package main

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern  = regexp.MustCompile(`^\d{3}-\d{4}-\d{4}$`)
)

const (
	minUserIDLen   = 4
	maxUserIDLen   = 20
	minPasswordLen = 6
)

var ErrNoCalendarSelected = errors.New("select a specific calendar first")

// ValidationError reports the first invalid form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Normalize trims surrounding whitespace from every field except the passwords.
func (f SignupForm) Normalize() SignupForm {
	f.UserID = strings.TrimSpace(f.UserID)
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Profile = strings.TrimSpace(f.Profile)
	f.UserType = strings.TrimSpace(f.UserType)
	if f.UserType == "" {
		f.UserType = "user"
	}
	return f
}

// ValidateSignup checks the form in the order the signup modal does.
func ValidateSignup(f SignupForm) error {
	switch {
	case f.UserID == "":
		return &ValidationError{"user_id", "required"}
	case f.Name == "":
		return &ValidationError{"name", "required"}
	case f.Email == "":
		return &ValidationError{"email", "required"}
	case f.Password == "":
		return &ValidationError{"password", "required"}
	}

	if err := ValidateUserID(f.UserID); err != nil {
		return err
	}

	if len(f.Password) < minPasswordLen {
		return &ValidationError{"password", fmt.Sprintf("must be at least %d characters", minPasswordLen)}
	}
	if f.Password != f.PasswordConfirm {
		return &ValidationError{"password_confirm", "passwords do not match"}
	}
	if !emailPattern.MatchString(f.Email) {
		return &ValidationError{"email", "not a valid email address"}
	}
	if f.Phone != "" && !phonePattern.MatchString(f.Phone) {
		return &ValidationError{"phone", "use the 010-1234-5678 format"}
	}
	return nil
}

func ValidateUserID(id string) error {
	if n := len([]rune(id)); n < minUserIDLen || n > maxUserIDLen {
		return &ValidationError{"user_id", fmt.Sprintf("must be %d-%d characters", minUserIDLen, maxUserIDLen)}
	}
	if !userIDPattern.MatchString(id) {
		return &ValidationError{"user_id", "only letters, digits and underscore are allowed"}
	}
	return nil
}

func ValidateScheduleInput(in ScheduleInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return &ValidationError{"title", "required"}
	case in.Start.IsZero():
		return &ValidationError{"start", "required"}
	case in.End.IsZero():
		return &ValidationError{"end", "required"}
	case in.End.Before(in.Start):
		return &ValidationError{"end", "must not be before start"}
	}
	return nil
}

// ParseDateTime reads form timestamps such as "2025-07-28 09:30" in loc.
func ParseDateTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date/time %q (want YYYY-MM-DD HH:MM)", value)
}

// ParseMonth reads "YYYY-MM".
func ParseMonth(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q (want YYYY-MM)", value)
	}
	return t, nil
}
