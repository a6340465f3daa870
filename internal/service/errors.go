package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"trainingportal-backend/internal/repository"
)

var (
	ErrUnauthorized = errors.New("not authorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid application state")
	ErrValidation   = errors.New("validation failed")
	// ErrUpstream covers renderer, storage, gateway and database failures.
	ErrUpstream = errors.New("upstream failure")
)

const serverErrorMessage = "Server error, please try again later."

// UserMessage turns a service error into a sentence safe to show to a caller.
// Upstream failures never expose their cause.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUpstream):
		return serverErrorMessage
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrValidation):
		return capitalize(err.Error())
	}
	return serverErrorMessage
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// notFound maps a repository miss to ErrNotFound and anything else to ErrUpstream.
func notFound(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return fmt.Errorf("%w: load %s: %v", ErrUpstream, what, err)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
