package service_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"trainingportal-backend/internal/service"
)

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", service.UserMessage(nil))
	assert.Equal(t, "Server error, please try again later.",
		service.UserMessage(fmt.Errorf("%w: gateway timeout", service.ErrUpstream)))
	assert.Equal(t, "Server error, please try again later.", service.UserMessage(errors.New("boom")))
	assert.Equal(t, "Invalid application state: application is APPROVED",
		service.UserMessage(fmt.Errorf("%w: application is APPROVED", service.ErrInvalidState)))
	assert.Equal(t, "Validation failed: owner has no email",
		service.UserMessage(fmt.Errorf("%w: owner has no email", service.ErrValidation)))
}
