package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_MapsWrappedSentinels(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("partner %s: %w", "x", ErrNotFound):       http.StatusNotFound,
		fmt.Errorf("bad token: %w", ErrUnauthorized):          http.StatusUnauthorized,
		fmt.Errorf("company access: %w", ErrForbidden):        http.StatusForbidden,
		fmt.Errorf("period 2025-01 closed: %w", ErrConflict): http.StatusConflict,
		fmt.Errorf("bad cui: %w", ErrInvalid):                 http.StatusBadRequest,
		fmt.Errorf("no total: %w", ErrUnprocessable):          http.StatusUnprocessableEntity,
		fmt.Errorf("anaf: %w", ErrUnavailable):                http.StatusServiceUnavailable,
		errors.New("boom"):                                    http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, Status(err), err.Error())
	}
}

func TestMessage_TrimsSentinel(t *testing.T) {
	err := fmt.Errorf("invoice DOC-1 not found: %w", ErrNotFound)
	assert.Equal(t, "invoice DOC-1 not found", Message(err))
	assert.Equal(t, "boom", Message(errors.New("boom")))

	nested := fmt.Errorf("submit: %w", fmt.Errorf("period closed: %w", ErrConflict))
	assert.Equal(t, "submit: period closed", Message(nested))
}

func TestNewValidation(t *testing.T) {
	v := NewValidation(map[string]string{"Email": "email"})
	assert.Equal(t, "Validation failed", v.Detail)
	assert.Equal(t, "email", v.Fields["Email"])
}
