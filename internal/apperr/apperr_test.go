package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{BadRequest("x"), http.StatusBadRequest},
		{Unauthorized("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{NotFound("x"), http.StatusNotFound},
		{MethodNotAllowed("x"), http.StatusMethodNotAllowed},
		{TooManyRequests("x"), http.StatusTooManyRequests},
		{Internal("x", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.err.HTTPStatus(); got != tt.want {
			t.Errorf("%v: status %d, want %d", tt.err.Kind, got, tt.want)
		}
	}
}

func TestFrom(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NotFound("Appointment not found"))
	if e := From(wrapped); e.Kind != KindNotFound || e.Message != "Appointment not found" {
		t.Errorf("From(wrapped) = %+v", e)
	}

	cause := errors.New("pq: connection reset")
	e := From(cause)
	if e.Kind != KindInternal || e.Message != "Internal server error" {
		t.Errorf("From(plain) = %+v", e)
	}
	if !errors.Is(e, cause) {
		t.Error("cause not preserved")
	}
}
