package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorStatusCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NotFound("patient", nil), http.StatusNotFound},
		{Validation("first_name is required"), http.StatusBadRequest},
		{Remote(fmt.Errorf("duplicate key")), http.StatusBadGateway},
		{PartialWrite("items not saved", nil), http.StatusBadGateway},
		{Internal(fmt.Errorf("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.StatusCode(), tt.err.Error())
	}
}

func TestRemoteKeepsMessageVerbatim(t *testing.T) {
	err := Remote(fmt.Errorf("new row violates check constraint \"cost_nonnegative\""))
	assert.Equal(t, "new row violates check constraint \"cost_nonnegative\"", err.Error())
}

func TestPartialWriteNamesCauseOnce(t *testing.T) {
	err := PartialWrite("prescription discarded", fmt.Errorf("deadlock detected"))
	assert.Equal(t, "prescription discarded: deadlock detected", err.Error())
}

func TestHasCode(t *testing.T) {
	inner := Remote(fmt.Errorf("connection reset"))
	outer := PartialWrite("prescription saved without items", inner)
	wrapped := fmt.Errorf("submit: %w", outer)

	assert.True(t, HasCode(wrapped, ErrPartialWrite))
	assert.True(t, HasCode(wrapped, ErrRemote))
	assert.False(t, HasCode(wrapped, ErrValidation))
	assert.False(t, HasCode(fmt.Errorf("plain"), ErrRemote))
}
