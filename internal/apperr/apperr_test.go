package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusUnprocessableEntity},
		{KindNotFound, http.StatusNotFound},
		{KindForbidden, http.StatusForbidden},
		{KindConflict, http.StatusConflict},
		{KindStorage, http.StatusInternalServerError},
		{Kind("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.Status(), string(tt.kind))
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("start run: %w", Conflict("vehicle already has an active run"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "vehicle already has an active run", MessageOf(err))
}

func TestStorageWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Storage(cause, "could not save run")

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrStorage))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPlainErrorsAreStorageFailures(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, KindStorage, KindOf(err))
	assert.Equal(t, "internal error", MessageOf(err))
}
