package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"typed", NotFound("album not found"), "NOT_FOUND", http.StatusNotFound},
		{"wrapped typed", fmt.Errorf("resolve: %w", Validation("name is required")), "VALIDATION_ERROR", http.StatusBadRequest},
		{"record not found", gorm.ErrRecordNotFound, "NOT_FOUND", http.StatusNotFound},
		{"translated duplicate", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), "CONFLICT", http.StatusConflict},
		{"sqlite duplicate", errors.New("UNIQUE constraint failed: albums.parent_id, albums.slug"), "CONFLICT", http.StatusConflict},
		{"mysql duplicate", errors.New("Error 1062: Duplicate entry '0-travel' for key 'uniq_album_parent_slug'"), "CONFLICT", http.StatusConflict},
		{"anything else", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := From(tt.err)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.status, e.Status)
		})
	}
	assert.Nil(t, From(nil))
}

func TestIsMatchesOnCode(t *testing.T) {
	err := fmt.Errorf("album travel/italy: %w", NotFound("album not found"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))

	cause := errors.New("connection reset")
	storageErr := Storage(cause, "upload failed")
	assert.True(t, errors.Is(storageErr, cause))
	assert.Equal(t, "upload failed: connection reset", storageErr.Error())
}
