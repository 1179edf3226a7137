package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", Validation("title is required"), http.StatusBadRequest},
		{"not found", NotFound("topic %s", "abc"), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("toggle: %w", NotFound("problem")), http.StatusNotFound},
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"conflict", Conflict("username taken"), http.StatusConflict},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, http.StatusConflict},
		{"store", Store("list topics", errors.New("connection refused")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage_HidesDetail(t *testing.T) {
	assert.Equal(t, "validation failed: title is required", PublicMessage(Validation("title is required")))
	assert.Equal(t, "not found: topic abc", PublicMessage(NotFound("topic abc")))
	assert.Equal(t, "Unauthorized", PublicMessage(fmt.Errorf("%w: token expired", ErrUnauthenticated)))
	assert.Equal(t, "Admin access required", PublicMessage(ErrForbidden))
	assert.Equal(t, "already exists", PublicMessage(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x'"}))
	assert.Equal(t, "Internal server error", PublicMessage(Store("toggle", errors.New("dial tcp: refused"))))
}

func TestStore_KeepsCause(t *testing.T) {
	cause := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
	err := Store("toggle progress", cause)

	var mysqlErr *mysql.MySQLError
	assert.True(t, errors.Is(err, ErrStore))
	assert.True(t, errors.As(err, &mysqlErr))
	assert.Equal(t, uint16(1213), mysqlErr.Number)
}
