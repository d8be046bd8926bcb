package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToProblem(t *testing.T) {
	assert.Nil(t, ToProblem(nil))

	cause := errors.New("boom")
	wrapped := fmt.Errorf("listing: %w", NewInternal("Could not list users due to internal error", cause))
	p := ToProblem(wrapped)
	require.NotNil(t, p)
	assert.Equal(t, http.StatusInternalServerError, p.Status)
	assert.Equal(t, "Unexpected problem", p.Title)
	assert.ErrorIs(t, p, cause)

	p = ToProblem(fiber.NewError(http.StatusNotFound, "Cannot GET /nope"))
	assert.Equal(t, http.StatusNotFound, p.Status)
	assert.Equal(t, "Not Found", p.Title)
	assert.Equal(t, "Cannot GET /nope", p.Detail)

	p = ToProblem(cause)
	assert.Equal(t, http.StatusInternalServerError, p.Status)
	assert.Equal(t, "internal server error", p.Detail)
}

func TestProblemConstructors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		title  string
	}{
		{NewCreateNotAllowed(), http.StatusMethodNotAllowed, "You're not allowed to create users on this system"},
		{NewSaveRejected(nil), http.StatusBadRequest, "Could not save user information"},
		{NewDeleteRejected(nil), http.StatusBadRequest, "Could not delete user"},
		{NewInvalidUsername(), http.StatusBadRequest, "Invalid Username"},
		{NewUsernameTaken(nil), http.StatusConflict, "Username unavailable"},
		{NewUnauthorized("missing token"), http.StatusUnauthorized, "Authentication required"},
		{NewTooManyRequests("slow down"), http.StatusTooManyRequests, "Too many requests"},
	}

	for _, tc := range cases {
		p := ToProblem(tc.err)
		assert.Equal(t, tc.status, p.Status, tc.title)
		assert.Equal(t, tc.title, p.Title)
		assert.NotEmpty(t, p.Detail)
	}

	assert.Equal(t, "There was an error processing the request to save your information", ToProblem(NewDeleteRejected(nil)).Detail)
	assert.Equal(t, "User names must be 5-16 characters", ToProblem(NewInvalidUsername()).Detail)
}

func TestProblemKeepsCause(t *testing.T) {
	cause := errors.New("cause")
	wrapped := fmt.Errorf("saving: %w", NewUsernameTaken(cause))

	p := ToProblem(wrapped)
	assert.Equal(t, http.StatusConflict, p.Status)
	assert.ErrorIs(t, wrapped, cause)
}
