package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

const titleUnexpected = "Unexpected problem"

// Problem standardizes application errors as a status, a short title and a detail.
type Problem struct {
	Status int
	Title  string
	Detail string
	Err    error
}

func (p *Problem) Error() string {
	if p.Err != nil {
		return fmt.Sprintf("%s: %s: %v", p.Title, p.Detail, p.Err)
	}
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

func (p *Problem) Unwrap() error {
	return p.Err
}

// NewProblem constructs a Problem.
func NewProblem(status int, title, detail string) *Problem {
	return &Problem{Status: status, Title: title, Detail: detail}
}

// NewInternal builds the 500 problem used for store failures.
func NewInternal(detail string, err error) error {
	return &Problem{Status: http.StatusInternalServerError, Title: titleUnexpected, Detail: detail, Err: err}
}

func NewCreateNotAllowed() error {
	return NewProblem(http.StatusMethodNotAllowed,
		"You're not allowed to create users on this system",
		"User accounts are created when you sign in through a third-party provider such as Facebook")
}

const detailUnresolvedUser = "There was an error processing the request to save your information"

func NewSaveRejected(err error) error {
	return &Problem{Status: http.StatusBadRequest, Title: "Could not save user information", Detail: detailUnresolvedUser, Err: err}
}

func NewDeleteRejected(err error) error {
	return &Problem{Status: http.StatusBadRequest, Title: "Could not delete user", Detail: detailUnresolvedUser, Err: err}
}

func NewInvalidUsername() error {
	return NewProblem(http.StatusBadRequest, "Invalid Username", "User names must be 5-16 characters")
}

func NewUsernameTaken(err error) error {
	return &Problem{Status: http.StatusConflict, Title: "Username unavailable", Detail: "That user name is already taken", Err: err}
}

func NewUnauthorized(detail string) error {
	return NewProblem(http.StatusUnauthorized, "Authentication required", detail)
}

func NewTooManyRequests(detail string) error {
	return NewProblem(http.StatusTooManyRequests, "Too many requests", detail)
}

// NewInternalError is the fallback for unclassified failures.
func NewInternalError(err error) error {
	return &Problem{Status: http.StatusInternalServerError, Title: titleUnexpected, Detail: "internal server error", Err: err}
}

// ToProblem converts generic errors to a Problem.
func ToProblem(err error) *Problem {
	if err == nil {
		return nil
	}
	var problem *Problem
	if errors.As(err, &problem) {
		return problem
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &Problem{Status: fiberErr.Code, Title: http.StatusText(fiberErr.Code), Detail: fiberErr.Message}
	}
	return NewInternalError(err).(*Problem)
}
