package dto

import "github.com/spec-kit/profile-service/internal/domain"

// UpdateUserRequest is the profile body of PUT /users. Any id it carries is ignored.
type UpdateUserRequest struct {
	ID        string `json:"id,omitempty"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
}

// ToProfileUpdate drops everything the caller may not choose.
func (r UpdateUserRequest) ToProfileUpdate() domain.ProfileUpdate {
	return domain.ProfileUpdate{
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Avatar:    r.Avatar,
	}
}

// ListMeta carries paging information of a list response.
type ListMeta struct {
	Total int64 `json:"total"`
}

// UserListResponse is the body of GET /users.
type UserListResponse struct {
	Meta    ListMeta      `json:"meta"`
	Results []domain.User `json:"results"`
}

// ProblemResponse is the application/problem+json body of failed requests.
type ProblemResponse struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// UserMessagesResponse is the body of GET /users/:id/messages. Unlike profile
// reads it always carries the messages key, even for an empty list.
type UserMessagesResponse struct {
	domain.User
	Messages []domain.Message `json:"messages"`
}

func NewUserMessagesResponse(user *domain.User) UserMessagesResponse {
	messages := user.Messages
	if messages == nil {
		messages = []domain.Message{}
	}
	return UserMessagesResponse{User: *user, Messages: messages}
}
