package domain

import (
	"errors"
	"time"
)

// UserState represents the presence state of a user.
type UserState string

const (
	UserStateOnline  UserState = "ONLINE"
	UserStateOffline UserState = "OFFLINE"
)

// Valid reports whether s is a known state.
func (s UserState) Valid() bool {
	return s == UserStateOnline || s == UserStateOffline
}

// ErrInvalidUsername is returned when a username fails the format rule.
var ErrInvalidUsername = errors.New("invalid username")

// User is a profile created by the third-party authentication flow.
type User struct {
	ID               string    `json:"id"`
	ExternalID       string    `json:"-"`
	Username         string    `json:"username,omitempty"`
	FirstName        string    `json:"firstName,omitempty"`
	LastName         string    `json:"lastName,omitempty"`
	Email            string    `json:"email,omitempty"`
	Avatar           string    `json:"avatar,omitempty"`
	State            UserState `json:"state"`
	RegistrationDone bool      `json:"registrationDone"`
	Cohorts          []string  `json:"cohorts"`
	Messages         []Message `json:"messages,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Message is an undelivered message waiting on a user document.
type Message struct {
	ID     string    `json:"id" bson:"id"`
	From   string    `json:"from" bson:"from"`
	Body   string    `json:"body" bson:"body"`
	SentAt time.Time `json:"sentAt" bson:"sentAt"`
}

// ProfileUpdate carries the client-supplied fields of a profile update.
type ProfileUpdate struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Avatar    string
}

// ApplyProfile merges p into u.
//
// The username is only considered while registration is pending; once set it is
// immutable. Empty first/last name and email keep the prior value, while the avatar
// is always taken from p. On ErrInvalidUsername u is left untouched.
func (u *User) ApplyProfile(p ProfileUpdate) error {
	if !u.RegistrationDone {
		if !ValidUsername(p.Username) {
			return ErrInvalidUsername
		}
		u.Username = p.Username
	}

	u.RegistrationDone = true
	if p.FirstName != "" {
		u.FirstName = p.FirstName
	}
	if p.LastName != "" {
		u.LastName = p.LastName
	}
	if p.Email != "" {
		u.Email = p.Email
	}
	u.State = UserStateOnline
	u.Avatar = p.Avatar
	return nil
}

// HasCohort reports whether the user belongs to cohortID.
func (u *User) HasCohort(cohortID string) bool {
	for _, c := range u.Cohorts {
		if c == cohortID {
			return true
		}
	}
	return false
}
