package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidUsername(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"", false},
		{"abcd", false},
		{"abcde", true},
		{"a1234", true},
		{"A_b_c", true},
		{"Zz9_x", true},
		{"1abcde", false},
		{"_abcde", false},
		{"abc de", false},
		{"abc-de", false},
		{"abcdé", false},
		{"a" + strings.Repeat("b", 15), true},
		{"a" + strings.Repeat("b", 16), false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ValidUsername(tc.name), "username %q", tc.name)
	}
}

func TestApplyProfileFirstRegistration(t *testing.T) {
	u := &User{FirstName: "Old", State: UserStateOffline, Avatar: "old.png"}

	err := u.ApplyProfile(ProfileUpdate{Username: "abcde", FirstName: "X"})
	require.NoError(t, err)

	assert.Equal(t, "abcde", u.Username)
	assert.Equal(t, "X", u.FirstName)
	assert.True(t, u.RegistrationDone)
	assert.Equal(t, UserStateOnline, u.State)
	assert.Empty(t, u.Avatar)
}

func TestApplyProfileInvalidUsernameLeavesUserUntouched(t *testing.T) {
	u := &User{FirstName: "Old", State: UserStateOffline, Avatar: "old.png"}
	before := *u

	err := u.ApplyProfile(ProfileUpdate{Username: "ab1", FirstName: "X", Avatar: "new.png"})
	require.ErrorIs(t, err, ErrInvalidUsername)
	assert.Equal(t, before, *u)
}

func TestApplyProfileIgnoresUsernameAfterRegistration(t *testing.T) {
	u := &User{Username: "original", RegistrationDone: true, Email: "a@example.com", LastName: "L"}

	err := u.ApplyProfile(ProfileUpdate{Username: "!", Email: "", LastName: "New", Avatar: "pic"})
	require.NoError(t, err)

	assert.Equal(t, "original", u.Username)
	assert.Equal(t, "a@example.com", u.Email)
	assert.Equal(t, "New", u.LastName)
	assert.Equal(t, "pic", u.Avatar)
	assert.Equal(t, UserStateOnline, u.State)
}

func TestHasCohort(t *testing.T) {
	u := &User{Cohorts: []string{"c1", "c2"}}
	assert.True(t, u.HasCohort("c2"))
	assert.False(t, u.HasCohort("c3"))
}
