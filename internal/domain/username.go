package domain

import "regexp"

// Usernames start with an ASCII letter followed by 4-15 letters, digits or underscores.
var usernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{4,15}$`)

// ValidUsername reports whether name satisfies the username format.
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}
