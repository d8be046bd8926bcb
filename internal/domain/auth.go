package domain

import "time"

// Provider names the third-party identity provider that authenticated a principal.
type Provider string

const (
	ProviderFacebook Provider = "facebook"
)

// Session represents an authenticated session opened by the identity provider.
type Session struct {
	ID         string
	ExternalID string
	Provider   Provider
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Principal is the authenticated caller of a request. Only the external identity
// is trusted when resolving which user an Update or Delete acts on.
type Principal struct {
	ExternalID string
	SessionID  string
	Provider   Provider
}
