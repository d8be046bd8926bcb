package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/profile-service/internal/domain"
	apperrors "github.com/spec-kit/profile-service/pkg/util"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer tokens and resolves the caller's principal.
type AuthMiddleware struct {
	tokens         *TokenManager
	sessions       SessionStore
	requireSession bool
	logger         *zap.Logger
}

// NewAuthMiddleware constructs middleware. When requireSession is set every token
// must reference a session that is still open in the store.
func NewAuthMiddleware(tokens *TokenManager, sessions SessionStore, requireSession bool, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, sessions: sessions, requireSession: requireSession, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	if m.requireSession {
		if m.sessions == nil || claims.ID == "" {
			return apperrors.NewUnauthorized("session required")
		}
		owner, err := m.sessions.Lookup(c.UserContext(), claims.ID)
		switch {
		case errors.Is(err, ErrSessionNotFound):
			return apperrors.NewUnauthorized("session expired or revoked")
		case err != nil:
			m.logger.Error("session lookup failed", zap.String("session_id", claims.ID), zap.Error(err))
			return apperrors.NewInternal("Could not verify session due to internal error", err)
		case owner != claims.Subject:
			return apperrors.NewUnauthorized("session does not belong to token subject")
		}
	}

	c.Locals(principalKey, &domain.Principal{
		ExternalID: claims.Subject,
		SessionID:  claims.ID,
		Provider:   claims.Provider,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	principal, ok := c.Locals(principalKey).(*domain.Principal)
	return principal, ok && principal != nil
}

// SubjectKey keys per-caller middleware such as the rate limiter: the external id
// when authenticated, the client IP otherwise.
func SubjectKey(c *fiber.Ctx) string {
	if principal, ok := PrincipalFromContext(c); ok {
		return "uid:" + principal.ExternalID
	}
	return "ip:" + c.IP()
}
