package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/profile-service/internal/auth"
	"github.com/spec-kit/profile-service/internal/domain"
	"github.com/spec-kit/profile-service/internal/events"
	"github.com/spec-kit/profile-service/internal/repository"
)

// SessionService opens sessions for identities confirmed by the third-party
// provider and closes them when the account goes away.
type SessionService struct {
	users      repository.UserRepository
	provision  repository.UserProvisioner
	sessions   auth.SessionStore
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// SessionDependencies encapsulates collaborators of the session service.
type SessionDependencies struct {
	UserRepo    repository.UserRepository
	Provisioner repository.UserProvisioner
	Sessions    auth.SessionStore
	Tokens      *auth.TokenManager
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

func NewSessionService(deps SessionDependencies) *SessionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		users:      deps.UserRepo,
		provision:  deps.Provisioner,
		sessions:   deps.Sessions,
		tokens:     deps.Tokens,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// SignIn finds or provisions the user behind a provider identity and returns
// a bearer token for a fresh session.
func (s *SessionService) SignIn(ctx context.Context, identity domain.User, provider domain.Provider) (*domain.User, string, error) {
	if identity.ExternalID == "" {
		return nil, "", errors.New("external id required")
	}

	user, err := s.users.FindByExternalID(ctx, identity.ExternalID)
	if errors.Is(err, repository.ErrUserNotFound) {
		if s.provision == nil {
			return nil, "", errors.New("user store cannot provision users")
		}
		user = &identity
		switch err := s.provision.Provision(ctx, user); {
		case errors.Is(err, repository.ErrUserExists):
			// provisioned concurrently by another sign-in
			if user, err = s.users.FindByExternalID(ctx, identity.ExternalID); err != nil {
				return nil, "", err
			}
		case err != nil:
			return nil, "", fmt.Errorf("provision user: %w", err)
		default:
			s.logger.Info("provisioned user", zap.String("user_id", user.ID), zap.String("provider", string(provider)))
		}
	} else if err != nil {
		return nil, "", err
	}

	session, err := s.sessions.Create(ctx, user.ExternalID, provider, s.tokens.TTL())
	if err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}
	token, err := s.tokens.GenerateToken(session)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// RegisterHandlers subscribes session revocation to account deletion.
func (s *SessionService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventUserDeleted, s.handleUserDeleted)
}

func (s *SessionService) handleUserDeleted(ctx context.Context, event events.Event) error {
	if event.ExternalID == "" {
		return nil
	}
	revoked, err := s.sessions.RevokeAll(ctx, event.ExternalID)
	if err != nil {
		s.logger.Error("revoke sessions failed", zap.String("user_id", event.UserID), zap.Error(err))
		return err
	}
	s.logger.Info("revoked sessions", zap.String("user_id", event.UserID), zap.Int64("count", revoked))
	return nil
}
