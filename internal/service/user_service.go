package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/profile-service/internal/config"
	"github.com/spec-kit/profile-service/internal/domain"
	"github.com/spec-kit/profile-service/internal/events"
	"github.com/spec-kit/profile-service/internal/repository"
	apperrors "github.com/spec-kit/profile-service/pkg/util"
)

// UserPage is a non-empty page of users with the total matching count.
type UserPage struct {
	Total   int64
	Results []domain.User
}

// UserService implements the user profile operations on top of the user store.
//
// Read operations return a nil result (and nil error) when the user does not
// exist; callers render that as an empty response.
type UserService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	messages   config.MessagesConfig
}

// UserDependencies encapsulates collaborators of the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Messages   config.MessagesConfig
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		messages:   deps.Messages,
	}
}

// Create always fails: accounts only come from third-party sign-in.
func (s *UserService) Create(context.Context) error {
	return apperrors.NewCreateNotAllowed()
}

// List returns one page of users, or nil when the page is empty.
// A failing count degrades the total to zero instead of failing the request.
func (s *UserService) List(ctx context.Context, filter repository.UserFilter, skip, take int64) (*UserPage, error) {
	users, err := s.users.List(ctx, filter, skip, take)
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		return nil, apperrors.NewInternal("Could not list users due to internal error", err)
	}
	if len(users) == 0 {
		return nil, nil
	}

	total, err := s.users.Count(ctx, filter)
	if err != nil {
		s.logger.Warn("count users failed", zap.Error(err))
		total = 0
	}
	return &UserPage{Total: total, Results: users}, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("get user failed", zap.String("user_id", id), zap.Error(err))
		return nil, apperrors.NewInternal("Could not retrieve user due to internal error", err)
	}
	return user, nil
}

// GetCohortsByID returns the user's cohorts. A user without cohorts yields an
// empty, non-nil slice.
func (s *UserService) GetCohortsByID(ctx context.Context, id string) ([]string, error) {
	cohorts, err := s.users.GetCohortsByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("get cohorts failed", zap.String("user_id", id), zap.Error(err))
		return nil, apperrors.NewInternal("Could not retrieve cohorts due to internal error", err)
	}
	return nonNilCohorts(cohorts), nil
}

func (s *UserService) AddCohort(ctx context.Context, userID, cohortID string) ([]string, error) {
	cohorts, err := s.users.AddCohort(ctx, userID, cohortID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("add cohort failed", zap.String("user_id", userID), zap.String("cohort_id", cohortID), zap.Error(err))
		return nil, apperrors.NewInternal("Could not save cohort due to internal error", err)
	}
	cohorts = nonNilCohorts(cohorts)
	s.publish(ctx, events.NewEvent(events.EventCohortAdded, userID, "",
		events.CohortChangedPayload{CohortID: cohortID, Cohorts: cohorts}))
	return cohorts, nil
}

func (s *UserService) RemoveCohort(ctx context.Context, userID, cohortID string) ([]string, error) {
	cohorts, err := s.users.RemoveCohort(ctx, userID, cohortID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("remove cohort failed", zap.String("user_id", userID), zap.String("cohort_id", cohortID), zap.Error(err))
		return nil, apperrors.NewInternal("Could not remove cohort due to internal error", err)
	}
	cohorts = nonNilCohorts(cohorts)
	s.publish(ctx, events.NewEvent(events.EventCohortRemoved, userID, "",
		events.CohortChangedPayload{CohortID: cohortID, Cohorts: cohorts}))
	return cohorts, nil
}

// Update applies the profile to the caller's own user. The target is resolved
// from the principal's external id only; ids in the path or body are ignored.
func (s *UserService) Update(ctx context.Context, principal *domain.Principal, update domain.ProfileUpdate) (*domain.User, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return nil, apperrors.NewSaveRejected(err)
	}

	firstRegistration := !user.RegistrationDone
	if err := user.ApplyProfile(update); err != nil {
		return nil, apperrors.NewInvalidUsername()
	}

	switch err := s.users.Save(ctx, user); {
	case errors.Is(err, repository.ErrUsernameTaken):
		return nil, apperrors.NewUsernameTaken(err)
	case errors.Is(err, repository.ErrUserNotFound):
		return nil, apperrors.NewSaveRejected(err)
	case err != nil:
		s.logger.Error("save user failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, apperrors.NewInternal("Could not save user due to internal error", err)
	}

	if firstRegistration {
		s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.ID, user.ExternalID,
			events.UserRegisteredPayload{Username: user.Username, Email: user.Email}))
	} else {
		s.publish(ctx, events.NewEvent(events.EventUserUpdated, user.ID, user.ExternalID,
			events.UserUpdatedPayload{Username: user.Username, State: string(user.State)}))
	}
	return user, nil
}

// Delete removes the caller's own user.
func (s *UserService) Delete(ctx context.Context, principal *domain.Principal) (*repository.RemoveResult, error) {
	user, err := s.resolve(ctx, principal)
	if err != nil {
		return nil, apperrors.NewDeleteRejected(err)
	}

	result, err := s.users.Remove(ctx, user)
	if err != nil {
		s.logger.Error("remove user failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, apperrors.NewInternal("Could not delete user due to internal error", err)
	}
	if result.Deleted > 0 {
		s.publish(ctx, events.NewEvent(events.EventUserDeleted, user.ID, user.ExternalID,
			events.UserDeletedPayload{Deleted: result.Deleted}))
	}
	return result, nil
}

// GetMessages hands out the user's pending messages once. It returns nil when
// the user is unknown or has nothing pending. Store failures are folded into the
// nil result unless ReportStoreErrors is set.
func (s *UserService) GetMessages(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetMessages(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("get messages failed", zap.String("user_id", id), zap.Error(err))
		if s.messages.ReportStoreErrors {
			return nil, apperrors.NewInternal("Could not retrieve messages due to internal error", err)
		}
		return nil, nil
	}
	if user == nil || user.Messages == nil {
		return nil, nil
	}

	s.publish(ctx, events.NewEvent(events.EventMessagesDelivered, user.ID, user.ExternalID,
		events.MessagesDeliveredPayload{Count: len(user.Messages)}))
	return user, nil
}

func (s *UserService) resolve(ctx context.Context, principal *domain.Principal) (*domain.User, error) {
	if principal == nil || principal.ExternalID == "" {
		return nil, errors.New("no authenticated principal")
	}
	user, err := s.users.FindByExternalID(ctx, principal.ExternalID)
	if err != nil {
		s.logger.Warn("resolve principal failed", zap.String("external_id", principal.ExternalID), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (s *UserService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func nonNilCohorts(cohorts []string) []string {
	if cohorts == nil {
		return []string{}
	}
	return cohorts
}
