package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/profile-service/internal/domain"
)

// MemoryUserRepository keeps users in process memory. It backs STORE_DRIVER=memory
// and the handler tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	order []string
	users map[string]*domain.User
}

// NewMemoryUserRepository returns an empty in-memory store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*domain.User)}
}

func (r *MemoryUserRepository) Provision(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ExternalID == user.ExternalID {
			return ErrUserExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.State == "" {
		user.State = domain.UserStateOffline
	}
	if user.Cohorts == nil {
		user.Cohorts = []string{}
	}
	r.users[user.ID] = cloneUser(user, true)
	r.order = append(r.order, user.ID)
	return nil
}

// Deliver appends a pending message to a user; it stands in for the messaging
// system that writes to the document store.
func (r *MemoryUserRepository) Deliver(id string, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Messages = append(u.Messages, msg)
	return nil
}

func (r *MemoryUserRepository) List(_ context.Context, filter UserFilter, skip, take int64) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.User
	var seen int64
	for _, id := range r.order {
		u := r.users[id]
		if !matches(u, filter) {
			continue
		}
		seen++
		if seen <= skip {
			continue
		}
		if take > 0 && int64(len(out)) >= take {
			break
		}
		out = append(out, *cloneUser(u, false))
	}
	return out, nil
}

func (r *MemoryUserRepository) Count(_ context.Context, filter UserFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, u := range r.users {
		if matches(u, filter) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u, false), nil
}

func (r *MemoryUserRepository) GetCohortsByID(_ context.Context, id string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return append([]string{}, u.Cohorts...), nil
}

func (r *MemoryUserRepository) AddCohort(_ context.Context, id, cohortID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if !u.HasCohort(cohortID) {
		u.Cohorts = append(u.Cohorts, cohortID)
		u.UpdatedAt = time.Now().UTC()
	}
	return append([]string{}, u.Cohorts...), nil
}

func (r *MemoryUserRepository) RemoveCohort(_ context.Context, id, cohortID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	kept := u.Cohorts[:0]
	for _, c := range u.Cohorts {
		if c != cohortID {
			kept = append(kept, c)
		}
	}
	u.Cohorts = kept
	u.UpdatedAt = time.Now().UTC()
	return append([]string{}, u.Cohorts...), nil
}

func (r *MemoryUserRepository) FindByExternalID(_ context.Context, externalID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.ExternalID == externalID {
			return cloneUser(u, false), nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryUserRepository) Save(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if user.Username != "" {
		for id, u := range r.users {
			if id != user.ID && u.Username == user.Username {
				return ErrUsernameTaken
			}
		}
	}

	if user.Username != "" {
		stored.Username = user.Username
	}
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.Email = user.Email
	stored.Avatar = user.Avatar
	stored.State = user.State
	stored.RegistrationDone = user.RegistrationDone
	stored.UpdatedAt = time.Now().UTC()
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *MemoryUserRepository) Remove(_ context.Context, user *domain.User) (*RemoveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := &RemoveResult{ID: user.ID}
	if _, ok := r.users[user.ID]; !ok {
		return result, nil
	}
	delete(r.users, user.ID)
	for i, id := range r.order {
		if id == user.ID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	result.Deleted = 1
	return result, nil
}

func (r *MemoryUserRepository) GetMessages(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := cloneUser(u, true)
	u.Messages = nil
	return out, nil
}

func (r *MemoryUserRepository) Ping(context.Context) error {
	return nil
}

func matches(u *domain.User, filter UserFilter) bool {
	return filter.State == "" || u.State == filter.State
}

func cloneUser(u *domain.User, withMessages bool) *domain.User {
	cp := *u
	cp.Cohorts = append([]string{}, u.Cohorts...)
	cp.Messages = nil
	if withMessages && u.Messages != nil {
		cp.Messages = append([]domain.Message{}, u.Messages...)
	}
	return &cp
}
