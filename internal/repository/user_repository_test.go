package repository

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/profile-service/internal/domain"
)

type contractStore interface {
	UserRepository
	UserProvisioner
}

// runUserRepositoryContract exercises the behavior every store driver must share.
// deliver appends a pending message the way the messaging system would.
func runUserRepositoryContract(t *testing.T, repo contractStore, deliver func(id string, msg domain.Message)) {
	ctx := context.Background()

	run := strconv.FormatInt(time.Now().UnixNano()%1_000_000, 10)
	alice := &domain.User{ExternalID: "fb-alice-" + run, FirstName: "Alice"}
	bob := &domain.User{ExternalID: "fb-bob-" + run, FirstName: "Bob"}
	require.NoError(t, repo.Provision(ctx, alice))
	require.NoError(t, repo.Provision(ctx, bob))
	require.NotEmpty(t, alice.ID)
	assert.Equal(t, domain.UserStateOffline, alice.State)
	assert.ErrorIs(t, repo.Provision(ctx, &domain.User{ExternalID: alice.ExternalID}), ErrUserExists)

	t.Run("lookup", func(t *testing.T) {
		got, err := repo.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.FirstName)
		assert.Equal(t, alice.ExternalID, got.ExternalID)

		got, err = repo.FindByExternalID(ctx, bob.ExternalID)
		require.NoError(t, err)
		assert.Equal(t, bob.ID, got.ID)

		_, err = repo.FindByExternalID(ctx, "unknown")
		assert.ErrorIs(t, err, ErrUserNotFound)
		_, err = repo.GetByID(ctx, "not-an-id")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("list and count", func(t *testing.T) {
		users, err := repo.List(ctx, UserFilter{}, 0, 0)
		require.NoError(t, err)
		total, err := repo.Count(ctx, UserFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(len(users)), total)

		page, err := repo.List(ctx, UserFilter{}, 1, 1)
		require.NoError(t, err)
		assert.Len(t, page, 1)

		online, err := repo.Count(ctx, UserFilter{State: domain.UserStateOnline})
		require.NoError(t, err)
		assert.Zero(t, online)
	})

	t.Run("cohorts", func(t *testing.T) {
		cohorts, err := repo.AddCohort(ctx, alice.ID, "c1")
		require.NoError(t, err)
		assert.Equal(t, []string{"c1"}, cohorts)

		cohorts, err = repo.AddCohort(ctx, alice.ID, "c1")
		require.NoError(t, err)
		assert.Equal(t, []string{"c1"}, cohorts)

		_, err = repo.AddCohort(ctx, alice.ID, "c2")
		require.NoError(t, err)
		cohorts, err = repo.RemoveCohort(ctx, alice.ID, "c1")
		require.NoError(t, err)
		assert.Equal(t, []string{"c2"}, cohorts)

		cohorts, err = repo.GetCohortsByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"c2"}, cohorts)

		_, err = repo.AddCohort(ctx, "missing", "c1")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("save", func(t *testing.T) {
		u, err := repo.FindByExternalID(ctx, alice.ExternalID)
		require.NoError(t, err)
		require.NoError(t, u.ApplyProfile(domain.ProfileUpdate{Username: "alice_" + run, Email: "a@example.com"}))
		require.NoError(t, repo.Save(ctx, u))

		got, err := repo.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Username, got.Username)
		assert.True(t, got.RegistrationDone)
		assert.Equal(t, domain.UserStateOnline, got.State)

		other, err := repo.FindByExternalID(ctx, bob.ExternalID)
		require.NoError(t, err)
		other.Username = u.Username
		assert.ErrorIs(t, repo.Save(ctx, other), ErrUsernameTaken)
	})

	t.Run("messages are delivered once", func(t *testing.T) {
		deliver(bob.ID, domain.Message{ID: "m1", From: "alice", Body: "hi", SentAt: time.Now().UTC().Truncate(time.Millisecond)})

		got, err := repo.GetMessages(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, "hi", got.Messages[0].Body)

		profile, err := repo.GetByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Nil(t, profile.Messages)

		again, err := repo.GetMessages(ctx, bob.ID)
		require.NoError(t, err)
		assert.Nil(t, again.Messages)
	})

	t.Run("remove", func(t *testing.T) {
		res, err := repo.Remove(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Deleted)

		_, err = repo.GetByID(ctx, bob.ID)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestMemoryUserRepository(t *testing.T) {
	repo := NewMemoryUserRepository()
	runUserRepositoryContract(t, repo, func(id string, msg domain.Message) {
		require.NoError(t, repo.Deliver(id, msg))
	})
}

func TestMemoryRemoveUnknownUser(t *testing.T) {
	repo := NewMemoryUserRepository()
	res, err := repo.Remove(context.Background(), &domain.User{ID: "ghost"})
	require.NoError(t, err)
	assert.Zero(t, res.Deleted)
}
