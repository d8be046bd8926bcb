package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/spec-kit/profile-service/internal/domain"
	"github.com/spec-kit/profile-service/internal/persistence"
)

func TestMongoUserRepository(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	db := client.Database(fmt.Sprintf("profiles_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	repo := NewMongoUserRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))

	runUserRepositoryContract(t, repo, func(id string, msg domain.Message) {
		oid, err := primitive.ObjectIDFromHex(id)
		require.NoError(t, err)
		_, err = db.Collection(usersCollection).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$push": bson.M{"messages": msg}})
		require.NoError(t, err)
	})
}

func TestPostgresUserRepository(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, persistence.RunMigrations(ctx, pool, zap.NewNop()))

	repo := NewPostgresUserRepository(pool)
	runUserRepositoryContract(t, repo, func(id string, msg domain.Message) {
		raw, err := json.Marshal([]domain.Message{msg})
		require.NoError(t, err)
		_, err = pool.Exec(ctx, `UPDATE users SET messages = COALESCE(messages, '[]'::jsonb) || $2::jsonb WHERE id = $1`, id, raw)
		require.NoError(t, err)
	})
}
