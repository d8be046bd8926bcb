package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/profile-service/internal/domain"
)

const userColumns = `id::text, external_id, COALESCE(username, ''), first_name, last_name, email,
        avatar, state, registration_done, cohorts, created_at, updated_at`

// PostgresUserRepository stores users in a relational table.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository returns a Postgres-backed implementation.
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func (r *PostgresUserRepository) List(ctx context.Context, filter UserFilter, skip, take int64) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ($1 = '' OR state = $1) ORDER BY created_at, id OFFSET $2`
	args := []any{string(filter.State), skip}
	if take > 0 {
		query += ` LIMIT $3`
		args = append(args, take)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *PostgresUserRepository) Count(ctx context.Context, filter UserFilter) (int64, error) {
	const query = `SELECT COUNT(*) FROM users WHERE ($1 = '' OR state = $1)`

	var n int64
	err := r.pool.QueryRow(ctx, query, string(filter.State)).Scan(&n)
	return n, err
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !validUUID(id) {
		return nil, ErrUserNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return mapRowError(scanUser(row))
}

func (r *PostgresUserRepository) GetCohortsByID(ctx context.Context, id string) ([]string, error) {
	if !validUUID(id) {
		return nil, ErrUserNotFound
	}
	var cohorts []string
	if err := r.pool.QueryRow(ctx, `SELECT cohorts FROM users WHERE id = $1`, id).Scan(&cohorts); err != nil {
		return nil, mapNoRows(err)
	}
	return nonNil(cohorts), nil
}

func (r *PostgresUserRepository) AddCohort(ctx context.Context, id, cohortID string) ([]string, error) {
	const query = `
        UPDATE users
        SET cohorts = CASE WHEN $2::text = ANY(cohorts) THEN cohorts ELSE array_append(cohorts, $2::text) END,
            updated_at = NOW()
        WHERE id = $1
        RETURNING cohorts`
	return r.updateCohorts(ctx, query, id, cohortID)
}

func (r *PostgresUserRepository) RemoveCohort(ctx context.Context, id, cohortID string) ([]string, error) {
	const query = `
        UPDATE users SET cohorts = array_remove(cohorts, $2::text), updated_at = NOW()
        WHERE id = $1
        RETURNING cohorts`
	return r.updateCohorts(ctx, query, id, cohortID)
}

func (r *PostgresUserRepository) updateCohorts(ctx context.Context, query, id, cohortID string) ([]string, error) {
	if !validUUID(id) {
		return nil, ErrUserNotFound
	}
	var cohorts []string
	if err := r.pool.QueryRow(ctx, query, id, cohortID).Scan(&cohorts); err != nil {
		return nil, mapNoRows(err)
	}
	return nonNil(cohorts), nil
}

func (r *PostgresUserRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID)
	return mapRowError(scanUser(row))
}

func (r *PostgresUserRepository) Save(ctx context.Context, user *domain.User) error {
	if !validUUID(user.ID) {
		return ErrUserNotFound
	}
	const query = `
        UPDATE users SET username = COALESCE(NULLIF($1, ''), username), first_name=$2, last_name=$3,
            email=$4, avatar=$5, state=$6, registration_done=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Avatar,
		string(user.State),
		user.RegistrationDone,
		user.ID,
	).Scan(&user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return mapNoRows(err)
}

func (r *PostgresUserRepository) Remove(ctx context.Context, user *domain.User) (*RemoveResult, error) {
	if !validUUID(user.ID) {
		return nil, ErrUserNotFound
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID)
	if err != nil {
		return nil, err
	}
	return &RemoveResult{ID: user.ID, Deleted: cmd.RowsAffected()}, nil
}

func (r *PostgresUserRepository) GetMessages(ctx context.Context, id string) (*domain.User, error) {
	if !validUUID(id) {
		return nil, ErrUserNotFound
	}
	const query = `
        WITH prev AS (SELECT id, messages FROM users WHERE id = $1 FOR UPDATE)
        UPDATE users u SET messages = NULL, updated_at = NOW()
        FROM prev WHERE u.id = prev.id
        RETURNING u.id::text, u.external_id, COALESCE(u.username, ''), u.first_name, u.last_name, u.email,
            u.avatar, u.state, u.registration_done, u.cohorts, u.created_at, u.updated_at, prev.messages`

	var raw []byte
	user, err := scanUser(r.pool.QueryRow(ctx, query, id), &raw)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &user.Messages); err != nil {
			return nil, fmt.Errorf("decode messages: %w", err)
		}
	}
	return user, nil
}

func (r *PostgresUserRepository) Provision(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (external_id, first_name, last_name, email, avatar)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + userColumns

	created, err := scanUser(r.pool.QueryRow(ctx, query,
		user.ExternalID,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Avatar,
	))
	if isUniqueViolation(err) {
		return ErrUserExists
	}
	if err != nil {
		return err
	}
	*user = *created
	return nil
}

func (r *PostgresUserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanUser(row pgx.Row, extra ...any) (*domain.User, error) {
	var (
		user  domain.User
		state string
	)
	dest := []any{
		&user.ID,
		&user.ExternalID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Avatar,
		&state,
		&user.RegistrationDone,
		&user.Cohorts,
		&user.CreatedAt,
		&user.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	user.State = domain.UserState(state)
	user.Cohorts = nonNil(user.Cohorts)
	return &user, nil
}

func mapRowError(user *domain.User, err error) (*domain.User, error) {
	if err != nil {
		return nil, mapNoRows(err)
	}
	return user, nil
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}

// isUniqueViolation checks for a PostgreSQL unique constraint violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
