package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campushub/campushub-api/internal/core/domain"
	"github.com/campushub/campushub-api/internal/core/ports"
)

const userColumns = `id, email, name, role, phone, avatar, npm, password_hash, federated_id, created_at, updated_at`

// UserRepository implements ports.UserRepository on Postgres. The unique
// indexes on email and federated_id are the authoritative duplicate check;
// violations surface as the matching domain sentinel.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ ports.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) FindByFederatedID(ctx context.Context, federatedID string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE federated_id = $1`, federatedID)
	return scanUser(row)
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO users (email, name, role, phone, avatar, npm, password_hash, federated_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		user.Email, user.Name, user.Role,
		nullable(user.Phone), nullable(user.Avatar), nullable(user.NPM),
		nullable(user.PasswordHash), nullable(user.FederatedID))

	created := *user
	if err := row.Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt); err != nil {
		return nil, conflictError(err)
	}
	return &created, nil
}

func (r *UserRepository) Update(ctx context.Context, id int64, fields domain.UserUpdate) (*domain.User, error) {
	set := make([]string, 0, 6)
	args := make([]any, 0, 7)

	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("name", fields.Name)
	add("phone", fields.Phone)
	add("avatar", fields.Avatar)
	add("npm", fields.NPM)
	add("federated_id", fields.FederatedID)

	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	set = append(set, "updated_at = now()")
	args = append(args, id)

	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
			strings.Join(set, ", "), len(args), userColumns),
		args...)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var phone, avatar, npm, passwordHash, federatedID sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role,
		&phone, &avatar, &npm, &passwordHash, &federatedID,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, conflictError(err)
	}
	u.Phone = phone.String
	u.Avatar = avatar.String
	u.NPM = npm.String
	u.PasswordHash = passwordHash.String
	u.FederatedID = federatedID.String
	return &u, nil
}

// conflictError maps Postgres unique violations (SQLSTATE 23505) onto the
// domain sentinels, keyed by which constraint fired.
func conflictError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "federated") {
			return domain.ErrFederatedIDTaken
		}
		return domain.ErrEmailTaken
	}
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
