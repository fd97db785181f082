package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kasku/internal/domain"
	"kasku/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	nis TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	full_name TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user',
	position TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT 'no bio',
	photo_url TEXT NULL,
	password TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Bio == "" {
		user.Bio = domain.DefaultBio
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (nis, username, full_name, role, position, bio, photo_url, password, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.NIS,
		user.Username,
		user.FullName,
		string(user.Role),
		user.Position,
		user.Bio,
		user.PhotoURL,
		user.Password,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return fmt.Errorf("user already exists: %w", err)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const selectUserColumns = `nis, username, full_name, role, position, bio, photo_url, password, created_at, updated_at`

func (r *UserRepository) GetByNIS(ctx context.Context, nis string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+selectUserColumns+`
FROM users
WHERE nis = ?`,
		nis,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+selectUserColumns+`
FROM users
WHERE nis = ? OR username = ?`,
		identifier, identifier,
	)
	return scanUser(row)
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+selectUserColumns+`
FROM users
ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, nis string, update repository.ProfileUpdate) error {
	bio := update.Bio
	if bio == "" {
		bio = domain.DefaultBio
	}

	var (
		res sql.Result
		err error
	)
	if update.Password != nil {
		res, err = r.db.ExecContext(ctx, `
UPDATE users SET username = ?, bio = ?, password = ?, updated_at = ?
WHERE nis = ?`,
			update.Username, bio, *update.Password, time.Now().UTC(), nis,
		)
	} else {
		res, err = r.db.ExecContext(ctx, `
UPDATE users SET username = ?, bio = ?, updated_at = ?
WHERE nis = ?`,
			update.Username, bio, time.Now().UTC(), nis,
		)
	}
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return fmt.Errorf("username already taken: %w", err)
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return requireAffected(res)
}

func (r *UserRepository) UpdatePhotoURL(ctx context.Context, nis string, photoURL *string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users SET photo_url = ?, updated_at = ?
WHERE nis = ?`,
		photoURL, time.Now().UTC(), nis,
	)
	if err != nil {
		return fmt.Errorf("update photo url: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user     domain.User
		role     string
		photoURL sql.NullString
	)
	if err := row.Scan(
		&user.NIS,
		&user.Username,
		&user.FullName,
		&role,
		&user.Position,
		&user.Bio,
		&photoURL,
		&user.Password,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.Role = domain.Role(role)
	if photoURL.Valid {
		user.PhotoURL = &photoURL.String
	}
	return &user, nil
}
