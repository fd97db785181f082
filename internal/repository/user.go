package repository

import (
	"context"
	"errors"

	"kasku/internal/domain"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// ProfileUpdate carries the mutable profile fields. Nil password means
// "keep the current one".
type ProfileUpdate struct {
	Username string
	Bio      string
	Password *string
}

// UserRepository defines persistence operations for members.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByNIS(ctx context.Context, nis string) (*domain.User, error)
	// GetByIdentifier resolves a login identifier against either the nis
	// or the username column.
	GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdateProfile(ctx context.Context, nis string, update ProfileUpdate) error
	UpdatePhotoURL(ctx context.Context, nis string, photoURL *string) error
}
