package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"kasku/internal/domain"
	"kasku/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are
	// incorrect. Unknown identifier and wrong password are deliberately
	// indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordMismatch indicates the password confirmation differs from
	// the new password.
	ErrPasswordMismatch = errors.New("password confirmation does not match")
)

// demoUsers is a fixed development fallback used when the database cannot
// resolve a login. It is not a security feature.
var demoUsers = []domain.User{
	{
		NIS: "0001", Username: "admin", FullName: "Admin User",
		Role: domain.RoleAdmin, Position: "Administrator",
		Bio: domain.DefaultBio, Password: "admin123",
	},
	{
		NIS: "0002", Username: "siswa1", FullName: "M. Hanan Izzaturrofan",
		Role: domain.RoleUser, Position: "Siswa - X PPLG 1",
		Bio: domain.DefaultBio, Password: "password123",
	},
	{
		NIS: "0003", Username: "siswa2", FullName: "Budi Santoso",
		Role: domain.RoleUser, Position: "Siswa - X PPLG 2",
		Bio: domain.DefaultBio, Password: "password456",
	},
}

// UserService describes member lifecycle operations.
type UserService interface {
	Authenticate(ctx context.Context, identifier, password string) (*domain.User, error)
	GetByNIS(ctx context.Context, nis string) (*domain.User, error)
	ListMembers(ctx context.Context) ([]domain.User, error)
	UpdateProfile(ctx context.Context, nis, username, bio, password, confirm string) (*domain.User, error)
	SetPhotoURL(ctx context.Context, nis string, photoURL *string) (*domain.User, error)
}

type userService struct {
	users  repository.UserRepository
	logger *logrus.Logger
}

func NewUserService(users repository.UserRepository, logger *logrus.Logger) UserService {
	return &userService{
		users:  users,
		logger: logger,
	}
}

// Authenticate resolves the identifier against either nis or username and
// compares the credential byte for byte. When the repository errors out or
// finds nothing, the fixed demo identities serve as a development fallback;
// the branch is logged so a misconfigured database stays visible.
func (s *userService) Authenticate(ctx context.Context, identifier, password string) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warnf("login %q not in database, trying demo identities", identifier)
		} else {
			s.logger.Warnf("user lookup failed (%v), trying demo identities", err)
		}
		return s.authenticateDemo(identifier, password)
	}

	if !passwordMatches(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return user.Sanitize(), nil
}

func (s *userService) authenticateDemo(identifier, password string) (*domain.User, error) {
	for i := range demoUsers {
		u := &demoUsers[i]
		if u.NIS != identifier && u.Username != identifier {
			continue
		}
		if passwordMatches(u.Password, password) {
			return u.Sanitize(), nil
		}
		break
	}
	return nil, ErrInvalidCredentials
}

// passwordMatches compares raw credentials in constant time. The stored
// value is unhashed on purpose; see DESIGN.md.
func passwordMatches(stored, provided string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) == 1
}

func (s *userService) GetByNIS(ctx context.Context, nis string) (*domain.User, error) {
	user, err := s.users.GetByNIS(ctx, nis)
	if err != nil {
		return nil, err
	}
	return user.Sanitize(), nil
}

func (s *userService) ListMembers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	members := make([]domain.User, 0, len(users))
	for i := range users {
		members = append(members, *users[i].Sanitize())
	}
	return members, nil
}

func (s *userService) UpdateProfile(ctx context.Context, nis, username, bio, password, confirm string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if len(bio) > domain.MaxBioLength {
		return nil, fmt.Errorf("bio must be at most %d characters", domain.MaxBioLength)
	}

	update := repository.ProfileUpdate{
		Username: username,
		Bio:      bio,
	}
	if password != "" {
		if password != confirm {
			return nil, ErrPasswordMismatch
		}
		update.Password = &password
	}

	if err := s.users.UpdateProfile(ctx, nis, update); err != nil {
		return nil, err
	}
	return s.GetByNIS(ctx, nis)
}

func (s *userService) SetPhotoURL(ctx context.Context, nis string, photoURL *string) (*domain.User, error) {
	if err := s.users.UpdatePhotoURL(ctx, nis, photoURL); err != nil {
		return nil, err
	}
	return s.GetByNIS(ctx, nis)
}
