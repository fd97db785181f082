package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasku/internal/domain"
	"kasku/internal/repository"
)

type fakeUserRepo struct {
	users   map[string]*domain.User
	failAll error
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*domain.User)}
	for i := range users {
		u := users[i]
		r.users[u.NIS] = &u
	}
	return r
}

func (r *fakeUserRepo) Init(context.Context) error { return nil }

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if r.failAll != nil {
		return r.failAll
	}
	r.users[user.NIS] = user
	return nil
}

func (r *fakeUserRepo) GetByNIS(_ context.Context, nis string) (*domain.User, error) {
	if r.failAll != nil {
		return nil, r.failAll
	}
	u, ok := r.users[nis]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	if r.failAll != nil {
		return nil, r.failAll
	}
	if u, err := r.GetByNIS(ctx, identifier); err == nil {
		return u, nil
	}
	for _, u := range r.users {
		if u.Username == identifier {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) List(context.Context) ([]domain.User, error) {
	if r.failAll != nil {
		return nil, r.failAll
	}
	var out []domain.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, nis string, update repository.ProfileUpdate) error {
	if r.failAll != nil {
		return r.failAll
	}
	u, ok := r.users[nis]
	if !ok {
		return repository.ErrNotFound
	}
	u.Username = update.Username
	u.Bio = update.Bio
	if u.Bio == "" {
		u.Bio = domain.DefaultBio
	}
	if update.Password != nil {
		u.Password = *update.Password
	}
	return nil
}

func (r *fakeUserRepo) UpdatePhotoURL(_ context.Context, nis string, photoURL *string) error {
	if r.failAll != nil {
		return r.failAll
	}
	u, ok := r.users[nis]
	if !ok {
		return repository.ErrNotFound
	}
	u.PhotoURL = photoURL
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func storedMember() domain.User {
	return domain.User{
		NIS: "1234", Username: "citra", FullName: "Citra Lestari",
		Role: domain.RoleUser, Position: "Bendahara", Bio: domain.DefaultBio,
		Password: "s3cret",
	}
}

func TestAuthenticateByNISAndUsername(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(storedMember()), quietLogger())

	byNIS, err := svc.Authenticate(context.Background(), "1234", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "citra", byNIS.Username)
	assert.Empty(t, byNIS.Password, "identity must be sanitized")

	byUsername, err := svc.Authenticate(context.Background(), "citra", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "1234", byUsername.NIS)
}

func TestAuthenticateWrongPasswordIsGeneric(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(storedMember()), quietLogger())

	_, err := svc.Authenticate(context.Background(), "1234", "S3CRET")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "comparison is case-sensitive")

	_, err = svc.Authenticate(context.Background(), "", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateFallsBackToDemoUsersOnMiss(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), quietLogger())

	user, err := svc.Authenticate(context.Background(), "0002", "password123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, "siswa1", user.Username)

	admin, err := svc.Authenticate(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
}

func TestAuthenticateFallsBackOnRepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.failAll = errors.New("connection refused")
	svc := NewUserService(repo, quietLogger())

	user, err := svc.Authenticate(context.Background(), "0001", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "0001", user.NIS)

	_, err = svc.Authenticate(context.Background(), "0001", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateDatabaseUserWinsOverDemo(t *testing.T) {
	member := storedMember()
	member.NIS = "0002"
	member.Username = "siswa1"
	member.Password = "different"
	svc := NewUserService(newFakeUserRepo(member), quietLogger())

	// The demo credential no longer works once a real row shadows it.
	_, err := svc.Authenticate(context.Background(), "0002", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := svc.Authenticate(context.Background(), "0002", "different")
	require.NoError(t, err)
	assert.Equal(t, "siswa1", user.Username)
}

func TestUpdateProfileValidation(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(storedMember()), quietLogger())
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, "1234", "  ", "", "", "")
	assert.EqualError(t, err, "username is required")

	longBio := make([]byte, domain.MaxBioLength+1)
	for i := range longBio {
		longBio[i] = 'a'
	}
	_, err = svc.UpdateProfile(ctx, "1234", "citra", string(longBio), "", "")
	assert.ErrorContains(t, err, "bio must be at most")

	_, err = svc.UpdateProfile(ctx, "1234", "citra", "", "baru", "beda")
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestUpdateProfileAppliesChanges(t *testing.T) {
	repo := newFakeUserRepo(storedMember())
	svc := NewUserService(repo, quietLogger())

	user, err := svc.UpdateProfile(context.Background(), "1234", "citra2", "hello", "baru", "baru")
	require.NoError(t, err)
	assert.Equal(t, "citra2", user.Username)
	assert.Equal(t, "hello", user.Bio)
	assert.Empty(t, user.Password)
	assert.Equal(t, "baru", repo.users["1234"].Password)
}

func TestUpdateProfileEmptyBioDefaults(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(storedMember()), quietLogger())

	user, err := svc.UpdateProfile(context.Background(), "1234", "citra", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultBio, user.Bio)
}

func TestSetPhotoURL(t *testing.T) {
	repo := newFakeUserRepo(storedMember())
	svc := NewUserService(repo, quietLogger())
	ctx := context.Background()

	url := "https://cdn.example.com/profile-photos/1234-1.png"
	user, err := svc.SetPhotoURL(ctx, "1234", &url)
	require.NoError(t, err)
	require.NotNil(t, user.PhotoURL)
	assert.Equal(t, url, *user.PhotoURL)

	user, err = svc.SetPhotoURL(ctx, "1234", nil)
	require.NoError(t, err)
	assert.Nil(t, user.PhotoURL)
}

func TestListMembersSanitized(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(storedMember()), quietLogger())

	members, err := svc.ListMembers(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Empty(t, members[0].Password)
}
