package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"messagely/internal/domain"
)

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (f *fakeUserRepo) Init(context.Context) error { return nil }

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if _, exists := f.users[user.Username]; exists {
		return domain.ErrUserExists
	}
	clone := *user
	f.users[user.Username] = &clone
	return nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	user, ok := f.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	var users []domain.User
	for _, u := range f.users {
		users = append(users, *u)
	}
	return users, nil
}

func (f *fakeUserRepo) TouchLogin(_ context.Context, username string) (time.Time, error) {
	user, ok := f.users[username]
	if !ok {
		return time.Time{}, domain.ErrUserNotFound
	}
	now := time.Now().UTC()
	user.LastLoginAt = &now
	return now, nil
}

func TestRegisterHashesPassword(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	user, err := svc.Register(context.Background(), RegisterParams{
		Username:  "alice",
		Password:  "s3cret-pw",
		FirstName: "Alice",
		LastName:  "Anders",
		Phone:     "+15550001111",
	})
	require.NoError(t, err)

	assert.Empty(t, user.PasswordHash, "returned profile must not carry the hash")
	assert.False(t, user.JoinAt.IsZero())

	stored := repo.users["alice"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "s3cret-pw", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret-pw")))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := NewUserService(repo)
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterParams{Username: "alice", Password: "pw-one", FirstName: "Alice"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterParams{Username: "alice", Password: "pw-two", FirstName: "Imposter"})
	assert.ErrorIs(t, err, domain.ErrUserExists)

	// existing record is untouched
	stored := repo.users["alice"]
	assert.Equal(t, first.FirstName, stored.FirstName)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw-one")))
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	svc := NewUserService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Username: "", Password: "pw"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Register(ctx, RegisterParams{Username: "alice", Password: ""})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := NewUserService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Username: "alice", Password: "correct-horse"})
	require.NoError(t, err)

	ok, err := svc.Authenticate(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Authenticate(ctx, "alice", "battery-staple")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Authenticate(ctx, "nobody", "whatever")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestGetStripsHash(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := NewUserService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Username: "alice", Password: "pw", Phone: "+15550001111"})
	require.NoError(t, err)

	user, err := svc.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, user.PasswordHash)
	assert.Equal(t, "+15550001111", user.Phone)

	_, err = svc.Get(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestTouchLogin(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := NewUserService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	ts, err := svc.TouchLogin(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ts.IsZero())

	_, err = svc.TouchLogin(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
