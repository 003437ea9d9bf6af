package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messagely/internal/domain"
	"messagely/internal/repository"
)

func openTestRepos(t *testing.T) (repository.UserRepository, repository.MessageRepository) {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := NewUserRepository(db)
	messages := NewMessageRepository(db)

	ctx := context.Background()
	require.NoError(t, users.Init(ctx))
	require.NoError(t, messages.Init(ctx))
	return users, messages
}

func seedUser(t *testing.T, users repository.UserRepository, username, first, last string) {
	t.Helper()
	err := users.Create(context.Background(), &domain.User{
		Username:     username,
		PasswordHash: "$2a$10$fakefakefakefakefakefake",
		FirstName:    first,
		LastName:     last,
		Phone:        "+15550001111",
	})
	require.NoError(t, err)
}

func TestUserRepositoryCreateAndGet(t *testing.T) {
	t.Parallel()

	users, _ := openTestRepos(t)
	ctx := context.Background()

	seedUser(t, users, "alice", "Alice", "Anders")

	user, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.FirstName)
	assert.False(t, user.JoinAt.IsZero())
	assert.Nil(t, user.LastLoginAt)

	_, err = users.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepositoryDuplicateUsername(t *testing.T) {
	t.Parallel()

	users, _ := openTestRepos(t)
	ctx := context.Background()

	seedUser(t, users, "alice", "Alice", "Anders")

	err := users.Create(ctx, &domain.User{
		Username:     "alice",
		PasswordHash: "other-hash",
		FirstName:    "Imposter",
		LastName:     "Smith",
		Phone:        "+15559998888",
	})
	assert.ErrorIs(t, err, domain.ErrUserExists)

	// original row untouched
	user, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.FirstName)
}

func TestUserRepositoryTouchLogin(t *testing.T) {
	t.Parallel()

	users, _ := openTestRepos(t)
	ctx := context.Background()

	seedUser(t, users, "alice", "Alice", "Anders")

	ts, err := users.TouchLogin(ctx, "alice")
	require.NoError(t, err)

	user, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user.LastLoginAt)
	assert.WithinDuration(t, ts, *user.LastLoginAt, time.Second)

	_, err = users.TouchLogin(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepositoryList(t *testing.T) {
	t.Parallel()

	users, _ := openTestRepos(t)

	seedUser(t, users, "bob", "Bob", "Baker")
	seedUser(t, users, "alice", "Alice", "Anders")

	list, err := users.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].Username)
	assert.Equal(t, "bob", list[1].Username)
}

func TestMessageRepositoryReferentialCheck(t *testing.T) {
	t.Parallel()

	users, messages := openTestRepos(t)
	ctx := context.Background()

	seedUser(t, users, "alice", "Alice", "Anders")

	_, err := messages.Create(ctx, &domain.Message{
		FromUsername: "alice",
		ToUsername:   "nobody",
		Body:         "hello?",
	})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestMessageRepositoryGetWithParties(t *testing.T) {
	t.Parallel()

	users, messages := openTestRepos(t)
	ctx := context.Background()

	seedUser(t, users, "alice", "Alice", "Anders")
	seedUser(t, users, "bob", "Bob", "Baker")

	id, err := messages.Create(ctx, &domain.Message{
		FromUsername: "alice",
		ToUsername:   "bob",
		Body:         "hi",
	})
	require.NoError(t, err)

	msg, err := messages.GetWithParties(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Body)
	assert.Equal(t, "Alice", msg.FromUser.FirstName)
	assert.Equal(t, "Bob", msg.ToUser.FirstName)
	assert.Nil(t, msg.ReadAt)
	assert.False(t, msg.SentAt.IsZero())

	_, err = messages.GetWithParties(ctx, id+1)
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
}

func TestMessageRepositoryMarkReadOnce(t *testing.T) {
	t.Parallel()

	users, messages := openTestRepos(t)
	ctx := context.Background()

	seedUser(t, users, "alice", "Alice", "Anders")
	seedUser(t, users, "bob", "Bob", "Baker")

	id, err := messages.Create(ctx, &domain.Message{FromUsername: "alice", ToUsername: "bob", Body: "hi"})
	require.NoError(t, err)

	first, err := messages.MarkRead(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, first.ReadAt)
	assert.False(t, first.ReadAt.Before(first.SentAt))

	second, err := messages.MarkRead(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, second.ReadAt)
	assert.True(t, second.ReadAt.Equal(*first.ReadAt), "read_at must not move")

	_, err = messages.MarkRead(ctx, id+1)
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
}

func TestMessageRepositoryListSentAndReceived(t *testing.T) {
	t.Parallel()

	users, messages := openTestRepos(t)
	ctx := context.Background()

	seedUser(t, users, "alice", "Alice", "Anders")
	seedUser(t, users, "bob", "Bob", "Baker")
	seedUser(t, users, "carol", "Carol", "Clark")

	_, err := messages.Create(ctx, &domain.Message{FromUsername: "alice", ToUsername: "bob", Body: "one"})
	require.NoError(t, err)
	_, err = messages.Create(ctx, &domain.Message{FromUsername: "alice", ToUsername: "carol", Body: "two"})
	require.NoError(t, err)
	_, err = messages.Create(ctx, &domain.Message{FromUsername: "bob", ToUsername: "alice", Body: "three"})
	require.NoError(t, err)

	sent, err := messages.ListSent(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, sent, 2)
	assert.Equal(t, "one", sent[0].Body)
	assert.Equal(t, "Bob", sent[0].ToUser.FirstName)
	assert.Equal(t, "Carol", sent[1].ToUser.FirstName)

	received, err := messages.ListReceived(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "three", received[0].Body)
	assert.Equal(t, "Bob", received[0].FromUser.FirstName)

	none, err := messages.ListReceived(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, none, 1)
	assert.Equal(t, "two", none[0].Body)
}
