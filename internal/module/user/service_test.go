package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	byID    map[uuid.UUID]*User
	byEmail map[string]*User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byID:    make(map[uuid.UUID]*User),
		byEmail: make(map[string]*User),
	}
}

func (r *fakeRepo) Create(_ context.Context, u *User) error {
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (r *fakeRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (r *fakeRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.byID[id]
	return ok, nil
}

func newTestService() *Service {
	jwt := NewJWTManager(&JWTConfig{
		Secret:            "test-secret-key-that-is-long-enough",
		AccessTokenExpiry: time.Hour,
		Issuer:            "test",
	})
	return NewService(newFakeRepo(), jwt, zap.NewNop())
}

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account and issues token", func(t *testing.T) {
		svc := newTestService()

		result, err := svc.Signup(ctx, "alice@example.com", "Alice", "password123")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, result.User.ID)
		assert.Equal(t, "alice@example.com", result.User.Email)
		assert.NotEmpty(t, result.AccessToken)

		// The stored hash never equals the raw password.
		assert.NotEqual(t, "password123", result.User.PasswordHash)
	})

	t.Run("normalizes email casing", func(t *testing.T) {
		svc := newTestService()

		result, err := svc.Signup(ctx, "  Bob@Example.COM ", "Bob", "password123")
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", result.User.Email)

		_, err = svc.Login(ctx, "BOB@example.com", "password123")
		assert.NoError(t, err)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		svc := newTestService()

		_, err := svc.Signup(ctx, "alice@example.com", "Alice", "password123")
		require.NoError(t, err)

		_, err = svc.Signup(ctx, "alice@example.com", "Alice Again", "password456")
		assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	})

	t.Run("rejects short password", func(t *testing.T) {
		svc := newTestService()

		_, err := svc.Signup(ctx, "alice@example.com", "Alice", "short")
		assert.ErrorIs(t, err, ErrPasswordTooShort)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials issue a token", func(t *testing.T) {
		svc := newTestService()
		signup, err := svc.Signup(ctx, "alice@example.com", "Alice", "password123")
		require.NoError(t, err)

		login, err := svc.Login(ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, signup.User.ID, login.User.ID)
		assert.NotEmpty(t, login.AccessToken)
	})

	t.Run("wrong password and unknown email fail identically", func(t *testing.T) {
		svc := newTestService()
		_, err := svc.Signup(ctx, "alice@example.com", "Alice", "password123")
		require.NoError(t, err)

		_, wrongPass := svc.Login(ctx, "alice@example.com", "wrong-password")
		_, unknown := svc.Login(ctx, "nobody@example.com", "password123")

		assert.ErrorIs(t, wrongPass, ErrInvalidCredentials)
		assert.ErrorIs(t, unknown, ErrInvalidCredentials)
	})
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	result, err := svc.Signup(ctx, "alice@example.com", "Alice", "password123")
	require.NoError(t, err)

	exists, err := svc.Exists(ctx, result.User.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.Exists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}
