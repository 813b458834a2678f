package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-push-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockTokenStore struct{ mock.Mock }

func (m *mockTokenStore) Put(ctx context.Context, t *domain.DeviceToken) error {
	return m.Called(ctx, t).Error(0)
}
func (m *mockTokenStore) Get(ctx context.Context, token string) (*domain.DeviceToken, error) {
	args := m.Called(ctx, token)
	if t, _ := args.Get(0).(*domain.DeviceToken); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTokenStore) ListActiveByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	args := m.Called(ctx, userID)
	if rows, _ := args.Get(0).([]domain.DeviceToken); rows != nil {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTokenStore) Disable(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}
func (m *mockTokenStore) DisableBatch(ctx context.Context, tokens []string) error {
	return m.Called(ctx, tokens).Error(0)
}

// --- Register tests ---

func TestRegister_NewToken(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("Get", mock.Anything, "tok-1").Return(nil, domain.ErrNotFound)
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.DeviceToken")).Return(nil)

	err := NewService(repo).Register(context.Background(), "user-1", "tok-1", domain.PlatformIOS, map[string]string{"model": "iPhone15"})

	require.NoError(t, err)
	row := repo.Calls[1].Arguments.Get(1).(*domain.DeviceToken)
	assert.Equal(t, "user-1", row.UserID)
	assert.Equal(t, "tok-1", row.Token)
	assert.Equal(t, domain.PlatformIOS, row.Platform)
	assert.True(t, row.Enable)
	assert.NotEmpty(t, row.TokenID)
}

func TestRegister_ExistingToken_ReassignsOwner(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := &domain.DeviceToken{
		TokenID:   "tid-1",
		UserID:    "old-user",
		Token:     "tok-1",
		Platform:  domain.PlatformAndroid,
		Enable:    false,
		CreatedAt: created,
	}
	repo := &mockTokenStore{}
	repo.On("Get", mock.Anything, "tok-1").Return(existing, nil)
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.DeviceToken")).Return(nil)

	err := NewService(repo).Register(context.Background(), "new-user", "tok-1", domain.PlatformIOS, nil)

	require.NoError(t, err)
	row := repo.Calls[1].Arguments.Get(1).(*domain.DeviceToken)
	// Identity and creation time survive; everything else is refreshed.
	assert.Equal(t, "tid-1", row.TokenID)
	assert.Equal(t, created, row.CreatedAt)
	assert.Equal(t, "new-user", row.UserID)
	assert.Equal(t, domain.PlatformIOS, row.Platform)
	assert.True(t, row.Enable)
}

func TestRegister_InvalidPlatform(t *testing.T) {
	repo := &mockTokenStore{}

	err := NewService(repo).Register(context.Background(), "user-1", "tok-1", "windows", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_MissingFields(t *testing.T) {
	repo := &mockTokenStore{}

	err := NewService(repo).Register(context.Background(), "", "tok-1", domain.PlatformWeb, nil)

	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

// --- Unregister tests ---

func TestUnregister_KnownToken(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("Disable", mock.Anything, "tok-1").Return(nil)

	existed, err := NewService(repo).Unregister(context.Background(), "tok-1")

	require.NoError(t, err)
	assert.True(t, existed)
}

func TestUnregister_UnknownToken_NotAnError(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("Disable", mock.Anything, "tok-404").Return(domain.ErrNotFound)

	existed, err := NewService(repo).Unregister(context.Background(), "tok-404")

	require.NoError(t, err)
	assert.False(t, existed)
}

// --- ActiveTokens tests ---

func TestActiveTokens_ReturnsTokenStrings(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("ListActiveByUser", mock.Anything, "user-1").Return([]domain.DeviceToken{
		{Token: "tok-1"}, {Token: "tok-2"},
	}, nil)

	tokens, err := NewService(repo).ActiveTokens(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"tok-1", "tok-2"}, tokens)
}

func TestActiveTokens_Empty_IsValid(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("ListActiveByUser", mock.Anything, "user-1").Return([]domain.DeviceToken{}, nil)

	tokens, err := NewService(repo).ActiveTokens(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Empty(t, tokens)
}

// --- Deactivate tests ---

func TestDeactivate_BatchesThrough(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("DisableBatch", mock.Anything, []string{"a", "b"}).Return(nil)

	require.NoError(t, NewService(repo).Deactivate(context.Background(), []string{"a", "b"}))
	repo.AssertCalled(t, "DisableBatch", mock.Anything, []string{"a", "b"})
}

func TestDeactivate_EmptySet_NoWrite(t *testing.T) {
	repo := &mockTokenStore{}

	require.NoError(t, NewService(repo).Deactivate(context.Background(), nil))
	repo.AssertNotCalled(t, "DisableBatch", mock.Anything, mock.Anything)
}
