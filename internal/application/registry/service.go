package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-push-gateway/internal/domain"
	"github.com/go-push-gateway/internal/pkg/id"
)

// Service owns the mapping from user to active device tokens.
type Service interface {
	// Register upserts a token. Re-registration reassigns the token to userID,
	// refreshes platform and device info and re-enables it.
	Register(ctx context.Context, userID, token string, platform domain.Platform, deviceInfo map[string]string) error
	// Unregister disables the token. Idempotent; reports whether the token was known.
	Unregister(ctx context.Context, token string) (bool, error)
	// ActiveTokens returns the user's enabled token strings. Empty is not an error.
	ActiveTokens(ctx context.Context, userID string) ([]string, error)
	List(ctx context.Context, userID string) ([]domain.DeviceToken, error)
	// Deactivate disables the whole set in one batched call. Used by the
	// delivery path after the provider reports permanent invalidity.
	Deactivate(ctx context.Context, tokens []string) error
}

type tokenStore interface {
	Put(ctx context.Context, t *domain.DeviceToken) error
	Get(ctx context.Context, token string) (*domain.DeviceToken, error)
	ListActiveByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error)
	Disable(ctx context.Context, token string) error
	DisableBatch(ctx context.Context, tokens []string) error
}

type service struct {
	repo tokenStore
}

func NewService(repo tokenStore) Service {
	return &service{repo: repo}
}

func (s *service) Register(ctx context.Context, userID, token string, platform domain.Platform, deviceInfo map[string]string) error {
	if userID == "" || token == "" {
		return fmt.Errorf("user id and token are required: %w", domain.ErrBadRequest)
	}
	if !domain.ValidPlatform(platform) {
		return fmt.Errorf("unknown platform %q: %w", platform, domain.ErrBadRequest)
	}

	now := time.Now().UTC()
	row := &domain.DeviceToken{
		TokenID:    id.New(),
		UserID:     userID,
		Token:      token,
		Platform:   platform,
		DeviceInfo: deviceInfo,
		Enable:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// The token string is the primary key, so at most one row per token can
	// exist. Keep the original identity and creation time on re-registration.
	existing, err := s.repo.Get(ctx, token)
	if err == nil {
		row.TokenID = existing.TokenID
		row.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	return s.repo.Put(ctx, row)
}

func (s *service) Unregister(ctx context.Context, token string) (bool, error) {
	err := s.repo.Disable(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) ActiveTokens(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(rows))
	for _, row := range rows {
		tokens = append(tokens, row.Token)
	}
	return tokens, nil
}

func (s *service) List(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	return s.repo.ListActiveByUser(ctx, userID)
}

func (s *service) Deactivate(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return s.repo.DisableBatch(ctx, tokens)
}
