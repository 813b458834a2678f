package history

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-push-gateway/internal/domain"
)

// Page is one newest-first slice of a user's notification log.
type Page struct {
	Notifications []domain.Notification `json:"notifications"`
	Pagination    Pagination            `json:"pagination"`
}

// Pagination carries the metadata clients need to walk the log.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// Service is the read/annotate side of the notification log.
type Service interface {
	History(ctx context.Context, userID string, page, limit int) (*Page, error)
	// MarkRead sets readAt once for the owning user. Idempotent; reports
	// whether the row exists.
	MarkRead(ctx context.Context, notificationID, userID string) (bool, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

type notificationStore interface {
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID string, max int32) ([]domain.Notification, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, notificationID string, readAt time.Time) error
	CountAll(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status domain.NotificationStatus) (int64, error)
}

type tokenStore interface {
	CountActive(ctx context.Context) (int64, error)
}

type templateStore interface {
	Count(ctx context.Context) (int64, error)
}

type service struct {
	notifications notificationStore
	tokens        tokenStore
	templates     templateStore
}

func NewService(notifications notificationStore, tokens tokenStore, templates templateStore) Service {
	return &service{notifications: notifications, tokens: tokens, templates: templates}
}

func (s *service) History(ctx context.Context, userID string, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	total, err := s.notifications.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	pagination := Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
	}

	// Pages that far past the end of any real log would overflow the read
	// bound; they are empty by definition.
	fetch := int64(page) * int64(limit)
	if fetch > math.MaxInt32 {
		return &Page{Notifications: []domain.Notification{}, Pagination: pagination}, nil
	}

	// The GSI walks newest-first, so a page is the tail of the first
	// page*limit rows.
	rows, err := s.notifications.ListByUser(ctx, userID, int32(fetch))
	if err != nil {
		return nil, err
	}
	offset := (page - 1) * limit
	if offset > len(rows) {
		offset = len(rows)
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}

	return &Page{
		Notifications: rows[offset:end],
		Pagination:    pagination,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, notificationID, userID string) (bool, error) {
	n, err := s.notifications.Get(ctx, notificationID)
	if err != nil {
		return false, err
	}
	if n.UserID != userID {
		return false, fmt.Errorf("notification belongs to another user: %w", domain.ErrForbidden)
	}
	if n.ReadAt != nil {
		// Already read; repeated marking is a no-op success.
		return true, nil
	}
	if err := s.notifications.MarkRead(ctx, notificationID, time.Now()); err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) Stats(ctx context.Context) (*domain.Stats, error) {
	total, err := s.notifications.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	sent, err := s.notifications.CountByStatus(ctx, domain.StatusSent)
	if err != nil {
		return nil, err
	}
	failed, err := s.notifications.CountByStatus(ctx, domain.StatusFailed)
	if err != nil {
		return nil, err
	}
	activeTokens, err := s.tokens.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	templates, err := s.templates.Count(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{
		TotalNotifications:  total,
		SentNotifications:   sent,
		FailedNotifications: failed,
		ActiveTokens:        activeTokens,
		TemplatesCount:      templates,
	}
	if total > 0 {
		stats.SuccessRate = float64(sent) / float64(total)
	}
	return stats, nil
}
