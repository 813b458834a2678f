package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-push-gateway/internal/domain"
	"github.com/go-push-gateway/internal/pkg/id"
)

// Service persists deferred notifications and sweeps for due ones on a timer.
type Service interface {
	// Schedule stores a pending notification for later delivery. Past
	// timestamps are accepted; the row is simply picked up on the next sweep.
	Schedule(ctx context.Context, userID, title, body string, at time.Time, data map[string]string) (string, error)
	// ProcessDue claims and delivers every due pending row. One row's failure
	// never stops the rest of the sweep.
	ProcessDue(ctx context.Context)
	// Run sweeps every interval until ctx is cancelled.
	Run(ctx context.Context, interval time.Duration)
}

type scheduleStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	ListDue(ctx context.Context, now time.Time) ([]domain.Notification, error)
	ClaimPending(ctx context.Context, notificationID string) error
	MarkResult(ctx context.Context, notificationID string, status domain.NotificationStatus, sentAt time.Time) error
}

type deliverer interface {
	Deliver(ctx context.Context, userID string, msg domain.PushMessage) (domain.NotificationStatus, bool)
}

type service struct {
	repo       scheduleStore
	dispatcher deliverer
	logger     *slog.Logger
}

func NewService(repo scheduleStore, dispatcher deliverer, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{repo: repo, dispatcher: dispatcher, logger: logger}
}

func (s *service) Schedule(ctx context.Context, userID, title, body string, at time.Time, data map[string]string) (string, error) {
	if userID == "" || title == "" {
		return "", fmt.Errorf("user id and title are required: %w", domain.ErrBadRequest)
	}
	now := time.Now().UTC()
	scheduledAt := at.UTC()
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         userID,
		Type:           domain.NotificationScheduled,
		Title:          title,
		Body:           body,
		Data:           data,
		Status:         domain.StatusPending,
		ScheduledAt:    &scheduledAt,
		CreatedAt:      now,
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return "", err
	}
	return n.NotificationID, nil
}

func (s *service) ProcessDue(ctx context.Context) {
	due, err := s.repo.ListDue(ctx, time.Now())
	if err != nil {
		s.logger.Error("list due notifications", "err", err)
		return
	}
	for _, n := range due {
		s.processOne(ctx, n)
	}
}

// processOne claims a single row and drives it to a terminal status. The
// conditional claim is what keeps two overlapping sweeps from double-sending.
func (s *service) processOne(ctx context.Context, n domain.Notification) {
	if err := s.repo.ClaimPending(ctx, n.NotificationID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Another sweep got there first.
			return
		}
		s.logger.Error("claim notification", "notification_id", n.NotificationID, "err", err)
		return
	}

	status, ok := s.dispatcher.Deliver(ctx, n.UserID, domain.PushMessage{
		Title: n.Title,
		Body:  n.Body,
		Data:  n.Data,
	})
	if err := s.repo.MarkResult(ctx, n.NotificationID, status, time.Now()); err != nil {
		s.logger.Error("mark notification result", "notification_id", n.NotificationID, "status", status, "err", err)
		return
	}
	s.logger.Info("processed scheduled notification",
		"notification_id", n.NotificationID, "user_id", n.UserID, "status", status, "delivered", ok)
}

func (s *service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.ProcessDue(ctx)
		}
	}
}
