package domain

import "time"

// NotificationType distinguishes immediate sends from deferred ones.
type NotificationType string

const (
	NotificationPush      NotificationType = "push"
	NotificationScheduled NotificationType = "scheduled"
)

// NotificationStatus is a closed set of delivery states. Valid transitions:
// pending -> processing -> {sent, failed}. Immediate sends are written
// directly in a terminal state; no_token is terminal on the absent-device
// branch and never transitions.
type NotificationStatus string

const (
	StatusPending        NotificationStatus = "pending"
	StatusProcessing     NotificationStatus = "processing"
	StatusSent           NotificationStatus = "sent"
	StatusPartialSuccess NotificationStatus = "partial_success"
	StatusFailed         NotificationStatus = "failed"
	StatusNoToken        NotificationStatus = "no_token"
)

// Terminal reports whether s admits no further transitions.
func (s NotificationStatus) Terminal() bool {
	switch s {
	case StatusSent, StatusPartialSuccess, StatusFailed, StatusNoToken:
		return true
	}
	return false
}

// Notification is the durable log entry for one delivery attempt. Title, body
// and data are immutable after creation; only status, sent_at and read_at
// change.
type Notification struct {
	NotificationID string             `json:"id" dynamodbav:"notification_id"`
	UserID         string             `json:"user_id" dynamodbav:"user_id"`
	Type           NotificationType   `json:"type" dynamodbav:"type"`
	Title          string             `json:"title" dynamodbav:"title"`
	Body           string             `json:"body" dynamodbav:"body"`
	Data           map[string]string  `json:"data,omitempty" dynamodbav:"data,omitempty"`
	Status         NotificationStatus `json:"status" dynamodbav:"status"`
	ScheduledAt    *time.Time         `json:"scheduled_at,omitempty" dynamodbav:"scheduled_at,omitempty"`
	SentAt         *time.Time         `json:"sent_at,omitempty" dynamodbav:"sent_at,omitempty"`
	ReadAt         *time.Time         `json:"read_at,omitempty" dynamodbav:"read_at,omitempty"`
	CreatedAt      time.Time          `json:"created" dynamodbav:"created_at"`
}

// Stats is the aggregate read over the notification log and device registry.
type Stats struct {
	TotalNotifications  int64   `json:"total_notifications"`
	SentNotifications   int64   `json:"sent_notifications"`
	FailedNotifications int64   `json:"failed_notifications"`
	SuccessRate         float64 `json:"success_rate"`
	ActiveTokens        int64   `json:"active_tokens"`
	TemplatesCount      int64   `json:"templates_count"`
}
