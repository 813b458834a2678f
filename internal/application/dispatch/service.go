package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-push-gateway/internal/domain"
	"github.com/go-push-gateway/internal/infrastructure/smtp"
	snsinfra "github.com/go-push-gateway/internal/infrastructure/sns"
	"github.com/go-push-gateway/internal/pkg/id"
)

// PushProvider is the external push backend. Implemented by the Expo adapter in
// production and by a fake in tests.
type PushProvider interface {
	Send(ctx context.Context, tokens []string, msg domain.PushMessage) ([]domain.PushResult, error)
}

// BulkResult accumulates per-user outcomes of a fan-out send.
type BulkResult struct {
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
}

// Service is the delivery façade: immediate single-user, template-based and
// bulk sends. Nothing escapes this boundary as an error; callers see booleans
// and counts, and every push attempt leaves a log row.
type Service interface {
	Send(ctx context.Context, userID string, msg domain.PushMessage) bool
	SendBulk(ctx context.Context, userIDs []string, title, body string, data map[string]string) BulkResult
	SendTemplate(ctx context.Context, userID, templateName string, vars map[string]string) bool
	SendEmailTemplate(ctx context.Context, to, templateName string, vars map[string]string) bool
	SendSMSTemplate(ctx context.Context, phone, templateName string, vars map[string]string) bool

	// Deliver runs the token-fetch/multicast/classify/deactivate pipeline
	// without writing a log row. The scheduler uses it to finish rows it has
	// already claimed.
	Deliver(ctx context.Context, userID string, msg domain.PushMessage) (domain.NotificationStatus, bool)
}

type registry interface {
	ActiveTokens(ctx context.Context, userID string) ([]string, error)
	Deactivate(ctx context.Context, tokens []string) error
}

type renderer interface {
	Render(ctx context.Context, name string, vars map[string]string) (*domain.RenderedMessage, error)
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
}

type service struct {
	registry registry
	renderer renderer
	log      notificationStore
	provider PushProvider // nil in disabled mode
	mailer   smtp.Mailer
	sms      snsinfra.SMSSender
	logger   *slog.Logger
}

// Deps bundles the dispatcher's collaborators. Provider, Mailer and SMSSender
// may be nil; the corresponding channel then degrades to statused failures
// instead of crashing.
type Deps struct {
	Registry  registry
	Renderer  renderer
	Log       notificationStore
	Provider  PushProvider
	Mailer    smtp.Mailer
	SMSSender snsinfra.SMSSender
	Logger    *slog.Logger
}

func NewService(deps Deps) Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		registry: deps.Registry,
		renderer: deps.Renderer,
		log:      deps.Log,
		provider: deps.Provider,
		mailer:   deps.Mailer,
		sms:      deps.SMSSender,
		logger:   logger,
	}
}

func (s *service) Send(ctx context.Context, userID string, msg domain.PushMessage) bool {
	status, ok := s.Deliver(ctx, userID, msg)
	s.record(ctx, userID, domain.NotificationPush, msg, status)
	return ok
}

func (s *service) Deliver(ctx context.Context, userID string, msg domain.PushMessage) (domain.NotificationStatus, bool) {
	tokens, err := s.registry.ActiveTokens(ctx, userID)
	if err != nil {
		s.logger.Error("fetch active tokens", "user_id", userID, "err", err)
		return domain.StatusFailed, false
	}
	if len(tokens) == 0 {
		// Absence of a registered device is an expected terminal state.
		return domain.StatusNoToken, false
	}
	if s.provider == nil {
		s.logger.Warn("push provider disabled, dropping send", "user_id", userID)
		return domain.StatusFailed, false
	}

	results, err := s.provider.Send(ctx, tokens, msg)
	if err != nil {
		s.logger.Error("provider send", "user_id", userID, "tokens", len(tokens), "err", err)
		return domain.StatusFailed, false
	}

	var successCount, failureCount int
	var invalid []string
	for _, r := range results {
		switch {
		case r.OK:
			successCount++
		case r.Permanent:
			failureCount++
			invalid = append(invalid, r.Token)
		default:
			// Transient; the token stays active for future sends.
			failureCount++
		}
	}

	// One batched write for the whole invalidation set.
	if len(invalid) > 0 {
		if err := s.registry.Deactivate(ctx, invalid); err != nil {
			s.logger.Error("deactivate invalid tokens", "count", len(invalid), "err", err)
		}
	}

	switch {
	case successCount == 0:
		return domain.StatusFailed, false
	case failureCount == 0:
		return domain.StatusSent, true
	default:
		return domain.StatusPartialSuccess, true
	}
}

func (s *service) SendBulk(ctx context.Context, userIDs []string, title, body string, data map[string]string) BulkResult {
	var res BulkResult
	msg := domain.PushMessage{Title: title, Body: body, Data: data}
	for _, userID := range userIDs {
		if s.Send(ctx, userID, msg) {
			res.SuccessCount++
		} else {
			res.FailureCount++
		}
	}
	return res
}

func (s *service) SendTemplate(ctx context.Context, userID, templateName string, vars map[string]string) bool {
	rendered, err := s.renderer.Render(ctx, templateName, vars)
	if err != nil {
		// Recoverable: no provider contact, no log row.
		s.logger.Warn("render template", "template", templateName, "err", err)
		return false
	}
	if rendered.Type != domain.TemplatePush {
		s.logger.Warn("template is not a push template", "template", templateName, "type", rendered.Type)
		return false
	}

	data := map[string]string{"template": templateName}
	for k, v := range vars {
		data[k] = v
	}
	return s.Send(ctx, userID, domain.PushMessage{
		Title: rendered.Title,
		Body:  rendered.Body,
		Data:  data,
	})
}

func (s *service) SendEmailTemplate(ctx context.Context, to, templateName string, vars map[string]string) bool {
	rendered, ok := s.renderFor(ctx, templateName, domain.TemplateEmail, vars)
	if !ok {
		return false
	}
	if s.mailer == nil {
		s.logger.Warn("mailer disabled, dropping email send", "template", templateName)
		return false
	}
	if err := s.mailer.SendEmail(to, rendered.Title, rendered.Body); err != nil {
		s.logger.Error("send email", "template", templateName, "err", err)
		return false
	}
	return true
}

func (s *service) SendSMSTemplate(ctx context.Context, phone, templateName string, vars map[string]string) bool {
	rendered, ok := s.renderFor(ctx, templateName, domain.TemplateSMS, vars)
	if !ok {
		return false
	}
	if s.sms == nil {
		s.logger.Warn("sms sender disabled, dropping sms send", "template", templateName)
		return false
	}
	if err := s.sms.SendSMS(ctx, phone, rendered.Body); err != nil {
		s.logger.Error("send sms", "template", templateName, "err", err)
		return false
	}
	return true
}

func (s *service) renderFor(ctx context.Context, templateName string, want domain.TemplateType, vars map[string]string) (*domain.RenderedMessage, bool) {
	rendered, err := s.renderer.Render(ctx, templateName, vars)
	if err != nil {
		s.logger.Warn("render template", "template", templateName, "err", err)
		return nil, false
	}
	if rendered.Type != want {
		s.logger.Warn("template channel mismatch", "template", templateName, "want", want, "got", rendered.Type)
		return nil, false
	}
	return rendered, true
}

// record writes the log row for an immediate send. Immediate rows are born in
// their terminal status, so creation and the single status mutation collapse
// into one write. Log failures are logged, never propagated.
func (s *service) record(ctx context.Context, userID string, typ domain.NotificationType, msg domain.PushMessage, status domain.NotificationStatus) {
	now := time.Now().UTC()
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         userID,
		Type:           typ,
		Title:          msg.Title,
		Body:           msg.Body,
		Data:           msg.Data,
		Status:         status,
		CreatedAt:      now,
	}
	if status != domain.StatusNoToken {
		n.SentAt = &now
	}
	if err := s.log.Put(ctx, n); err != nil {
		s.logger.Error("record notification", "user_id", userID, "status", status, "err", err)
	}
}
