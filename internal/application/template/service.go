package template

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-push-gateway/internal/domain"
	"github.com/go-push-gateway/internal/pkg/id"
	"github.com/go-push-gateway/internal/pkg/validate"
)

// placeholderRegex matches moustache-style {{key}} placeholders.
var placeholderRegex = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// CreateRequest is the admin payload for a new template.
type CreateRequest struct {
	Name      string              `json:"name" validate:"required"`
	Type      domain.TemplateType `json:"type" validate:"required,oneof=push email sms"`
	Subject   string              `json:"subject" validate:"required"`
	Body      string              `json:"body" validate:"required"`
	Variables []string            `json:"variables"`
}

// UpdateRequest carries optional field changes; nil means leave unchanged.
type UpdateRequest struct {
	Subject   *string   `json:"subject"`
	Body      *string   `json:"body"`
	Variables *[]string `json:"variables"`
	Enable    *bool     `json:"enable"`
}

// Service resolves and renders named templates and exposes the admin CRUD
// surface that writes them.
type Service interface {
	// Render looks up an active template by name and substitutes vars into its
	// subject and body. Unmatched {{placeholders}} are left verbatim.
	Render(ctx context.Context, name string, vars map[string]string) (*domain.RenderedMessage, error)

	Create(ctx context.Context, req CreateRequest) (*domain.Template, error)
	Update(ctx context.Context, templateID string, req UpdateRequest) (*domain.Template, error)
	Delete(ctx context.Context, templateID string) error
	Get(ctx context.Context, templateID string) (*domain.Template, error)
	List(ctx context.Context) ([]domain.Template, error)
}

type templateStore interface {
	Put(ctx context.Context, t *domain.Template) error
	Get(ctx context.Context, templateID string) (*domain.Template, error)
	GetByName(ctx context.Context, name string) (*domain.Template, error)
	List(ctx context.Context) ([]domain.Template, error)
	Update(ctx context.Context, templateID string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, templateID string) error
}

type service struct {
	repo templateStore
}

func NewService(repo templateStore) Service {
	return &service{repo: repo}
}

func (s *service) Render(ctx context.Context, name string, vars map[string]string) (*domain.RenderedMessage, error) {
	t, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if !t.Enable {
		return nil, fmt.Errorf("template %q is disabled: %w", name, domain.ErrNotFound)
	}
	return &domain.RenderedMessage{
		Title: substitute(t.Subject, vars),
		Body:  substitute(t.Body, vars),
		Type:  t.Type,
	}, nil
}

// substitute replaces every {{key}} occurrence with vars[key]. Keys absent from
// vars stay verbatim in the output; that is contract, not an error.
func substitute(text string, vars map[string]string) string {
	if text == "" || len(vars) == 0 {
		return text
	}
	return placeholderRegex.ReplaceAllStringFunc(text, func(match string) string {
		submatch := placeholderRegex.FindStringSubmatch(match)
		if len(submatch) != 2 {
			return match
		}
		if value, ok := vars[submatch[1]]; ok {
			return value
		}
		return match
	})
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*domain.Template, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.repo.GetByName(ctx, req.Name); err == nil {
		return nil, fmt.Errorf("template %q already exists: %w", req.Name, domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	t := &domain.Template{
		TemplateID: id.New(),
		Name:       req.Name,
		Type:       req.Type,
		Subject:    req.Subject,
		Body:       req.Body,
		Variables:  req.Variables,
		Enable:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Put(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) Update(ctx context.Context, templateID string, req UpdateRequest) (*domain.Template, error) {
	updates := map[string]interface{}{}
	if req.Subject != nil {
		updates["subject"] = *req.Subject
	}
	if req.Body != nil {
		updates["body"] = *req.Body
	}
	if req.Variables != nil {
		updates["variables"] = *req.Variables
	}
	if req.Enable != nil {
		updates["enable"] = *req.Enable
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, templateID)
	}
	if err := s.repo.Update(ctx, templateID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, templateID)
}

func (s *service) Delete(ctx context.Context, templateID string) error {
	return s.repo.HardDelete(ctx, templateID)
}

func (s *service) Get(ctx context.Context, templateID string) (*domain.Template, error) {
	return s.repo.Get(ctx, templateID)
}

func (s *service) List(ctx context.Context) ([]domain.Template, error) {
	return s.repo.List(ctx)
}
