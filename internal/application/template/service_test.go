package template

import (
	"context"
	"errors"
	"testing"

	"github.com/go-push-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockTemplateStore struct{ mock.Mock }

func (m *mockTemplateStore) Put(ctx context.Context, t *domain.Template) error {
	return m.Called(ctx, t).Error(0)
}
func (m *mockTemplateStore) Get(ctx context.Context, templateID string) (*domain.Template, error) {
	args := m.Called(ctx, templateID)
	if t, _ := args.Get(0).(*domain.Template); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTemplateStore) GetByName(ctx context.Context, name string) (*domain.Template, error) {
	args := m.Called(ctx, name)
	if t, _ := args.Get(0).(*domain.Template); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTemplateStore) List(ctx context.Context) ([]domain.Template, error) {
	args := m.Called(ctx)
	if rows, _ := args.Get(0).([]domain.Template); rows != nil {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTemplateStore) Update(ctx context.Context, templateID string, updates map[string]interface{}) error {
	return m.Called(ctx, templateID, updates).Error(0)
}
func (m *mockTemplateStore) HardDelete(ctx context.Context, templateID string) error {
	return m.Called(ctx, templateID).Error(0)
}

func activeTemplate(name, subject, body string) *domain.Template {
	return &domain.Template{
		TemplateID: "tpl-1",
		Name:       name,
		Type:       domain.TemplatePush,
		Subject:    subject,
		Body:       body,
		Enable:     true,
	}
}

// --- Render tests ---

func TestRender_SubstitutesVariables(t *testing.T) {
	repo := &mockTemplateStore{}
	repo.On("GetByName", mock.Anything, "welcome").
		Return(activeTemplate("welcome", "Olá {{name}}!", "Bem-vindo, {{ name }}. Pedido {{order_id}}."), nil)

	msg, err := NewService(repo).Render(context.Background(), "welcome", map[string]string{
		"name":     "Ana",
		"order_id": "42",
	})

	require.NoError(t, err)
	assert.Equal(t, "Olá Ana!", msg.Title)
	assert.Equal(t, "Bem-vindo, Ana. Pedido 42.", msg.Body)
	assert.Equal(t, domain.TemplatePush, msg.Type)
}

func TestRender_UnmatchedPlaceholderStaysVerbatim(t *testing.T) {
	repo := &mockTemplateStore{}
	repo.On("GetByName", mock.Anything, "welcome").
		Return(activeTemplate("welcome", "Hi {{name}}", "Code: {{missing}}"), nil)

	msg, err := NewService(repo).Render(context.Background(), "welcome", map[string]string{"name": "Ana"})

	require.NoError(t, err)
	assert.Equal(t, "Hi Ana", msg.Title)
	assert.Equal(t, "Code: {{missing}}", msg.Body)
}

func TestRender_TemplateNotFound(t *testing.T) {
	repo := &mockTemplateStore{}
	repo.On("GetByName", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	msg, err := NewService(repo).Render(context.Background(), "ghost", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Nil(t, msg)
}

func TestRender_DisabledTemplateBehavesAsMissing(t *testing.T) {
	disabled := activeTemplate("old-promo", "s", "b")
	disabled.Enable = false
	repo := &mockTemplateStore{}
	repo.On("GetByName", mock.Anything, "old-promo").Return(disabled, nil)

	_, err := NewService(repo).Render(context.Background(), "old-promo", nil)

	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSubstitute_EmptyVars(t *testing.T) {
	assert.Equal(t, "Hi {{name}}", substitute("Hi {{name}}", nil))
	assert.Equal(t, "", substitute("", map[string]string{"name": "Ana"}))
}

// --- CRUD tests ---

func TestCreate_EnforcesNameUniqueness(t *testing.T) {
	repo := &mockTemplateStore{}
	repo.On("GetByName", mock.Anything, "welcome").Return(activeTemplate("welcome", "s", "b"), nil)

	_, err := NewService(repo).Create(context.Background(), CreateRequest{
		Name: "welcome", Type: domain.TemplatePush, Subject: "s", Body: "b",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCreate_Valid(t *testing.T) {
	repo := &mockTemplateStore{}
	repo.On("GetByName", mock.Anything, "welcome").Return(nil, domain.ErrNotFound)
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.Template")).Return(nil)

	created, err := NewService(repo).Create(context.Background(), CreateRequest{
		Name:      "welcome",
		Type:      domain.TemplatePush,
		Subject:   "Hi {{name}}",
		Body:      "Welcome aboard",
		Variables: []string{"name"},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, created.TemplateID)
	assert.True(t, created.Enable)
	assert.Equal(t, []string{"name"}, created.Variables)
}

func TestCreate_RejectsUnknownType(t *testing.T) {
	repo := &mockTemplateStore{}

	_, err := NewService(repo).Create(context.Background(), CreateRequest{
		Name: "x", Type: "fax", Subject: "s", Body: "b",
	})

	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestUpdate_OnlyChangedFields(t *testing.T) {
	body := "new body"
	enable := false
	repo := &mockTemplateStore{}
	repo.On("Update", mock.Anything, "tpl-1", map[string]interface{}{
		"body":   "new body",
		"enable": false,
	}).Return(nil)
	repo.On("Get", mock.Anything, "tpl-1").Return(activeTemplate("welcome", "s", body), nil)

	updated, err := NewService(repo).Update(context.Background(), "tpl-1", UpdateRequest{
		Body: &body, Enable: &enable,
	})

	require.NoError(t, err)
	assert.Equal(t, "new body", updated.Body)
	repo.AssertExpectations(t)
}

func TestUpdate_NoChanges_IsARead(t *testing.T) {
	repo := &mockTemplateStore{}
	repo.On("Get", mock.Anything, "tpl-1").Return(activeTemplate("welcome", "s", "b"), nil)

	_, err := NewService(repo).Update(context.Background(), "tpl-1", UpdateRequest{})

	require.NoError(t, err)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestDelete_PassesThrough(t *testing.T) {
	repo := &mockTemplateStore{}
	repo.On("HardDelete", mock.Anything, "tpl-404").Return(domain.ErrNotFound)

	err := NewService(repo).Delete(context.Background(), "tpl-404")

	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
