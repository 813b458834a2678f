package domain

import "time"

// TemplateType selects the channel a template is written for.
type TemplateType string

const (
	TemplatePush  TemplateType = "push"
	TemplateEmail TemplateType = "email"
	TemplateSMS   TemplateType = "sms"
)

// ValidTemplateType reports whether t is one of the supported channels.
func ValidTemplateType(t TemplateType) bool {
	switch t {
	case TemplatePush, TemplateEmail, TemplateSMS:
		return true
	}
	return false
}

// Template is a named message with {{variable}} placeholders resolved at send
// time. Written by the admin surface, read by the renderer. Name is unique.
type Template struct {
	TemplateID string       `json:"id" dynamodbav:"template_id"`
	Name       string       `json:"name" dynamodbav:"name"`
	Type       TemplateType `json:"type" dynamodbav:"type"`
	Subject    string       `json:"subject" dynamodbav:"subject"`
	Body       string       `json:"body" dynamodbav:"body"`
	Variables  []string     `json:"variables,omitempty" dynamodbav:"variables,omitempty"`
	Enable     bool         `json:"enable" dynamodbav:"enable"`
	CreatedAt  time.Time    `json:"created" dynamodbav:"created_at"`
	UpdatedAt  time.Time    `json:"updated" dynamodbav:"updated_at"`
}

// RenderedMessage is the outcome of substituting variables into a template.
type RenderedMessage struct {
	Title string
	Body  string
	Type  TemplateType
}
