package postgrid

import (
	"context"
	"net/http"
	"time"

	"github.com/printmail/postgrid-go/internal/api"
)

// Template is reusable HTML content for letters and postcards.
type Template struct {
	ID          string            `json:"id" validate:"required"`
	Object      string            `json:"object" validate:"eq=template"`
	Live        bool              `json:"live"`
	Description string            `json:"description,omitempty"`
	HTML        string            `json:"html,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// TemplateParams describes a template to create or the fields to update.
type TemplateParams struct {
	Description string            `json:"description,omitempty"`
	HTML        string            `json:"html,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// TemplateService manages templates.
type TemplateService struct {
	api *api.Client
}

const templatesPath = "templates"

// Create creates a template.
func (s *TemplateService) Create(ctx context.Context, params TemplateParams) (*Template, error) {
	return call[Template](ctx, s.api, http.MethodPost, templatesPath, params)
}

// Get retrieves a template by ID.
func (s *TemplateService) Get(ctx context.Context, id string) (*Template, error) {
	return get[Template](ctx, s.api, "template", templatesPath, id)
}

// List returns a page of templates.
func (s *TemplateService) List(ctx context.Context, params *ListParams) (*List[Template], error) {
	return list[Template](ctx, s.api, templatesPath, params)
}

// Update changes the non-empty fields of params on a template.
func (s *TemplateService) Update(ctx context.Context, id string, params TemplateParams) (*Template, error) {
	if err := requireID("template", id); err != nil {
		return nil, err
	}
	return call[Template](ctx, s.api, http.MethodPost, resourcePath(templatesPath, id), params)
}

// Delete deletes a template.
func (s *TemplateService) Delete(ctx context.Context, id string) (*Deleted, error) {
	return remove(ctx, s.api, "template", templatesPath, id)
}

// TemplateEditorSession is a short-lived link to the hosted template editor.
type TemplateEditorSession struct {
	ID        string    `json:"id" validate:"required"`
	Object    string    `json:"object" validate:"eq=template_editor_session"`
	Live      bool      `json:"live"`
	Template  string    `json:"template,omitempty"`
	URL       string    `json:"url" validate:"required,url"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type templateEditorSessionParams struct {
	Template string `json:"template"`
}

// TemplateEditorSessionService manages template editor sessions.
type TemplateEditorSessionService struct {
	api *api.Client
}

const templateEditorSessionsPath = "template_editor_sessions"

// Create opens an editor session for a template.
func (s *TemplateEditorSessionService) Create(ctx context.Context, templateID string) (*TemplateEditorSession, error) {
	if err := requireID("template", templateID); err != nil {
		return nil, err
	}
	return call[TemplateEditorSession](ctx, s.api, http.MethodPost, templateEditorSessionsPath,
		templateEditorSessionParams{Template: templateID})
}

// List returns a page of editor sessions.
func (s *TemplateEditorSessionService) List(ctx context.Context, params *ListParams) (*List[TemplateEditorSession], error) {
	return list[TemplateEditorSession](ctx, s.api, templateEditorSessionsPath, params)
}

// Delete ends an editor session.
func (s *TemplateEditorSessionService) Delete(ctx context.Context, id string) (*Deleted, error) {
	return remove(ctx, s.api, "template editor session", templateEditorSessionsPath, id)
}
