package postgrid

import (
	"context"
	"net/http"
	"time"

	"github.com/printmail/postgrid-go/internal/api"
)

// Webhook event types.
const (
	EventLetterCreated   = "letter.created"
	EventLetterUpdated   = "letter.updated"
	EventPostcardCreated = "postcard.created"
	EventPostcardUpdated = "postcard.updated"
	EventTrackerVisited  = "tracker.visited"
)

// Webhook delivers event notifications to a URL.
type Webhook struct {
	ID            string            `json:"id" validate:"required"`
	Object        string            `json:"object" validate:"eq=webhook"`
	Live          bool              `json:"live"`
	URL           string            `json:"url" validate:"required"`
	Description   string            `json:"description,omitempty"`
	Enabled       bool              `json:"enabled"`
	EnabledEvents []string          `json:"enabledEvents"`
	Secret        string            `json:"secret,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// WebhookParams describes a webhook to create or the fields to update.
// Enabled is left unchanged on update when nil. Secret, when set, is used by
// the API to sign webhook payloads.
type WebhookParams struct {
	URL           string            `json:"url,omitempty"`
	Description   string            `json:"description,omitempty"`
	EnabledEvents []string          `json:"enabledEvents,omitempty"`
	Enabled       *bool             `json:"enabled,omitempty"`
	Secret        string            `json:"secret,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// WebhookInvocation is one delivery attempt of a webhook.
type WebhookInvocation struct {
	ID         string    `json:"id" validate:"required"`
	Object     string    `json:"object" validate:"eq=webhook_invocation"`
	Webhook    string    `json:"webhook"`
	Type       string    `json:"type"`
	OrderID    string    `json:"orderID,omitempty"`
	StatusCode int       `json:"statusCode"`
	CreatedAt  time.Time `json:"createdAt"`
}

// WebhookService manages webhooks.
type WebhookService struct {
	api *api.Client
}

const webhooksPath = "webhooks"

// Create creates a webhook.
func (s *WebhookService) Create(ctx context.Context, params WebhookParams) (*Webhook, error) {
	return call[Webhook](ctx, s.api, http.MethodPost, webhooksPath, params)
}

// Get retrieves a webhook by ID.
func (s *WebhookService) Get(ctx context.Context, id string) (*Webhook, error) {
	return get[Webhook](ctx, s.api, "webhook", webhooksPath, id)
}

// List returns a page of webhooks.
func (s *WebhookService) List(ctx context.Context, params *ListParams) (*List[Webhook], error) {
	return list[Webhook](ctx, s.api, webhooksPath, params)
}

// Update changes the non-empty fields of params on a webhook.
func (s *WebhookService) Update(ctx context.Context, id string, params WebhookParams) (*Webhook, error) {
	if err := requireID("webhook", id); err != nil {
		return nil, err
	}
	return call[Webhook](ctx, s.api, http.MethodPost, resourcePath(webhooksPath, id), params)
}

// Delete deletes a webhook.
func (s *WebhookService) Delete(ctx context.Context, id string) (*Deleted, error) {
	return remove(ctx, s.api, "webhook", webhooksPath, id)
}

// ListInvocations returns a page of a webhook's delivery attempts.
func (s *WebhookService) ListInvocations(ctx context.Context, id string, params *ListParams) (*List[WebhookInvocation], error) {
	if err := requireID("webhook", id); err != nil {
		return nil, err
	}
	return list[WebhookInvocation](ctx, s.api, resourcePath(webhooksPath, id, "invocations"), params)
}
