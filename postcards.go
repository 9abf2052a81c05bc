package postgrid

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/printmail/postgrid-go/internal/api"
)

// Postcard sizes.
const (
	PostcardSize6x4  = "6x4"
	PostcardSize9x6  = "9x6"
	PostcardSize11x6 = "11x6"
)

// Postcard is a postcard order.
type Postcard struct {
	ID             string            `json:"id" validate:"required"`
	Object         string            `json:"object" validate:"eq=postcard"`
	Live           bool              `json:"live"`
	Status         string            `json:"status" validate:"required"`
	Description    string            `json:"description,omitempty"`
	To             *Contact          `json:"to,omitempty"`
	From           *Contact          `json:"from,omitempty"`
	Size           string            `json:"size,omitempty"`
	FrontHTML      string            `json:"frontHTML,omitempty"`
	BackHTML       string            `json:"backHTML,omitempty"`
	FrontTemplate  string            `json:"frontTemplate,omitempty"`
	BackTemplate   string            `json:"backTemplate,omitempty"`
	URL            string            `json:"url,omitempty"`
	UploadedPDF    string            `json:"uploadedPDF,omitempty"`
	MailingClass   string            `json:"mailingClass,omitempty"`
	SendDate       string            `json:"sendDate,omitempty"`
	Cancellation   *Cancellation     `json:"cancellation,omitempty"`
	MergeVariables map[string]any    `json:"mergeVariables,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// PostcardParams describes a postcard to create. Content comes from front
// and back HTML, front and back templates, a two-page PDF link, or a file
// passed to CreateWithPDF.
type PostcardParams struct {
	To              ContactRef        `json:"to"`
	From            *ContactRef       `json:"from,omitempty"`
	Size            string            `json:"size"`
	FrontHTML       string            `json:"frontHTML,omitempty"`
	BackHTML        string            `json:"backHTML,omitempty"`
	FrontTemplate   string            `json:"frontTemplate,omitempty"`
	BackTemplate    string            `json:"backTemplate,omitempty"`
	PDF             string            `json:"pdf,omitempty"`
	Description     string            `json:"description,omitempty"`
	MailingClass    string            `json:"mailingClass,omitempty"`
	ExpressDelivery bool              `json:"express,omitempty"`
	SendDate        string            `json:"sendDate,omitempty"`
	MergeVariables  map[string]any    `json:"mergeVariables,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// form encodes the fields that accompany an uploaded PDF.
func (p *PostcardParams) form() url.Values {
	v := url.Values{}
	setContactRef(v, "to", p.To)
	if p.From != nil {
		setContactRef(v, "from", *p.From)
	}
	setString(v, "size", p.Size)
	setString(v, "description", p.Description)
	setString(v, "mailingClass", p.MailingClass)
	setBool(v, "express", p.ExpressDelivery)
	setString(v, "sendDate", p.SendDate)
	setMergeVariables(v, p.MergeVariables)
	setMetadata(v, p.Metadata)
	return v
}

// PostcardService manages postcards.
type PostcardService struct {
	api *api.Client
}

const postcardsPath = "postcards"

// Create creates a postcard.
func (s *PostcardService) Create(ctx context.Context, params PostcardParams) (*Postcard, error) {
	return call[Postcard](ctx, s.api, http.MethodPost, postcardsPath, params)
}

// CreateWithPDF creates a postcard from a two-page PDF read from pdf,
// uploaded as multipart form data. The HTML, template and PDF link fields of
// params are ignored. The whole PDF is buffered so that retries resend it.
func (s *PostcardService) CreateWithPDF(ctx context.Context, params PostcardParams, pdf io.Reader) (*Postcard, error) {
	return createWithPDF[Postcard](ctx, s.api, "postcard", postcardsPath, params.form(), pdf)
}

// Get retrieves a postcard by ID.
func (s *PostcardService) Get(ctx context.Context, id string) (*Postcard, error) {
	return get[Postcard](ctx, s.api, "postcard", postcardsPath, id)
}

// List returns a page of postcards.
func (s *PostcardService) List(ctx context.Context, params *ListParams) (*List[Postcard], error) {
	return list[Postcard](ctx, s.api, postcardsPath, params)
}

// Cancel cancels a postcard that has not been printed yet.
func (s *PostcardService) Cancel(ctx context.Context, id string) (*Postcard, error) {
	if err := requireID("postcard", id); err != nil {
		return nil, err
	}
	return call[Postcard](ctx, s.api, http.MethodDelete, resourcePath(postcardsPath, id), nil)
}

// CancelWithNote cancels a postcard and records note as the reason.
func (s *PostcardService) CancelWithNote(ctx context.Context, id, note string) (*Postcard, error) {
	if err := requireID("postcard", id); err != nil {
		return nil, err
	}
	return call[Postcard](ctx, s.api, http.MethodPost, resourcePath(postcardsPath, id, "cancellation"), cancellationNote{Note: note})
}

// Progress advances a test-mode postcard to its next status.
func (s *PostcardService) Progress(ctx context.Context, id string) (*Postcard, error) {
	if err := requireID("postcard", id); err != nil {
		return nil, err
	}
	return call[Postcard](ctx, s.api, http.MethodPost, resourcePath(postcardsPath, id, "progressions"), nil)
}
