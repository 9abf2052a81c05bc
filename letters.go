package postgrid

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/printmail/postgrid-go/internal/api"
)

// Mail piece statuses, in the order a live order progresses through them.
const (
	StatusReady                = "ready"
	StatusPrinting             = "printing"
	StatusProcessedForDelivery = "processed_for_delivery"
	StatusCompleted            = "completed"
	StatusCancelled            = "cancelled"
)

// Cancellation records why a mail piece was cancelled.
type Cancellation struct {
	Reason          string `json:"reason,omitempty"`
	CancelledByUser string `json:"cancelledByUser,omitempty"`
	Note            string `json:"note,omitempty"`
}

// Letter is a letter order.
type Letter struct {
	ID               string            `json:"id" validate:"required"`
	Object           string            `json:"object" validate:"eq=letter"`
	Live             bool              `json:"live"`
	Status           string            `json:"status" validate:"required"`
	Description      string            `json:"description,omitempty"`
	To               *Contact          `json:"to,omitempty"`
	From             *Contact          `json:"from,omitempty"`
	Template         string            `json:"template,omitempty"`
	HTML             string            `json:"html,omitempty"`
	URL              string            `json:"url,omitempty"`
	UploadedPDF      string            `json:"uploadedPDF,omitempty"`
	Color            bool              `json:"color"`
	DoubleSided      bool              `json:"doubleSided"`
	AddressPlacement string            `json:"addressPlacement,omitempty"`
	MailingClass     string            `json:"mailingClass,omitempty"`
	Size             string            `json:"size,omitempty"`
	PageCount        int               `json:"pageCount,omitempty" validate:"gte=0"`
	SendDate         string            `json:"sendDate,omitempty"`
	TrackingNumber   string            `json:"trackingNumber,omitempty"`
	Cancellation     *Cancellation     `json:"cancellation,omitempty"`
	MergeVariables   map[string]any    `json:"mergeVariables,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// LetterParams describes a letter to create. Content comes from exactly one
// of Template, HTML or PDF (a link to a hosted PDF), or from a file passed to
// CreateWithPDF.
type LetterParams struct {
	To               ContactRef        `json:"to"`
	From             ContactRef        `json:"from"`
	Template         string            `json:"template,omitempty"`
	HTML             string            `json:"html,omitempty"`
	PDF              string            `json:"pdf,omitempty"`
	Description      string            `json:"description,omitempty"`
	Color            bool              `json:"color,omitempty"`
	DoubleSided      bool              `json:"doubleSided,omitempty"`
	AddressPlacement string            `json:"addressPlacement,omitempty"`
	MailingClass     string            `json:"mailingClass,omitempty"`
	Size             string            `json:"size,omitempty"`
	ExpressDelivery  bool              `json:"express,omitempty"`
	ExtraService     string            `json:"extraService,omitempty"`
	Envelope         string            `json:"envelope,omitempty"`
	ReturnEnvelope   string            `json:"returnEnvelope,omitempty"`
	PerforatedPage   int               `json:"perforatedPage,omitempty"`
	SendDate         string            `json:"sendDate,omitempty"`
	MergeVariables   map[string]any    `json:"mergeVariables,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// form encodes everything but the content link as multipart fields.
func (p *LetterParams) form() url.Values {
	v := url.Values{}
	setContactRef(v, "to", p.To)
	setContactRef(v, "from", p.From)
	setString(v, "template", p.Template)
	setString(v, "description", p.Description)
	setBool(v, "color", p.Color)
	setBool(v, "doubleSided", p.DoubleSided)
	setString(v, "addressPlacement", p.AddressPlacement)
	setString(v, "mailingClass", p.MailingClass)
	setString(v, "size", p.Size)
	setBool(v, "express", p.ExpressDelivery)
	setString(v, "extraService", p.ExtraService)
	setString(v, "envelope", p.Envelope)
	setString(v, "returnEnvelope", p.ReturnEnvelope)
	if p.PerforatedPage > 0 {
		v.Set("perforatedPage", strconv.Itoa(p.PerforatedPage))
	}
	setString(v, "sendDate", p.SendDate)
	setMergeVariables(v, p.MergeVariables)
	setMetadata(v, p.Metadata)
	return v
}

type cancellationNote struct {
	Note string `json:"note"`
}

// LetterService manages letters.
type LetterService struct {
	api *api.Client
}

const lettersPath = "letters"

// Create creates a letter.
func (s *LetterService) Create(ctx context.Context, params LetterParams) (*Letter, error) {
	return call[Letter](ctx, s.api, http.MethodPost, lettersPath, params)
}

// CreateWithPDF creates a letter from the PDF read from pdf, uploaded as
// multipart form data. params.HTML and params.PDF are ignored; a Template,
// when set, is printed ahead of the PDF. The whole PDF is buffered so that
// retries resend it.
func (s *LetterService) CreateWithPDF(ctx context.Context, params LetterParams, pdf io.Reader) (*Letter, error) {
	return createWithPDF[Letter](ctx, s.api, "letter", lettersPath, params.form(), pdf)
}

// Get retrieves a letter by ID.
func (s *LetterService) Get(ctx context.Context, id string) (*Letter, error) {
	return get[Letter](ctx, s.api, "letter", lettersPath, id)
}

// List returns a page of letters.
func (s *LetterService) List(ctx context.Context, params *ListParams) (*List[Letter], error) {
	return list[Letter](ctx, s.api, lettersPath, params)
}

// Cancel cancels a letter that has not been printed yet.
func (s *LetterService) Cancel(ctx context.Context, id string) (*Letter, error) {
	if err := requireID("letter", id); err != nil {
		return nil, err
	}
	return call[Letter](ctx, s.api, http.MethodDelete, resourcePath(lettersPath, id), nil)
}

// CancelWithNote cancels a letter and records note as the reason.
func (s *LetterService) CancelWithNote(ctx context.Context, id, note string) (*Letter, error) {
	if err := requireID("letter", id); err != nil {
		return nil, err
	}
	return call[Letter](ctx, s.api, http.MethodPost, resourcePath(lettersPath, id, "cancellation"), cancellationNote{Note: note})
}

// Progress advances a test-mode letter to its next status.
func (s *LetterService) Progress(ctx context.Context, id string) (*Letter, error) {
	if err := requireID("letter", id); err != nil {
		return nil, err
	}
	return call[Letter](ctx, s.api, http.MethodPost, resourcePath(lettersPath, id, "progressions"), nil)
}
