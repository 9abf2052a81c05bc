package postgrid

import (
	"context"
	"net/http"
	"time"

	"github.com/printmail/postgrid-go/internal/api"
)

// Tracker is a trackable redirect URL that can be printed on mail pieces.
type Tracker struct {
	ID                  string            `json:"id" validate:"required"`
	Object              string            `json:"object" validate:"eq=tracker"`
	Live                bool              `json:"live"`
	RedirectURLTemplate string            `json:"redirectURLTemplate"`
	URLExpireAfterDays  int               `json:"urlExpireAfterDays,omitempty" validate:"gte=0"`
	VisitCount          int               `json:"visitCount" validate:"gte=0"`
	UniqueVisitCount    int               `json:"uniqueVisitCount" validate:"gte=0"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

// TrackerParams describes a tracker to create or the fields to update.
type TrackerParams struct {
	RedirectURLTemplate string            `json:"redirectURLTemplate,omitempty"`
	URLExpireAfterDays  int               `json:"urlExpireAfterDays,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

// TrackerVisit is one recorded visit of a tracker URL.
type TrackerVisit struct {
	ID            string    `json:"id" validate:"required"`
	Object        string    `json:"object" validate:"eq=tracker_visit"`
	Tracker       string    `json:"tracker"`
	OrderID       string    `json:"orderID,omitempty"`
	Device        string    `json:"device,omitempty"`
	IPAddress     string    `json:"ipAddress,omitempty"`
	ReferrerURL   string    `json:"referrerURL,omitempty"`
	DestinationIP string    `json:"destinationIP,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TrackerService manages trackers.
type TrackerService struct {
	api *api.Client
}

const trackersPath = "trackers"

// Create creates a tracker.
func (s *TrackerService) Create(ctx context.Context, params TrackerParams) (*Tracker, error) {
	return call[Tracker](ctx, s.api, http.MethodPost, trackersPath, params)
}

// Get retrieves a tracker by ID.
func (s *TrackerService) Get(ctx context.Context, id string) (*Tracker, error) {
	return get[Tracker](ctx, s.api, "tracker", trackersPath, id)
}

// List returns a page of trackers.
func (s *TrackerService) List(ctx context.Context, params *ListParams) (*List[Tracker], error) {
	return list[Tracker](ctx, s.api, trackersPath, params)
}

// Update changes the non-empty fields of params on a tracker.
func (s *TrackerService) Update(ctx context.Context, id string, params TrackerParams) (*Tracker, error) {
	if err := requireID("tracker", id); err != nil {
		return nil, err
	}
	return call[Tracker](ctx, s.api, http.MethodPatch, resourcePath(trackersPath, id), params)
}

// Delete deletes a tracker.
func (s *TrackerService) Delete(ctx context.Context, id string) (*Deleted, error) {
	return remove(ctx, s.api, "tracker", trackersPath, id)
}

// ListVisits returns a page of a tracker's visits.
func (s *TrackerService) ListVisits(ctx context.Context, id string, params *ListParams) (*List[TrackerVisit], error) {
	if err := requireID("tracker", id); err != nil {
		return nil, err
	}
	return list[TrackerVisit](ctx, s.api, resourcePath(trackersPath, id, "visits"), params)
}
