package postgrid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/printmail/postgrid-go/internal/api"
)

// Contact is a recipient or sender with a postal address.
type Contact struct {
	ID              string            `json:"id" validate:"required"`
	Object          string            `json:"object" validate:"eq=contact"`
	Live            bool              `json:"live"`
	FirstName       string            `json:"firstName,omitempty"`
	LastName        string            `json:"lastName,omitempty"`
	CompanyName     string            `json:"companyName,omitempty"`
	JobTitle        string            `json:"jobTitle,omitempty"`
	Email           string            `json:"email,omitempty"`
	PhoneNumber     string            `json:"phoneNumber,omitempty"`
	Description     string            `json:"description,omitempty"`
	AddressLine1    string            `json:"addressLine1"`
	AddressLine2    string            `json:"addressLine2,omitempty"`
	City            string            `json:"city,omitempty"`
	ProvinceOrState string            `json:"provinceOrState,omitempty"`
	PostalOrZip     string            `json:"postalOrZip,omitempty"`
	Country         string            `json:"country,omitempty"`
	CountryCode     string            `json:"countryCode,omitempty"`
	AddressStatus   string            `json:"addressStatus,omitempty"`
	AddressErrors   map[string]string `json:"addressErrors,omitempty"`
	Secret          bool              `json:"secret,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// ContactParams describes a contact to create. Either FirstName or
// CompanyName should be set. For a single-line address, set only
// AddressLine1 and let the API parse it. Secret redacts the contact's
// personal details in later API responses.
type ContactParams struct {
	FirstName           string            `json:"firstName,omitempty"`
	LastName            string            `json:"lastName,omitempty"`
	CompanyName         string            `json:"companyName,omitempty"`
	JobTitle            string            `json:"jobTitle,omitempty"`
	Email               string            `json:"email,omitempty"`
	PhoneNumber         string            `json:"phoneNumber,omitempty"`
	Description         string            `json:"description,omitempty"`
	AddressLine1        string            `json:"addressLine1"`
	AddressLine2        string            `json:"addressLine2,omitempty"`
	City                string            `json:"city,omitempty"`
	ProvinceOrState     string            `json:"provinceOrState,omitempty"`
	PostalOrZip         string            `json:"postalOrZip,omitempty"`
	CountryCode         string            `json:"countryCode,omitempty"`
	SkipVerification    bool              `json:"skipVerification,omitempty"`
	ForceVerifiedStatus bool              `json:"forceVerifiedStatus,omitempty"`
	Secret              bool              `json:"secret,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

// form encodes the params the way the contacts endpoint expects them.
func (p *ContactParams) form() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("firstName", p.FirstName)
	set("lastName", p.LastName)
	set("companyName", p.CompanyName)
	set("jobTitle", p.JobTitle)
	set("email", p.Email)
	set("phoneNumber", p.PhoneNumber)
	set("description", p.Description)
	set("addressLine1", p.AddressLine1)
	set("addressLine2", p.AddressLine2)
	set("city", p.City)
	set("provinceOrState", p.ProvinceOrState)
	set("postalOrZip", p.PostalOrZip)
	set("countryCode", p.CountryCode)
	if p.SkipVerification {
		v.Set("skipVerification", strconv.FormatBool(true))
	}
	if p.ForceVerifiedStatus {
		v.Set("forceVerifiedStatus", strconv.FormatBool(true))
	}
	if p.Secret {
		v.Set("secret", strconv.FormatBool(true))
	}
	for k, val := range p.Metadata {
		v.Set("metadata["+k+"]", val)
	}
	return v
}

// ContactRef refers to a contact either by ID or inline. It marshals to the
// ID string when ID is set, otherwise to the inline contact.
type ContactRef struct {
	ID      string
	Contact *ContactParams
}

// ContactID refers to an existing contact.
func ContactID(id string) ContactRef {
	return ContactRef{ID: id}
}

// InlineContact refers to a contact created together with the mail piece.
func InlineContact(p ContactParams) ContactRef {
	return ContactRef{Contact: &p}
}

// MarshalJSON implements json.Marshaler.
func (r ContactRef) MarshalJSON() ([]byte, error) {
	if r.ID != "" || r.Contact == nil {
		return json.Marshal(r.ID)
	}
	return json.Marshal(r.Contact)
}

// UnmarshalJSON implements json.Unmarshaler. It accepts either a contact ID
// string or an inline contact object.
func (r *ContactRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*r = ContactRef{ID: id}
		return nil
	}
	var p ContactParams
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("contact must be an ID or an object: %w", err)
	}
	*r = ContactRef{Contact: &p}
	return nil
}

// ContactService manages contacts.
type ContactService struct {
	api *api.Client
}

const contactsPath = "contacts"

// Create creates a contact.
func (s *ContactService) Create(ctx context.Context, params ContactParams) (*Contact, error) {
	return call[Contact](ctx, s.api, http.MethodPost, contactsPath, params.form())
}

// Get retrieves a contact by ID.
func (s *ContactService) Get(ctx context.Context, id string) (*Contact, error) {
	return get[Contact](ctx, s.api, "contact", contactsPath, id)
}

// List returns a page of contacts.
func (s *ContactService) List(ctx context.Context, params *ListParams) (*List[Contact], error) {
	return list[Contact](ctx, s.api, contactsPath, params)
}

// Delete deletes a contact.
func (s *ContactService) Delete(ctx context.Context, id string) (*Deleted, error) {
	return remove(ctx, s.api, "contact", contactsPath, id)
}
