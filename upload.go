package postgrid

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/printmail/postgrid-go/internal/api"
	"github.com/printmail/postgrid-go/internal/apierrors"
)

// createWithPDF posts fields together with pdf as the multipart "pdf" part.
func createWithPDF[T any](ctx context.Context, c *api.Client, resource, path string, fields url.Values, pdf io.Reader) (*T, error) {
	if pdf == nil {
		return nil, apierrors.Validation("PDF is required", []apierrors.FieldError{{
			Field:   "pdf",
			Code:    "required",
			Message: resource + " PDF must not be nil",
		}}, nil)
	}
	body := &api.Multipart{
		Fields: fields,
		Files: []api.FilePart{{
			Field:       "pdf",
			Filename:    resource + ".pdf",
			ContentType: "application/pdf",
			Content:     pdf,
		}},
	}
	return call[T](ctx, c, http.MethodPost, path, body)
}

// setContactRef writes r under key, either as the contact ID or as
// key[field] entries for an inline contact.
func setContactRef(v url.Values, key string, r ContactRef) {
	if r.ID != "" || r.Contact == nil {
		if r.ID != "" {
			v.Set(key, r.ID)
		}
		return
	}
	for k, vals := range r.Contact.form() {
		// metadata[k] nests as key[metadata][k].
		name := key + "[" + k + "]"
		if i := strings.IndexByte(k, '['); i >= 0 {
			name = key + "[" + k[:i] + "]" + k[i:]
		}
		v[name] = vals
	}
}

func setString(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func setBool(v url.Values, key string, value bool) {
	if value {
		v.Set(key, strconv.FormatBool(true))
	}
}

func setMergeVariables(v url.Values, vars map[string]any) {
	for k, val := range vars {
		v.Set("mergeVariables["+k+"]", fmt.Sprint(val))
	}
}

func setMetadata(v url.Values, metadata map[string]string) {
	for k, val := range metadata {
		v.Set("metadata["+k+"]", val)
	}
}
