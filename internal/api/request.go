package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"slices"
	"strings"
)

// Request describes one logical API request.
type Request struct {
	// Method is one of GET, POST, PUT, PATCH or DELETE.
	Method string
	// Path is resolved against the client's base URL unless it is already an
	// absolute http(s) URL.
	Path string
	// Body is encoded as a form for url.Values, as multipart/form-data for
	// *Multipart, sent verbatim for []byte and io.Reader, and encoded as JSON
	// otherwise.
	Body any
	// Params are appended to the query string.
	Params url.Values
	// Headers are added to the client's default headers.
	Headers http.Header
	// Result, when non-nil, receives the decoded and validated response.
	Result any
}

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Multipart is a multipart/form-data body. File contents are read once when
// the request is encoded, so every attempt resends the same bytes.
type Multipart struct {
	Fields url.Values
	Files  []FilePart
}

// FilePart is one file of a Multipart body.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Content     io.Reader
}

// payload is an encoded body that can be replayed on every attempt.
type payload struct {
	data        []byte
	contentType string
}

func (p *payload) reader() io.Reader {
	if p == nil {
		return nil
	}
	return bytes.NewReader(p.data)
}

func encodeBody(body any) (*payload, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return &payload{data: []byte(b.Encode()), contentType: "application/x-www-form-urlencoded"}, nil
	case *Multipart:
		return encodeMultipart(b)
	case []byte:
		return &payload{data: b, contentType: "application/json"}, nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		return &payload{data: data, contentType: "application/octet-stream"}, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		return &payload{data: data, contentType: "application/json"}, nil
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart writes fields in key order followed by the files.
func encodeMultipart(m *Multipart) (*payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, key := range slices.Sorted(maps.Keys(m.Fields)) {
		for _, v := range m.Fields[key] {
			if err := w.WriteField(key, v); err != nil {
				return nil, fmt.Errorf("failed to write form field %s: %w", key, err)
			}
		}
	}

	for _, f := range m.Files {
		if f.Content == nil {
			return nil, fmt.Errorf("file part %s has no content", f.Field)
		}
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.Field), quoteEscaper.Replace(f.Filename)))
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("failed to create file part %s: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", f.Filename, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &payload{data: buf.Bytes(), contentType: w.FormDataContentType()}, nil
}

// resolveURL joins path onto base and merges params into the query.
func resolveURL(base *url.URL, path string, params url.Values) (*url.URL, error) {
	var u *url.URL
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		parsed, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("invalid request URL: %w", err)
		}
		u = parsed
	} else {
		rel, err := url.Parse(strings.TrimLeft(path, "/"))
		if err != nil {
			return nil, fmt.Errorf("invalid request path: %w", err)
		}
		u = base.JoinPath(rel.EscapedPath())
		u.RawQuery = rel.RawQuery
	}

	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}
