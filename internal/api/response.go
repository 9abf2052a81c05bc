package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/printmail/postgrid-go/internal/apierrors"
)

// rawResponse is a fully read response, safe to share between callers.
type rawResponse struct {
	statusCode int
	header     http.Header
	body       []byte
}

func (r *rawResponse) isJSON() bool {
	ct := r.header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.Contains(ct, "json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// decode turns a successful response into either a populated result or a
// raw mapping.
func (c *Client) decode(res *rawResponse, result any) (map[string]any, error) {
	body := bytes.TrimSpace(res.body)

	if !res.isJSON() {
		if result != nil && len(body) > 0 {
			return nil, apierrors.Validation(
				fmt.Sprintf("expected a JSON response, got %q", res.header.Get("Content-Type")), nil, nil)
		}
		if result != nil {
			return nil, nil
		}
		return map[string]any{"text": string(res.body)}, nil
	}

	if len(body) == 0 {
		if result != nil {
			return nil, nil
		}
		return map[string]any{}, nil
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return nil, apierrors.Validation("invalid response format from API", decodeDetails(err), err)
		}
		if err := c.validateSchema(result); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, apierrors.Validation("invalid JSON in response", decodeDetails(err), err)
	}
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	return map[string]any{"data": v}, nil
}

// validateSchema checks validate tags on struct results.
func (c *Client) validateSchema(result any) error {
	rv := reflect.ValueOf(result)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	err := c.validate.Struct(rv.Interface())
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.Validation("invalid response format from API", nil, err)
	}
	details := make([]apierrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apierrors.FieldError{
			Field:   fe.Namespace(),
			Code:    fe.Tag(),
			Message: fe.Error(),
		})
	}
	return apierrors.Validation("invalid response format from API", details, err)
}

func decodeDetails(err error) []apierrors.FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []apierrors.FieldError{{
			Field:   typeErr.Field,
			Code:    "type",
			Message: fmt.Sprintf("expected %s, got JSON %s", typeErr.Type, typeErr.Value),
		}}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return []apierrors.FieldError{{
			Code:    "syntax",
			Message: syntaxErr.Error(),
		}}
	}
	return nil
}
