package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// QuizRequest is the body of POST /api/quiz. Fields other than email, secret
// and url are kept in Extra and otherwise ignored.
type QuizRequest struct {
	Email  string
	Secret string
	URL    string
	Extra  map[string]json.RawMessage
}

// UnmarshalJSON decodes the known fields and keeps the rest
func (q *QuizRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errors.New("request body must be a JSON object")
	}

	for key, raw := range fields {
		var target *string
		switch key {
		case "email":
			target = &q.Email
		case "secret":
			target = &q.Secret
		case "url":
			target = &q.URL
		default:
			if q.Extra == nil {
				q.Extra = make(map[string]json.RawMessage)
			}
			q.Extra[key] = raw
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	return nil
}

// validateStartURL requires an absolute http(s) URL with a host
func validateStartURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("invalid url: %q is not an absolute http(s) URL", raw)
	}
	return nil
}
