package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"mime"
	"strings"

	"github.com/ppiankov/quizrunner/internal/model"
	"go.uber.org/zap"
)

// Poster sends a JSON body and returns the raw response
type Poster interface {
	PostJSON(ctx context.Context, rawURL string, body any) (*PostResponse, error)
}

// Submitter posts answers to submission endpoints
type Submitter struct {
	poster Poster
	logger *zap.Logger
}

// NewSubmitter creates a submitter posting through poster
func NewSubmitter(poster Poster, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{poster: poster, logger: logger}
}

// Submit posts payload to endpoint once. Every HTTP status yields an
// outcome; only transport failures are errors.
func (s *Submitter) Submit(ctx context.Context, endpoint string, payload model.SubmissionPayload) (model.SubmissionOutcome, error) {
	resp, err := s.poster.PostJSON(ctx, endpoint, payload)
	if err != nil {
		return model.SubmissionOutcome{}, err
	}

	outcome := ParseOutcome(resp.StatusCode, resp.ContentType, resp.Body)
	s.logger.Debug("submission answered",
		zap.String("endpoint", endpoint),
		zap.Int("status", outcome.StatusCode),
		zap.Bool("structured", outcome.Structured),
		zap.String("next_url", outcome.NextURL),
		zap.String("reason", outcome.Reason))
	return outcome, nil
}

// ParseOutcome interprets a submission response. The body is read only when
// the content type is JSON and holds an object; "correct" counts only as a
// boolean and "url" only as a non-empty string.
func ParseOutcome(status int, contentType string, body []byte) model.SubmissionOutcome {
	outcome := model.SubmissionOutcome{StatusCode: status, Raw: body}
	if !isJSONMediaType(contentType) {
		return outcome
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return outcome
	}
	outcome.Structured = true

	for key, raw := range fields {
		switch key {
		case "correct":
			var correct bool
			if err := json.Unmarshal(raw, &correct); err == nil && !isNull(raw) {
				outcome.Correct = &correct
				continue
			}
		case "url":
			var next string
			if err := json.Unmarshal(raw, &next); err == nil && next != "" {
				outcome.NextURL = next
				continue
			}
		case "reason":
			var reason string
			if err := json.Unmarshal(raw, &reason); err == nil {
				outcome.Reason = reason
				continue
			}
		}
		if outcome.Extra == nil {
			outcome.Extra = make(map[string]json.RawMessage)
		}
		outcome.Extra[key] = raw
	}

	return outcome
}

func isJSONMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
