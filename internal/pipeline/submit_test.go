package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/quizrunner/internal/model"
)

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        model.StepResult
	}{
		{"correct", "application/json", `{"correct": true}`, model.Stop(model.StopSolved)},
		{"next url wins over wrong", "application/json", `{"correct": false, "url": "https://next"}`, model.Continue("https://next")},
		{"next url alone", "application/json; charset=utf-8", `{"url": "https://next"}`, model.Continue("https://next")},
		{"wrong", "application/json", `{"correct": false}`, model.Stop(model.StopRejected)},
		{"empty url ignored", "application/json", `{"correct": true, "url": ""}`, model.Stop(model.StopSolved)},
		{"string correct ignored", "application/json", `{"correct": "yes"}`, model.Stop(model.StopUnparsable)},
		{"null correct ignored", "application/json", `{"correct": null}`, model.Stop(model.StopUnparsable)},
		{"vendor json", "application/problem+json", `{"correct": true}`, model.Stop(model.StopSolved)},
		{"html body", "text/html", `{"correct": true}`, model.Stop(model.StopUnparsable)},
		{"no content type", "", `{"correct": true}`, model.Stop(model.StopUnparsable)},
		{"array", "application/json", `[{"correct": true}]`, model.Stop(model.StopUnparsable)},
		{"broken json", "application/json", `{"correct": tr`, model.Stop(model.StopUnparsable)},
		{"null body", "application/json", `null`, model.Stop(model.StopUnparsable)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseOutcome(http.StatusOK, tt.contentType, []byte(tt.body)).Decide()
			if got != tt.want {
				t.Errorf("Decide() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseOutcome_ExtraFields(t *testing.T) {
	outcome := ParseOutcome(http.StatusOK, "application/json", []byte(`{"correct": false, "reason": "off by one", "delay": 3, "url": 7}`))

	if outcome.Reason != "off by one" {
		t.Errorf("unexpected reason %q", outcome.Reason)
	}
	want := map[string]json.RawMessage{
		"delay": json.RawMessage("3"),
		"url":   json.RawMessage("7"),
	}
	if diff := cmp.Diff(want, outcome.Extra); diff != "" {
		t.Errorf("extra mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitter_PostsPayload(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"email":"a@b.c","secret":"s3","url":"https://q.example/quiz/1","answer":6.5}` {
			t.Errorf("unexpected payload %s", body)
		}
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"correct": false, "url": "https://q.example/quiz/2"}`))
	}))
	defer server.Close()

	submitter := NewSubmitter(newTestFetcher(), nil)
	outcome, err := submitter.Submit(context.Background(), server.URL, model.SubmissionPayload{
		Email:  "a@b.c",
		Secret: "s3",
		URL:    "https://q.example/quiz/1",
		Answer: model.NumberAnswer(6.5),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if outcome.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("unexpected status %d", outcome.StatusCode)
	}
	if next := outcome.Decide(); next != model.Continue("https://q.example/quiz/2") {
		t.Errorf("unexpected decision %+v", next)
	}
}

func TestSubmitter_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	_, err := NewSubmitter(newTestFetcher(), nil).Submit(context.Background(), endpoint, model.SubmissionPayload{Answer: model.IntAnswer(1)})
	if !errors.Is(err, model.ErrTransport) {
		t.Errorf("expected transport failure, got %v", err)
	}
}
