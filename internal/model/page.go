package model

import (
	"net/url"
	"path"
	"strings"
)

// RenderedPage is the HTML of a quiz page after rendering.
// It lives for a single step.
type RenderedPage struct {
	URL  string
	HTML string
}

// QuestionKind classifies what a quiz page asks for
type QuestionKind string

const (
	KindGenericHeuristic QuestionKind = "generic"          // No dedicated strategy; heuristics only
	KindSumValueColumn   QuestionKind = "sum_value_column" // Sum the "value" column of a data artifact
)

// ArtifactFormat is the inferred format of a data artifact
type ArtifactFormat string

const (
	FormatUnknown ArtifactFormat = ""
	FormatCSV     ArtifactFormat = "csv"
	FormatJSON    ArtifactFormat = "json"
	FormatPDF     ArtifactFormat = "pdf"
)

// ArtifactLink is a hyperlink to a data artifact found on a page
type ArtifactLink struct {
	URL    string         `json:"url"`
	Format ArtifactFormat `json:"format"`
}

// PageInterpretation is what the interpreter extracted from one page
type PageInterpretation struct {
	SubmissionEndpoint string         `json:"submission_endpoint,omitempty"` // Empty when the page names none
	Kind               QuestionKind   `json:"kind"`
	Artifacts          []ArtifactLink `json:"artifacts,omitempty"` // Page order, duplicates kept
}

// HasEndpoint reports whether a submission endpoint was found
func (p PageInterpretation) HasEndpoint() bool {
	return p.SubmissionEndpoint != ""
}

// FormatFromURL infers the artifact format from the extension of the URL
// path, ignoring query and fragment. Unknown extensions yield FormatUnknown.
func FormatFromURL(rawURL string) ArtifactFormat {
	p := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		p = parsed.Path
	}

	switch strings.ToLower(path.Ext(p)) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	case ".pdf":
		return FormatPDF
	default:
		return FormatUnknown
	}
}

// FallbackEndpoint derives a submission endpoint from a quiz URL: everything
// before the first "/quiz" plus "/submit". It returns "" when the URL has no
// "/quiz" segment.
func FallbackEndpoint(quizURL string) string {
	idx := strings.Index(quizURL, "/quiz")
	if idx < 0 {
		return ""
	}
	return quizURL[:idx] + "/submit"
}
