// Package interpret extracts the submission endpoint, question kind and data
// artifact links from a rendered quiz page. It performs no I/O.
package interpret

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/quizrunner/internal/model"
	"golang.org/x/net/html"
)

var submitPattern = regexp.MustCompile(`(?i)post your answer to\s+(https?://\S+)\s+with this json payload:`)

// Interpreter turns rendered HTML into a PageInterpretation
type Interpreter struct {
	classifier *Classifier
}

// Option configures an Interpreter
type Option func(*Interpreter)

// WithSignatures replaces the classification signatures
func WithSignatures(signatures ...Signature) Option {
	return func(i *Interpreter) {
		i.classifier = NewClassifier(signatures)
	}
}

// WithExtraSignatures adds signatures after the built-in ones
func WithExtraSignatures(signatures ...Signature) Option {
	return func(i *Interpreter) {
		for _, sig := range signatures {
			i.classifier.Register(sig)
		}
	}
}

// NewInterpreter creates an interpreter with the default signatures
func NewInterpreter(opts ...Option) *Interpreter {
	i := &Interpreter{classifier: NewClassifier(DefaultSignatures())}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

var defaultInterpreter = NewInterpreter()

// Interpret interprets a page whose URL is unknown; only absolute links are
// reported.
func Interpret(htmlContent string) model.PageInterpretation {
	return defaultInterpreter.Interpret(model.RenderedPage{HTML: htmlContent})
}

// Interpret extracts the endpoint, kind and artifact links of page.
// It never fails: anything it cannot find is simply absent.
func (i *Interpreter) Interpret(page model.RenderedPage) model.PageInterpretation {
	text := page.HTML
	var links []string

	doc, err := html.Parse(strings.NewReader(page.HTML))
	if err == nil {
		text = visibleText(doc)
		links = linkTargets(doc, baseURL(page.URL))
	}

	return model.PageInterpretation{
		SubmissionEndpoint: SubmissionEndpoint(text, page.HTML),
		Kind:               i.classifier.Classify(text, page.HTML),
		Artifacts:          artifactLinks(links),
	}
}

// SubmissionEndpoint returns the URL named by the first "Post your answer to
// <URL> with this JSON payload:" phrase in the first source that has one,
// with trailing periods stripped.
func SubmissionEndpoint(sources ...string) string {
	for _, src := range sources {
		if m := submitPattern.FindStringSubmatch(src); m != nil {
			if endpoint := strings.TrimRight(m[1], "."); endpoint != "" {
				return endpoint
			}
		}
	}
	return ""
}

// artifactLinks keeps the targets with a recognized data file extension
func artifactLinks(targets []string) []model.ArtifactLink {
	var links []model.ArtifactLink
	for _, target := range targets {
		if format := model.FormatFromURL(target); format != model.FormatUnknown {
			links = append(links, model.ArtifactLink{URL: target, Format: format})
		}
	}
	return links
}

func baseURL(raw string) *url.URL {
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() {
		return nil
	}
	return parsed
}
