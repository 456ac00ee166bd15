package interpret

import (
	"regexp"

	"github.com/ppiankov/quizrunner/internal/model"
)

// Signature classifies a page whose text matches Pattern as Kind
type Signature struct {
	Kind    model.QuestionKind
	Pattern *regexp.Regexp
}

// Matches reports whether the signature applies to text
func (s Signature) Matches(text string) bool {
	return s.Pattern != nil && s.Pattern.MatchString(text)
}

// sumValueColumnPattern accepts the column name in straight, curly or no quotes
var sumValueColumnPattern = regexp.MustCompile(`(?i)sum of the\s+["'“”‘’]?value["'“”‘’]?\s+column`)

// DefaultSignatures returns the built-in signatures in evaluation order
func DefaultSignatures() []Signature {
	return []Signature{
		{Kind: model.KindSumValueColumn, Pattern: sumValueColumnPattern},
	}
}

// Classifier applies an ordered list of signatures; the first match wins
type Classifier struct {
	signatures []Signature
}

// NewClassifier creates a classifier over the given signatures
func NewClassifier(signatures []Signature) *Classifier {
	return &Classifier{signatures: append([]Signature(nil), signatures...)}
}

// Register appends a signature after the existing ones
func (c *Classifier) Register(sig Signature) {
	c.signatures = append(c.signatures, sig)
}

// Classify returns the kind of the first signature matching any of texts,
// trying every text against a signature before moving to the next one.
// Pages that match nothing are KindGenericHeuristic.
func (c *Classifier) Classify(texts ...string) model.QuestionKind {
	for _, sig := range c.signatures {
		for _, text := range texts {
			if sig.Matches(text) {
				return sig.Kind
			}
		}
	}
	return model.KindGenericHeuristic
}
