package resolve

import (
	"regexp"
	"strconv"

	"github.com/ppiankov/quizrunner/internal/model"
)

var statedAnswerPattern = regexp.MustCompile(`(?i)answer is\s*([0-9]+)`)

// StatedAnswer returns the integer following the first "answer is" phrase in
// the first source that has one. Integers too large for int64 are ignored.
func StatedAnswer(sources ...string) model.Answer {
	for _, src := range sources {
		m := statedAnswerPattern.FindStringSubmatch(src)
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		return model.IntAnswer(n)
	}
	return model.NoAnswer
}
