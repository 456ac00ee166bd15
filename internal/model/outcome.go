package model

import "encoding/json"

// StopReason records why a chain stopped. It is only logged; callers of a
// chain run never see it.
type StopReason string

const (
	StopNone         StopReason = ""
	StopSolved       StopReason = "solved"        // correct answer and no next URL
	StopRejected     StopReason = "rejected"      // wrong answer and no next URL
	StopUnparsable   StopReason = "unparsable"    // response had no structured body
	StopDeadline     StopReason = "deadline"      // global budget exhausted
	StopRenderFailed StopReason = "render_failed" // the page could not be rendered
	StopNoEndpoint   StopReason = "no_endpoint"   // no submission endpoint could be determined
	StopNoAnswer     StopReason = "no_answer"     // no strategy produced an answer
	StopSubmitFailed StopReason = "submit_failed" // transport failure while posting
	StopCancelled    StopReason = "cancelled"     // the run context was cancelled
)

// StepResult is the tagged result of one driver step: either continue to
// Next or stop for Reason.
type StepResult struct {
	Next   string
	Reason StopReason
}

// Continue returns a result that moves the chain to next
func Continue(next string) StepResult {
	return StepResult{Next: next}
}

// Stop returns a terminal result
func Stop(reason StopReason) StepResult {
	return StepResult{Reason: reason}
}

// Stopped reports whether the chain ends with this step
func (r StepResult) Stopped() bool {
	return r.Next == ""
}

// SubmissionOutcome is the interpreted response of a submission endpoint.
// Correct is nil when the body carried no boolean "correct" field and
// NextURL is empty when it carried no non-empty string "url" field.
type SubmissionOutcome struct {
	StatusCode int
	Structured bool   // Body was a JSON object
	Correct    *bool  // Optional "correct"
	NextURL    string // Optional "url"
	Reason     string // Optional "reason", informational
	Extra      map[string]json.RawMessage
	Raw        []byte
}

// Decide maps the outcome onto the chain's next move:
// a next URL always continues, whatever "correct" says; anything else stops.
func (o SubmissionOutcome) Decide() StepResult {
	if o.NextURL != "" {
		return Continue(o.NextURL)
	}
	if !o.Structured || o.Correct == nil {
		return Stop(StopUnparsable)
	}
	if *o.Correct {
		return Stop(StopSolved)
	}
	return Stop(StopRejected)
}
