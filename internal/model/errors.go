package model

import (
	"errors"
	"fmt"
)

// Failure kinds. Match them with errors.Is.
var (
	ErrRender    = errors.New("render failure")    // the renderer produced no HTML
	ErrTransport = errors.New("transport failure") // network or HTTP failure
	ErrParse     = errors.New("parse failure")     // artifact bytes are not a table
	ErrAuth      = errors.New("auth failure")      // caller secret missing or wrong
)

// Failure attaches a failure kind and the URL involved to an underlying error
type Failure struct {
	Kind error
	URL  string
	Err  error
}

// Fail wraps err as a failure of the given kind
func Fail(kind error, url string, err error) *Failure {
	return &Failure{Kind: kind, URL: url, Err: err}
}

func (f *Failure) Error() string {
	if f.URL == "" {
		return fmt.Sprintf("%v: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%v: %s: %v", f.Kind, f.URL, f.Err)
}

func (f *Failure) Unwrap() []error {
	return []error{f.Kind, f.Err}
}
