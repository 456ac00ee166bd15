package model

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

// Answer is a scalar answer: an integer, a float, or absent.
// The zero value is absent.
type Answer struct {
	present bool
	isInt   bool
	i       int64
	f       float64
}

// NoAnswer is the absent answer
var NoAnswer = Answer{}

// IntAnswer returns an integer answer
func IntAnswer(v int64) Answer {
	return Answer{present: true, isInt: true, i: v, f: float64(v)}
}

// NumberAnswer normalizes v: without a fractional part it becomes an integer,
// otherwise it stays a float. Values outside the int64 range stay floats and
// non-finite values are absent.
func NumberAnswer(v float64) Answer {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NoAnswer
	}
	if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
		return IntAnswer(int64(v))
	}
	return Answer{present: true, f: v}
}

// Present reports whether the answer exists
func (a Answer) Present() bool { return a.present }

// IsInt reports whether the answer is an integer
func (a Answer) IsInt() bool { return a.present && a.isInt }

// Int returns the integer value; only meaningful when IsInt
func (a Answer) Int() int64 { return a.i }

// Float returns the numeric value as a float
func (a Answer) Float() float64 { return a.f }

// String renders the answer as its JSON literal, or "<none>"
func (a Answer) String() string {
	if !a.present {
		return "<none>"
	}
	if a.isInt {
		return strconv.FormatInt(a.i, 10)
	}
	return strconv.FormatFloat(a.f, 'g', -1, 64)
}

// MarshalJSON emits an integer literal for integer answers and a float
// literal otherwise. Absent answers encode as null.
func (a Answer) MarshalJSON() ([]byte, error) {
	if !a.present {
		return []byte("null"), nil
	}
	if a.isInt {
		return strconv.AppendInt(nil, a.i, 10), nil
	}
	return json.Marshal(a.f)
}

// UnmarshalJSON accepts a JSON number or null
func (a *Answer) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = NoAnswer
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("answer must be a number")
	}
	if i, err := n.Int64(); err == nil {
		*a = IntAnswer(i)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return errors.New("answer must be a number")
	}
	*a = NumberAnswer(f)
	return nil
}

// SubmissionPayload is the exact JSON body posted to a submission endpoint
type SubmissionPayload struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
	URL    string `json:"url"`
	Answer Answer `json:"answer"`
}
