// Package contract defines every value that crosses the client/backend
// boundary: the chat request and the three-way tagged response union.
//
// Design decisions:
//   - ChatResponse is a sealed interface; only ClarifyResponse, SQLResponse
//     and BlockedResponse implement it.
//   - Decode peeks the "type" discriminant before unmarshalling, so a
//     response with an unknown type is rejected instead of guessed.
//   - Match takes one callback per variant. Adding a variant means adding
//     a parameter, which breaks every caller at compile time.
package contract

import (
	"errors"
	"fmt"
	"time"
)

// ChatRequest is the body POSTed to the backend for every turn.
type ChatRequest struct {
	// SessionID is omitted on the first turn; the backend assigns one.
	SessionID string `json:"session_id,omitempty"`

	Message string `json:"message"`

	// Answers carries structured clarify answers keyed by field key.
	Answers map[string]any `json:"answers,omitempty"`
}

// HasAnswers reports whether the request carries at least one answer.
func (r *ChatRequest) HasAnswers() bool {
	return r != nil && len(r.Answers) > 0
}

// DateLayout is the format of date and date_range answers.
const DateLayout = "2006-01-02"

// DateRange checks a date_range answer and returns its wire value,
// {"start": start, "end": end}.
func DateRange(start, end string) (map[string]any, error) {
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("start %q is not a %s date", start, DateLayout)
	}
	to, err := time.Parse(DateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("end %q is not a %s date", end, DateLayout)
	}
	if to.Before(from) {
		return nil, errors.New("end is before start")
	}
	return map[string]any{"start": start, "end": end}, nil
}
