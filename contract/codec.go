package contract

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	// ErrUnknownResponseType is returned when "type" is missing or names a
	// variant this client does not define. It is a contract violation.
	ErrUnknownResponseType = errors.New("unknown chat response type")

	// ErrMissingSessionID is returned when a response has no session_id.
	ErrMissingSessionID = errors.New("chat response has no session_id")

	// ErrMalformedResponse is returned when the body is not valid JSON or
	// does not fit the variant its "type" names.
	ErrMalformedResponse = errors.New("malformed chat response")
)

// IsViolation reports whether err means the backend answered but broke
// the contract, as opposed to not answering at all.
func IsViolation(err error) bool {
	return errors.Is(err, ErrUnknownResponseType) ||
		errors.Is(err, ErrMissingSessionID) ||
		errors.Is(err, ErrMalformedResponse)
}

// Decode parses a backend response body into its concrete variant.
func Decode(data []byte) (ChatResponse, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}

	kind := gjson.GetBytes(data, "type")
	if !kind.Exists() {
		return nil, fmt.Errorf("%w: missing \"type\"", ErrUnknownResponseType)
	}

	var resp ChatResponse
	switch ResponseType(kind.String()) {
	case TypeClarify:
		resp = &ClarifyResponse{}
	case TypeSQL:
		resp = &SQLResponse{}
	case TypeBlocked:
		resp = &BlockedResponse{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownResponseType, kind.String())
	}

	if err := json.Unmarshal(data, resp); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, kind.String(), err)
	}
	if resp.Session() == "" {
		return nil, ErrMissingSessionID
	}
	return resp, nil
}

// Encode serializes a response including its discriminant.
func Encode(resp ChatResponse) ([]byte, error) {
	if resp == nil {
		return nil, fmt.Errorf("encode chat response: %w", ErrUnknownResponseType)
	}
	return json.Marshal(resp)
}
