// Package transport performs the chat call to the NL-to-SQL backend.
//
// Design decisions:
//   - Transport is an interface so the conversation store never knows
//     whether it talks to the live service or the local mock.
//   - All methods accept context for cancellation.
//   - Falling back to the mock is a strategy (Fallback) selected by
//     configuration, not a try/catch buried in the HTTP client.
package transport

import (
	"context"
	"fmt"

	"github.com/DachengChen/asksql/contract"
)

// Transport is the interface all chat backends must implement.
type Transport interface {
	// Send delivers one turn and returns the backend's typed answer.
	// On success the response always carries a session id.
	Send(ctx context.Context, req *contract.ChatRequest) (contract.ChatResponse, error)

	// Name returns the transport name for display.
	Name() string
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend error (%d): %s", e.StatusCode, truncate(e.Body, 200))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
