package transport

import (
	"context"

	"github.com/DachengChen/asksql/applog"
	"github.com/DachengChen/asksql/contract"
)

// Fallback answers from a secondary transport when the primary cannot be
// reached, times out or returns a non-2xx status. It is how the live HTTP
// backend degrades to the local mock. Contract violations are returned
// as they are.
type Fallback struct {
	primary   Transport
	secondary Transport
}

var _ Transport = (*Fallback)(nil)

// NewFallback wraps primary so that failures are answered by secondary.
func NewFallback(primary, secondary Transport) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

func (f *Fallback) Name() string {
	return f.primary.Name() + " → " + f.secondary.Name()
}

func (f *Fallback) Send(ctx context.Context, req *contract.ChatRequest) (contract.ChatResponse, error) {
	resp, err := f.primary.Send(ctx, req)
	if err == nil {
		return resp, nil
	}
	// Cancelled callers want no answer; contract violations are surfaced.
	if ctx.Err() != nil || contract.IsViolation(err) {
		return nil, err
	}
	applog.Event("FALLBACK", "[mock-fallback] backend unavailable, using %s: %v", f.secondary.Name(), err)
	return f.secondary.Send(ctx, req)
}
