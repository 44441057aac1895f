package transport

import (
	"fmt"
	"time"

	"github.com/DachengChen/asksql/config"
)

// SupportedModes lists available backend modes for display.
var SupportedModes = []string{config.ModeHTTP, config.ModeMock}

// mockLatency keeps the loading state visible when running offline.
const mockLatency = 400 * time.Millisecond

// New creates a transport from the backend config. In http mode with
// mock_fallback enabled, the HTTP transport is wrapped in a Fallback to
// the mock. Every transport is wrapped in request/response logging.
func New(cfg config.BackendConfig) (Transport, error) {
	var t Transport
	switch cfg.Mode {
	case config.ModeHTTP, "":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("backend base_url not set. Set %s or add it to ~/.asksql/config.json", config.EnvBackendURL)
		}
		t = NewHTTP(cfg.BaseURL, cfg.Timeout())
		if cfg.MockFallback {
			t = NewFallback(t, NewMock(mockLatency))
		}

	case config.ModeMock:
		t = NewMock(mockLatency)

	default:
		return nil, fmt.Errorf("unknown backend mode %q. Supported: %v", cfg.Mode, SupportedModes)
	}
	return WithLogging(t), nil
}
