package mockserver

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/DachengChen/asksql/contract"
	"github.com/DachengChen/asksql/transport"
)

// Handler handles the chat API.
type Handler struct {
	backend transport.Transport
}

// NewHandler creates a handler answering from backend.
func NewHandler(backend transport.Transport) *Handler {
	return &Handler{backend: backend}
}

// RegisterRoutes registers the chat and health routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST(transport.ChatPath, h.Chat)
	e.GET("/healthz", h.Health)
}

type errorBody struct {
	Error string `json:"error"`
}

// Chat answers one chat turn. Requests without a session get a new one.
func (h *Handler) Chat(c echo.Context) error {
	var req contract.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
	}
	if strings.TrimSpace(req.Message) == "" && !req.HasAnswers() {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "message is required"})
	}
	if req.SessionID == "" {
		req.SessionID = NewSessionID()
	}

	resp, err := h.backend.Send(c.Request().Context(), &req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
	data, err := contract.Encode(resp)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
	return c.JSONBlob(http.StatusOK, data)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"backend": h.backend.Name(),
	})
}

// NewSessionID returns a short random session id, e.g. "sess_1a2b3c4d".
func NewSessionID() string {
	return "sess_" + uuid.NewString()[:8]
}
