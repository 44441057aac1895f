// logger.go logs every chat turn that goes through a transport.
//
// Entries go to the application log (~/.asksql/logs/app.log) with the
// session, the outgoing message and the classified answer.
package transport

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DachengChen/asksql/applog"
	"github.com/DachengChen/asksql/contract"
)

// Logging decorates a Transport with request/response logging.
type Logging struct {
	next Transport
}

var _ Transport = (*Logging)(nil)

// WithLogging wraps t. Wrapping twice is avoided.
func WithLogging(t Transport) Transport {
	if _, ok := t.(*Logging); ok {
		return t
	}
	return &Logging{next: t}
}

func (l *Logging) Name() string {
	return l.next.Name()
}

func (l *Logging) Send(ctx context.Context, req *contract.ChatRequest) (contract.ChatResponse, error) {
	LogRequest(l.next.Name(), req)
	start := time.Now()
	resp, err := l.next.Send(ctx, req)
	LogResponse(resp, time.Since(start), err)
	return resp, err
}

// LogRequest logs an outgoing chat turn.
func LogRequest(transport string, req *contract.ChatRequest) {
	answerKeys := make([]string, 0, len(req.Answers))
	for k := range req.Answers {
		answerKeys = append(answerKeys, k)
	}
	applog.L().Info("chat request",
		zap.String("transport", transport),
		zap.String("session_id", req.SessionID),
		zap.String("message", req.Message),
		zap.Strings("answers", answerKeys),
	)
}

// LogResponse logs the outcome of a chat turn.
func LogResponse(resp contract.ChatResponse, elapsed time.Duration, err error) {
	if err != nil {
		applog.L().Error("chat response", zap.Duration("elapsed", elapsed), zap.Error(err))
		return
	}
	applog.L().Info("chat response",
		zap.String("type", string(resp.Type())),
		zap.String("session_id", resp.Session()),
		zap.Duration("elapsed", elapsed),
	)
}
