package httpio

import (
	"github.com/vyrodovalexey/embhttp/internal/observability"
)

// AccessLogger emits one line per inbound request: remote endpoint, method,
// and path.
type AccessLogger struct {
	logger observability.Logger
}

// NewAccessLogger creates an AccessLogger writing through the given logger.
func NewAccessLogger(logger observability.Logger) *AccessLogger {
	return &AccessLogger{logger: logger}
}

// Log records one inbound request.
func (a *AccessLogger) Log(req *Request) {
	a.logger.Info("request",
		observability.String("remote", req.RemoteAddr),
		observability.String("method", req.Method),
		observability.String("path", req.Path),
	)
}
