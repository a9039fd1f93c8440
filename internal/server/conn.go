package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vyrodovalexey/embhttp/internal/httpio"
	"github.com/vyrodovalexey/embhttp/internal/observability"
	"github.com/vyrodovalexey/embhttp/internal/router"
)

// connState tracks an accepted connection through its lifecycle:
// Pending → Accepted → Dispatched → Completed.
type connState int

const (
	statePending connState = iota
	stateAccepted
	stateDispatched
	stateCompleted
)

// String returns the state name.
func (s connState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateAccepted:
		return "accepted"
	case stateDispatched:
		return "dispatched"
	case stateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// handleConnection reads one request from the connection, dispatches it,
// and writes exactly one response. All failure recovery happens here: a
// panic in a matched handler becomes a 500, and a failure writing that
// error response is swallowed so the accept loops are never affected.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	start := time.Now()
	state := stateAccepted
	defer func() { _ = conn.Close() }()

	select {
	case <-ctx.Done():
		return
	default:
	}

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.GetEffectiveReadTimeout()))
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.GetEffectiveWriteTimeout()))

	remote := conn.RemoteAddr().String()
	rw := httpio.NewResponseWriter(conn)

	req, err := httpio.ReadRequest(bufio.NewReader(conn), remote)
	if err != nil {
		_ = rw.WriteText(http.StatusBadRequest, []byte("malformed request\n"), httpio.ContentTypeText)
		s.logger.Debug("failed to read request",
			observability.String("remote", remote),
			observability.String("state", state.String()),
			observability.Error(err),
		)
		return
	}

	s.accessLog.Log(req)

	result := s.router.Dispatch(req.Method, req.Path)
	state = stateDispatched

	var writeErr error
	switch result.Kind {
	case router.NotFound:
		body := fmt.Sprintf("no route found for %s\n", req.Path)
		writeErr = rw.WriteText(http.StatusNotFound, []byte(body), httpio.ContentTypeText)

	case router.MethodNotAllowed:
		rw.Header().Set("Allow", strings.Join(result.Allow, ", "))
		body := fmt.Sprintf("method %s not allowed for %s\n", req.Method, req.Path)
		writeErr = rw.WriteText(http.StatusMethodNotAllowed, []byte(body), httpio.ContentTypeText)

	case router.Matched:
		writeErr = s.invokeHandler(result, req, rw)
	}

	state = stateCompleted
	s.metrics.ObserveRequestDuration(req.Method, strconv.Itoa(rw.Status()), time.Since(start).Seconds())

	if writeErr != nil {
		// Response write failures are not propagated; the connection
		// is simply abandoned.
		s.logger.Debug("connection completed with error",
			observability.String("remote", remote),
			observability.String("state", state.String()),
			observability.Error(writeErr),
		)
		return
	}

	s.logger.Debug("connection completed",
		observability.String("remote", remote),
		observability.String("method", req.Method),
		observability.String("path", req.Path),
		observability.Int("status", rw.Status()),
		observability.Duration("duration", time.Since(start)),
	)
}

// invokeHandler runs the matched route's handler, converting an uncaught
// panic into a 500 response carrying the panic message.
func (s *Server) invokeHandler(result router.Result, req *httpio.Request, rw *httpio.ResponseWriter) (err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}

		s.metrics.RecordPanic()
		s.logger.Error("handler failure",
			observability.String("method", req.Method),
			observability.String("path", req.Path),
			observability.Any("panic", rec),
		)

		if !rw.Written() {
			// A failure writing the 500 itself is swallowed.
			_ = rw.WriteText(http.StatusInternalServerError,
				[]byte(fmt.Sprintf("%v\n", rec)), httpio.ContentTypeText)
		}
		err = fmt.Errorf("handler failure: %v", rec)
	}()

	result.Route.Handler().Handle(req, rw, result.Params)
	return nil
}
