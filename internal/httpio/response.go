package httpio

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
)

// Common content types.
const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeJSON = "application/json"
)

// ResponseWriter serializes HTTP/1.1 responses onto a connection. Exactly
// one response is written per connection; the Connection: close header is
// always emitted.
type ResponseWriter struct {
	w       io.Writer
	header  http.Header
	status  int
	written bool
}

// NewResponseWriter creates a ResponseWriter over w.
func NewResponseWriter(w io.Writer) *ResponseWriter {
	return &ResponseWriter{
		w:      w,
		header: make(http.Header),
	}
}

// Header returns the header map sent with the response. Headers set here
// (e.g. Allow) are written alongside the standard ones.
func (rw *ResponseWriter) Header() http.Header {
	return rw.header
}

// Written reports whether a response has already been serialized.
func (rw *ResponseWriter) Written() bool {
	return rw.written
}

// Status returns the status code of the written response, or zero.
func (rw *ResponseWriter) Status() int {
	return rw.status
}

// WriteText writes a complete response with the given status code, body,
// and content type.
func (rw *ResponseWriter) WriteText(status int, body []byte, contentType string) error {
	if rw.written {
		return fmt.Errorf("response already written (status %d)", rw.status)
	}
	rw.written = true
	rw.status = status

	text := http.StatusText(status)
	if text == "" {
		text = "Status"
	}

	if _, err := fmt.Fprintf(rw.w, "HTTP/1.1 %d %s\r\n", status, text); err != nil {
		return err
	}

	rw.header.Set("Content-Type", contentType)
	rw.header.Set("Content-Length", strconv.Itoa(len(body)))
	rw.header.Set("Connection", "close")

	keys := make([]string, 0, len(rw.header))
	for k := range rw.header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range rw.header[k] {
			if _, err := fmt.Fprintf(rw.w, "%s: %s\r\n", k, v); err != nil {
				return err
			}
		}
	}

	if _, err := io.WriteString(rw.w, "\r\n"); err != nil {
		return err
	}
	_, err := rw.w.Write(body)
	return err
}

// WriteJSON marshals v and delegates to WriteText with a JSON content type.
func (rw *ResponseWriter) WriteJSON(status int, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return rw.WriteText(status, body, ContentTypeJSON)
}
