// Package httpio implements the I/O collaborators of the embedded server:
// request parsing, response serialization, and the one-line request logger.
// The routing core calls into this package but does not depend on how bytes
// reach the wire.
package httpio

import (
	"bufio"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/embhttp/internal/util"
)

// maxBodyBytes caps the request body read from a connection.
const maxBodyBytes = 10 << 20 // 10 MiB

// Request represents a parsed inbound HTTP request.
type Request struct {
	Method     string
	Path       string
	RawQuery   string
	Proto      string
	Header     http.Header
	RemoteAddr string
	Body       io.Reader
}

// ReadRequest reads and parses one HTTP/1.x request from r. The body reader
// is bounded by the declared Content-Length.
func ReadRequest(r *bufio.Reader, remoteAddr string) (*Request, error) {
	tp := textproto.NewReader(r)

	line, err := tp.ReadLine()
	if err != nil {
		return nil, err
	}

	method, target, proto, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, util.WrapError(err, "reading headers")
	}

	path, rawQuery := splitTarget(target)

	req := &Request{
		Method:     method,
		Path:       path,
		RawQuery:   rawQuery,
		Proto:      proto,
		Header:     http.Header(mimeHeader),
		RemoteAddr: remoteAddr,
	}
	req.Body = bodyReader(r, req.Header)

	return req, nil
}

// parseRequestLine parses "METHOD /path HTTP/1.1".
func parseRequestLine(line string) (method, target, proto string, err error) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return "", "", "", util.WrapError(util.ErrBadRequest, "request line "+strconv.Quote(line))
	}
	method, target, proto = parts[0], parts[1], parts[2]
	if method == "" || target == "" || !strings.HasPrefix(proto, "HTTP/") {
		return "", "", "", util.WrapError(util.ErrBadRequest, "request line "+strconv.Quote(line))
	}
	return method, target, proto, nil
}

// splitTarget separates the path from the query string.
func splitTarget(target string) (path, rawQuery string) {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

// bodyReader returns a reader bounded by the declared Content-Length, or an
// empty reader when no body is declared.
func bodyReader(r *bufio.Reader, header http.Header) io.Reader {
	cl := header.Get("Content-Length")
	if cl == "" {
		return strings.NewReader("")
	}
	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil || n <= 0 {
		return strings.NewReader("")
	}
	if n > maxBodyBytes {
		n = maxBodyBytes
	}
	return io.LimitReader(r, n)
}
