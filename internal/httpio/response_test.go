package httpio

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseResponse round-trips the serialized bytes through net/http's reader
// to prove the framing is well formed.
func parseResponse(t *testing.T, raw []byte) *http.Response {
	t.Helper()
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rw := NewResponseWriter(&buf)

	require.NoError(t, rw.WriteText(http.StatusOK, []byte("hello"), ContentTypeText))
	assert.True(t, rw.Written())
	assert.Equal(t, http.StatusOK, rw.Status())

	resp := parseResponse(t, buf.Bytes())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ContentTypeText, resp.Header.Get("Content-Type"))
	assert.Equal(t, "5", resp.Header.Get("Content-Length"))
	assert.Equal(t, "close", resp.Header.Get("Connection"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestWriteTextExtraHeaders(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rw := NewResponseWriter(&buf)
	rw.Header().Set("Allow", "GET, POST")

	require.NoError(t, rw.WriteText(http.StatusMethodNotAllowed, []byte("nope"), ContentTypeText))

	resp := parseResponse(t, buf.Bytes())
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "GET, POST", resp.Header.Get("Allow"))
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rw := NewResponseWriter(&buf)

	require.NoError(t, rw.WriteJSON(http.StatusCreated, map[string]int{"id": 7}))

	resp := parseResponse(t, buf.Bytes())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, ContentTypeJSON, resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 7}`, string(body))
}

func TestWriteJSONMarshalError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rw := NewResponseWriter(&buf)

	err := rw.WriteJSON(http.StatusOK, func() {})
	require.Error(t, err)
	assert.False(t, rw.Written())
	assert.Zero(t, buf.Len())
}

func TestDoubleWriteRejected(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rw := NewResponseWriter(&buf)

	require.NoError(t, rw.WriteText(http.StatusOK, nil, ContentTypeText))
	err := rw.WriteText(http.StatusInternalServerError, nil, ContentTypeText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already written")
}

func TestWriteFailurePropagates(t *testing.T) {
	t.Parallel()

	rw := NewResponseWriter(failingWriter{})
	assert.Error(t, rw.WriteText(http.StatusOK, []byte("x"), ContentTypeText))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestAccessLoggerDoesNotPanic(t *testing.T) {
	t.Parallel()

	req, err := ReadRequest(bufio.NewReader(strings.NewReader("GET /x HTTP/1.1\r\n\r\n")), "1.2.3.4:5")
	require.NoError(t, err)

	al := NewAccessLogger(newTestLogger())
	al.Log(req)
}
