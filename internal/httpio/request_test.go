package httpio

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/embhttp/internal/util"
)

func reqReader(raw string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(raw))
}

func TestReadRequest(t *testing.T) {
	t.Parallel()

	raw := "GET /users/42?verbose=1 HTTP/1.1\r\n" +
		"Host: localhost\r\n" +
		"Accept: */*\r\n" +
		"\r\n"

	req, err := ReadRequest(reqReader(raw), "127.0.0.1:54321")
	require.NoError(t, err)

	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/users/42", req.Path)
	assert.Equal(t, "verbose=1", req.RawQuery)
	assert.Equal(t, "HTTP/1.1", req.Proto)
	assert.Equal(t, "localhost", req.Header.Get("Host"))
	assert.Equal(t, "127.0.0.1:54321", req.RemoteAddr)

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestReadRequestWithBody(t *testing.T) {
	t.Parallel()

	raw := "POST /items HTTP/1.1\r\n" +
		"Content-Length: 11\r\n" +
		"Content-Type: application/json\r\n" +
		"\r\n" +
		`{"a": true}`

	req, err := ReadRequest(reqReader(raw), "10.0.0.1:1000")
	require.NoError(t, err)

	assert.Equal(t, "POST", req.Method)
	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"a": true}`, string(body))
}

func TestReadRequestMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "missing proto", raw: "GET /\r\n\r\n"},
		{name: "too many fields", raw: "GET / extra HTTP/1.1\r\n\r\n"},
		{name: "bad proto", raw: "GET / TCP/1.0\r\n\r\n"},
		{name: "empty method", raw: " / HTTP/1.1\r\n\r\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadRequest(reqReader(tt.raw), "x")
			require.Error(t, err)
			assert.True(t, errors.Is(err, util.ErrBadRequest))
		})
	}
}

func TestReadRequestEOF(t *testing.T) {
	t.Parallel()

	_, err := ReadRequest(reqReader(""), "x")
	assert.True(t, errors.Is(err, io.EOF))
}

func TestBodyReaderBogusContentLength(t *testing.T) {
	t.Parallel()

	raw := "POST / HTTP/1.1\r\nContent-Length: nope\r\n\r\nignored"
	req, err := ReadRequest(reqReader(raw), "x")
	require.NoError(t, err)

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Empty(t, body)
}
