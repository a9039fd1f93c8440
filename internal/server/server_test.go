package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/embhttp/internal/config"
	"github.com/vyrodovalexey/embhttp/internal/httpio"
	"github.com/vyrodovalexey/embhttp/internal/observability"
	"github.com/vyrodovalexey/embhttp/internal/router"
)

// startTestServer starts a server on an ephemeral loopback port and returns
// it together with its address.
func startTestServer(t *testing.T, register func(*router.Router)) (*Server, string) {
	t.Helper()

	cfg := config.DefaultServerConfig()
	cfg.AdmissionCapacity = 4
	cfg.ReadTimeout = config.Duration(5 * time.Second)
	cfg.WriteTimeout = config.Duration(5 * time.Second)
	cfg.ShutdownTimeout = config.Duration(5 * time.Second)

	rtr := router.New()
	register(rtr)

	srv := New(cfg, rtr, observability.NewNopLogger(), nil)
	srv.SetListenAddresses("127.0.0.1:0")

	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	addrs := srv.Addrs()
	require.Len(t, addrs, 1)
	return srv, addrs[0]
}

// doRaw sends a raw HTTP request over a fresh connection and parses the
// response.
func doRaw(t *testing.T, addr, raw string) (*http.Response, string) {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func get(path string) string {
	return fmt.Sprintf("GET %s HTTP/1.1\r\nHost: test\r\n\r\n", path)
}

func TestServerMatchedRoute(t *testing.T) {
	t.Parallel()

	_, addr := startTestServer(t, func(r *router.Router) {
		r.Get("/users/{id:int}", router.HandlerFunc(
			func(req *httpio.Request, rw *httpio.ResponseWriter, params router.Params) {
				body := fmt.Sprintf("user %d", params.Int("id", -1))
				_ = rw.WriteText(http.StatusOK, []byte(body), httpio.ContentTypeText)
			}))
	})

	resp, body := doRaw(t, addr, get("/users/42"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user 42", body)
}

func TestServerJSONRoute(t *testing.T) {
	t.Parallel()

	_, addr := startTestServer(t, func(r *router.Router) {
		r.Get("/status", router.HandlerFunc(
			func(req *httpio.Request, rw *httpio.ResponseWriter, params router.Params) {
				_ = rw.WriteJSON(http.StatusOK, map[string]string{"state": "up"})
			}))
	})

	resp, body := doRaw(t, addr, get("/status"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, httpio.ContentTypeJSON, resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"state": "up"}`, body)
}

func TestServerNotFound(t *testing.T) {
	t.Parallel()

	_, addr := startTestServer(t, func(r *router.Router) {
		r.Get("/known", router.HandlerFunc(
			func(req *httpio.Request, rw *httpio.ResponseWriter, params router.Params) {
				_ = rw.WriteText(http.StatusOK, nil, httpio.ContentTypeText)
			}))
	})

	resp, body := doRaw(t, addr, get("/missing"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "/missing")
}

func TestServerMethodNotAllowed(t *testing.T) {
	t.Parallel()

	handler := router.HandlerFunc(
		func(req *httpio.Request, rw *httpio.ResponseWriter, params router.Params) {
			_ = rw.WriteText(http.StatusOK, nil, httpio.ContentTypeText)
		})

	_, addr := startTestServer(t, func(r *router.Router) {
		r.Get("/items/{id:int}", handler).Post("/items/{id:int}", handler)
	})

	raw := "DELETE /items/5 HTTP/1.1\r\nHost: test\r\n\r\n"
	resp, body := doRaw(t, addr, raw)

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "GET, POST", resp.Header.Get("Allow"))
	assert.Contains(t, body, "DELETE")
}

func TestServerTrailingSlash(t *testing.T) {
	t.Parallel()

	_, addr := startTestServer(t, func(r *router.Router) {
		r.Get("/projects", router.HandlerFunc(
			func(req *httpio.Request, rw *httpio.ResponseWriter, params router.Params) {
				_ = rw.WriteText(http.StatusOK, []byte("projects"), httpio.ContentTypeText)
			}))
	})

	resp, _ := doRaw(t, addr, get("/projects/"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRaw(t, addr, get("/projects"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerHandlerPanicContainment(t *testing.T) {
	t.Parallel()

	_, addr := startTestServer(t, func(r *router.Router) {
		r.Get("/boom", router.HandlerFunc(
			func(req *httpio.Request, rw *httpio.ResponseWriter, params router.Params) {
				panic("kaboom")
			}))
		r.Get("/fine", router.HandlerFunc(
			func(req *httpio.Request, rw *httpio.ResponseWriter, params router.Params) {
				_ = rw.WriteText(http.StatusOK, []byte("still serving"), httpio.ContentTypeText)
			}))
	})

	resp, body := doRaw(t, addr, get("/boom"))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "kaboom")

	// An unrelated subsequent connection is served normally.
	resp, body = doRaw(t, addr, get("/fine"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "still serving", body)
}

func TestServerMalformedRequest(t *testing.T) {
	t.Parallel()

	_, addr := startTestServer(t, func(r *router.Router) {})

	resp, _ := doRaw(t, addr, "NOT-A-REQUEST-LINE\r\n\r\n")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerStartStop(t *testing.T) {
	t.Parallel()

	srv, addr := startTestServer(t, func(r *router.Router) {})
	assert.True(t, srv.IsRunning())

	// A second Start must be rejected.
	assert.Error(t, srv.Start(context.Background()))

	require.NoError(t, srv.Stop(context.Background()))
	assert.False(t, srv.IsRunning())

	// Stop is idempotent.
	require.NoError(t, srv.Stop(context.Background()))

	// The listener is gone.
	time.Sleep(50 * time.Millisecond)
	_, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err)
}

func TestServerContextCancellationStopsAcceptLoop(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultServerConfig()
	cfg.ShutdownTimeout = config.Duration(2 * time.Second)

	srv := New(cfg, router.New(), observability.NewNopLogger(), nil)
	srv.SetListenAddresses("127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Start(ctx))

	cancel()
	require.NoError(t, srv.Stop(context.Background()))
}

func TestServerConcurrentConnections(t *testing.T) {
	t.Parallel()

	_, addr := startTestServer(t, func(r *router.Router) {
		r.Get("/slow", router.HandlerFunc(
			func(req *httpio.Request, rw *httpio.ResponseWriter, params router.Params) {
				time.Sleep(50 * time.Millisecond)
				_ = rw.WriteText(http.StatusOK, []byte("ok"), httpio.ContentTypeText)
			}))
	})

	const clients = 10
	errCh := make(chan error, clients)
	for i := 0; i < clients; i++ {
		go func() {
			conn, err := net.Dial("tcp", addr)
			if err != nil {
				errCh <- err
				return
			}
			defer func() { _ = conn.Close() }()

			if _, err := conn.Write([]byte(get("/slow"))); err != nil {
				errCh <- err
				return
			}
			resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
			if err != nil {
				errCh <- err
				return
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errCh <- fmt.Errorf("unexpected status %d", resp.StatusCode)
				return
			}
			errCh <- nil
		}()
	}

	for i := 0; i < clients; i++ {
		assert.NoError(t, <-errCh)
	}
}

func TestServerAcceptRateLimiterConfigured(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultServerConfig()
	cfg.AcceptRate = 1000
	cfg.AcceptBurst = 100

	srv := New(cfg, router.New(), observability.NewNopLogger(), nil)
	srv.SetListenAddresses("127.0.0.1:0")
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	resp, _ := doRaw(t, srv.Addrs()[0], get("/nope"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListenAddressesIncludesLoopback(t *testing.T) {
	t.Parallel()

	addrs, err := listenAddresses(9999)
	require.NoError(t, err)
	require.NotEmpty(t, addrs)

	found := false
	for _, a := range addrs {
		host, port, err := net.SplitHostPort(a)
		require.NoError(t, err)
		assert.Equal(t, "9999", port)
		if host == "127.0.0.1" {
			found = true
		}
	}
	assert.True(t, found, "loopback binding missing: %v", addrs)
}
