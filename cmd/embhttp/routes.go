package main

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/embhttp/internal/config"
	"github.com/vyrodovalexey/embhttp/internal/httpio"
	"github.com/vyrodovalexey/embhttp/internal/observability"
	"github.com/vyrodovalexey/embhttp/internal/router"
)

// registerRoutes wires the reference routes. Registration must complete
// before the server starts; the table is read-only afterwards.
func registerRoutes(rtr *router.Router, metrics *observability.Metrics, cfg *config.Config) {
	rtr.Get("/healthz", router.HandlerFunc(
		func(req *httpio.Request, rw *httpio.ResponseWriter, params router.Params) {
			_ = rw.WriteJSON(http.StatusOK, map[string]string{"status": "ok"})
		}))

	api := rtr.Group("/api")

	api.Get("/users/{id:int}", router.HandlerFunc(
		func(req *httpio.Request, rw *httpio.ResponseWriter, params router.Params) {
			_ = rw.WriteJSON(http.StatusOK, map[string]interface{}{
				"id": params.Int("id", 0),
			})
		}))

	api.Get("/assets/{ref:guid}", router.HandlerFunc(
		func(req *httpio.Request, rw *httpio.ResponseWriter, params router.Params) {
			ref := params.GUID("ref", uuid.Nil)
			_ = rw.WriteJSON(http.StatusOK, map[string]string{"ref": ref.String()})
		}))

	api.Get("/posts/{title:slug}", router.HandlerFunc(
		func(req *httpio.Request, rw *httpio.ResponseWriter, params router.Params) {
			_ = rw.WriteJSON(http.StatusOK, map[string]string{"title": params.Get("title")})
		}))

	rtr.Get("/echo/{rest:*}", router.HandlerFunc(
		func(req *httpio.Request, rw *httpio.ResponseWriter, params router.Params) {
			_ = rw.WriteText(http.StatusOK, []byte(params.Get("rest")), httpio.ContentTypeText)
		}))

	if cfg.Metrics.Enabled && metrics != nil {
		rtr.Get(cfg.Metrics.Path, metricsHandler(metrics))
	}
}

// metricsHandler renders the Prometheus text exposition.
func metricsHandler(metrics *observability.Metrics) router.Handler {
	return router.HandlerFunc(
		func(req *httpio.Request, rw *httpio.ResponseWriter, params router.Params) {
			out, err := metrics.Export()
			if err != nil {
				_ = rw.WriteText(http.StatusInternalServerError, []byte(err.Error()), httpio.ContentTypeText)
				return
			}
			_ = rw.WriteText(http.StatusOK, out, "text/plain; version=0.0.4; charset=utf-8")
		})
}
