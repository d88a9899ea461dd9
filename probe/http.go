package probe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/shadowq/dom"
	"github.com/hazyhaar/shadowq/idgen"
	"github.com/hazyhaar/shadowq/kit"
	"github.com/hazyhaar/shadowq/render"
	"github.com/hazyhaar/shadowq/shadowsel"
)

var newRequestID = idgen.Prefixed("req_", idgen.Default)

// maxRequestBody bounds JSON request bodies. Inline sources count against it.
const maxRequestBody = 8 << 20

// Handler returns the HTTP API.
//
//	POST   /query              Request -> Response
//	POST   /snapshots          CaptureRequest -> Snapshot
//	GET    /snapshots          ?url=&limit= -> {snapshots, count}
//	GET    /snapshots/{id}     Snapshot with HTML
//	GET    /snapshots/{id}/html  the stored page as text/html
//	DELETE /snapshots/{id}
//	GET    /healthz
func (s *Service) Handler() http.Handler {
	query := s.queryEndpoint()
	capture := s.captureEndpoint()
	list := s.listEndpoint()
	del := s.deleteEndpoint()

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(apiHeaders)
	r.Use(s.requestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/query", func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := query(r.Context(), &req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Route("/snapshots", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var req CaptureRequest
			if !decodeBody(w, r, &req) {
				return
			}
			snap, err := capture(r.Context(), &req)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, snap)
		})

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			req := &ListRequest{URL: r.URL.Query().Get("url"), Limit: queryInt(r, "limit", 0)}
			resp, err := list(r.Context(), req)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, resp)
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			snap, err := s.Snapshot(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, snap)
		})

		r.Get("/{id}/html", func(w http.ResponseWriter, r *http.Request) {
			snap, err := s.Snapshot(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, err)
				return
			}
			// Served as an attachment: the page's scripts must not run on our origin.
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Content-Disposition", `attachment; filename="`+snap.ID+`.html"`)
			w.Write([]byte(snap.HTML))
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			if _, err := del(r.Context(), &deleteReq{ID: chi.URLParam(r, "id")}); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	return r
}

// requestID tags every request with an ID, echoed in X-Request-ID, and
// marks the transport for the endpoint middleware.
func (s *Service) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 64 {
			id = newRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithRequestID(kit.WithTransport(r.Context(), "http"), id)
		s.logger.Debug("probe: request", "request_id", id, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func apiHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// statusOf maps service errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, shadowsel.ErrSyntax),
		errors.Is(err, dom.ErrInvalidSelector),
		errors.Is(err, render.ErrUnknownFormat),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
