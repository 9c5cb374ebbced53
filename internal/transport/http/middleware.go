package httptransport

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"stakepit/internal/logging"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
)

// APILogMiddleware emits one structured line per request into the
// logging sink, keyed by request id and chi route pattern.
func APILogMiddleware() func(http.Handler) http.Handler {
	logger := slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{}))
	return httplog.RequestLogger(logger, &httplog.Options{
		Level:              slog.LevelInfo,
		Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
		LogRequestBody:     func(*http.Request) bool { return false },
		LogResponseBody:    func(*http.Request) bool { return false },
		LogRequestHeaders:  []string{},
		LogResponseHeaders: []string{},
		LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
			return []slog.Attr{
				slog.String("request_id", chimw.GetReqID(req.Context())),
				slog.String("method", req.Method),
				slog.String("route", routePattern(req)),
				slog.String("path", req.URL.Path),
			}
		},
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// DebugBodyLog snapshots request and response bodies into the request
// log line, clipped at maxBytes each. For debug routes only; event
// streams pass through untouched.
func DebugBodyLog(maxBytes int) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = 4096
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
				next.ServeHTTP(w, r)
				return
			}

			// Buffer at most cap+1 request bytes; the handler still
			// reads the full body through the MultiReader.
			head, _ := io.ReadAll(io.LimitReader(r.Body, int64(maxBytes)+1))
			r.Body = replayBody{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}

			cw := &clipWriter{ResponseWriter: w, limit: maxBytes}
			next.ServeHTTP(cw, r)

			reqLog := head
			if len(reqLog) > maxBytes {
				reqLog = reqLog[:maxBytes]
			}
			httplog.SetAttrs(r.Context(), slog.Any("request_body", bodyAttr(reqLog)))
			httplog.SetAttrs(r.Context(), slog.Any("response_body", bodyAttr(cw.keep)))
			if len(head) > maxBytes || cw.over {
				httplog.SetAttrs(r.Context(), slog.Bool("body_truncated", true))
			}
		})
	}
}

type replayBody struct {
	io.Reader
	io.Closer
}

// clipWriter tees the first limit response bytes while passing
// everything through to the client.
type clipWriter struct {
	http.ResponseWriter
	keep  []byte
	limit int
	over  bool
}

func (c *clipWriter) Write(p []byte) (int, error) {
	switch room := c.limit - len(c.keep); {
	case room >= len(p):
		c.keep = append(c.keep, p...)
	case room > 0:
		c.keep = append(c.keep, p[:room]...)
		c.over = true
	case len(p) > 0:
		c.over = true
	}
	return c.ResponseWriter.Write(p)
}

// bodyAttr keeps valid JSON structured in the log line; anything else
// is logged as a string.
func bodyAttr(b []byte) any {
	if len(b) == 0 {
		return ""
	}
	if json.Valid(b) {
		return json.RawMessage(bytes.Clone(b))
	}
	return string(b)
}

func WriteHTTPError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}

// AdminAuthMiddleware gates settlement remediation endpoints. With no
// admin key configured the gate stays open, which keeps single-user
// deployments simple.
func AdminAuthMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey != "" && !adminKeyMatches(r, adminKey) {
				WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// adminKeyMatches accepts the key as X-Admin-Key or as a bearer token.
func adminKeyMatches(r *http.Request, key string) bool {
	if r.Header.Get("X-Admin-Key") == key {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && token == key
}

// ParsePagination reads limit/offset query params with the listing
// defaults: limit 50 clamped to [1, 500], offset at least 0.
func ParsePagination(r *http.Request) (limit, offset int) {
	limit = queryInt(r, "limit", 50)
	offset = queryInt(r, "offset", 0)
	if limit < 1 {
		limit = 1
	} else if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
