package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func terminal(status int, body any) Middleware[*Exchange] {
	return MiddlewareFunc[*Exchange](func(ctx context.Context, ex *Exchange, next Next[*Exchange]) (*Exchange, error) {
		return ex, ex.JSON(status, body)
	})
}

func failWith(err error) Middleware[*Exchange] {
	return MiddlewareFunc[*Exchange](func(ctx context.Context, ex *Exchange, next Next[*Exchange]) (*Exchange, error) {
		return ex, err
	})
}

func serve(router *Router[*Exchange], req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewHandler(router, nil).ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandler(t *testing.T) {
	t.Parallel()

	router := New[*Exchange]()
	router.Get("/hello", terminal(http.StatusOK, map[string]string{"message": "Hello!"}))
	router.Get("/silent", MiddlewareFunc[*Exchange](func(ctx context.Context, ex *Exchange, next Next[*Exchange]) (*Exchange, error) {
		return next(ctx, ex)
	}))
	router.Get("/forbidden", failWith(Abort(http.StatusForbidden, "admins only")))
	router.Get("/wrapped", failWith(errors.Join(errors.New("context"), Abort(http.StatusConflict, ""))))
	router.Get("/internal", failWith(errors.New("database password is hunter2")))
	router.Post("/late-error", MiddlewareFunc[*Exchange](func(ctx context.Context, ex *Exchange, next Next[*Exchange]) (*Exchange, error) {
		_ = ex.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
		return ex, errors.New("after write")
	}))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   map[string]string
	}{
		{name: "match", method: "GET", path: "/hello", wantStatus: 200, wantBody: map[string]string{"message": "Hello!"}},
		{name: "no match", method: "GET", path: "/missing", wantStatus: 404, wantBody: map[string]string{"error": "not found"}},
		{name: "method isolation", method: "POST", path: "/hello", wantStatus: 404, wantBody: map[string]string{"error": "not found"}},
		{name: "unknown method", method: "PROPFIND", path: "/hello", wantStatus: 501, wantBody: map[string]string{"error": "method not implemented"}},
		{name: "nothing written", method: "GET", path: "/silent", wantStatus: 404, wantBody: map[string]string{"error": "not found"}},
		{name: "status error", method: "GET", path: "/forbidden", wantStatus: 403, wantBody: map[string]string{"error": "admins only"}},
		{name: "wrapped status error", method: "GET", path: "/wrapped", wantStatus: 409, wantBody: map[string]string{"error": "Conflict"}},
		{name: "internal error is not leaked", method: "GET", path: "/internal", wantStatus: 500, wantBody: map[string]string{"error": "Internal Server Error"}},
		{name: "error after response", method: "POST", path: "/late-error", wantStatus: 202, wantBody: map[string]string{"status": "accepted"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := serve(router, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantBody, decodeBody(t, rec))
		})
	}
}

func TestHandler_CORS(t *testing.T) {
	t.Parallel()

	handlerRan := false
	router := New[*Exchange]()
	router.Use("/*", CORS(DefaultCORSConfig()))
	router.Options("/api", MiddlewareFunc[*Exchange](func(ctx context.Context, ex *Exchange, next Next[*Exchange]) (*Exchange, error) {
		handlerRan = true
		return next(ctx, ex)
	}))
	router.Get("/api", terminal(http.StatusOK, map[string]string{"ok": "true"}))

	preflight := httptest.NewRequest(http.MethodOptions, "/api", nil)
	preflight.Header.Set("Origin", "https://example.com")
	preflight.Header.Set("Access-Control-Request-Method", "GET")

	rec := serve(router, preflight)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE, PATCH, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "300", rec.Header().Get("Access-Control-Max-Age"))
	assert.False(t, handlerRan, "preflight must end the chain")

	get := httptest.NewRequest(http.MethodGet, "/api", nil)
	get.Header.Set("Origin", "https://example.com")
	rec = serve(router, get)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_SpecificOrigin(t *testing.T) {
	t.Parallel()

	cfg := CORSConfig{
		AllowedOrigins:   []string{"https://app.example.com"},
		AllowCredentials: true,
	}
	router := New[*Exchange]()
	router.Use("/*", CORS(cfg))
	router.Get("/", terminal(http.StatusOK, map[string]string{}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := serve(router, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = serve(router, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	router := New[*Exchange]()
	router.Use("/*", RequestIDWithGenerator(func() string { return "generated-id" }))
	router.Get("/", MiddlewareFunc[*Exchange](func(ctx context.Context, ex *Exchange, next Next[*Exchange]) (*Exchange, error) {
		seen, _ = GetRequestID(ctx)
		return ex, ex.JSON(http.StatusOK, map[string]string{})
	}))

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "generated-id", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "generated-id", seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "incoming-id")
	rec = serve(router, req)
	assert.Equal(t, "incoming-id", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "incoming-id", seen)
}

func TestRequestID_DefaultGeneratesUUID(t *testing.T) {
	t.Parallel()

	router := New[*Exchange]()
	router.Use("/*", RequestID())

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestExchange(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	ex := NewExchange(rec, httptest.NewRequest("patch", "/items/1", nil))

	assert.Equal(t, MethodPatch, ex.Method())
	assert.Equal(t, "/items/1", ex.Path())
	assert.False(t, ex.Written())
	assert.Equal(t, 0, ex.Status())

	_, ok := ex.Get("missing")
	assert.False(t, ok)
	ex.Set("user", "alice")
	v, ok := ex.Get("user")
	assert.True(t, ok)
	assert.Equal(t, "alice", v)

	_, err := ex.Writer().Write([]byte("hi"))
	require.NoError(t, err)
	assert.True(t, ex.Written())
	assert.Equal(t, http.StatusOK, ex.Status())

	// A second WriteHeader is ignored.
	ex.Writer().WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusOK, ex.Status())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("plain")))
	assert.Equal(t, http.StatusTeapot, StatusCode(Abort(http.StatusTeapot, "")))
	assert.Equal(t, "I'm a teapot", Abort(http.StatusTeapot, "").Error())
}

func TestWithParams(t *testing.T) {
	t.Parallel()

	var seen []map[string]string
	capture := MiddlewareFunc[*Exchange](func(ctx context.Context, ex *Exchange, next Next[*Exchange]) (*Exchange, error) {
		seen = append(seen, ex.Params())
		return next(ctx, ex)
	})

	router := New[*Exchange]()
	router.Use("/*", WithParams("/*rest", capture))
	router.Get("/users/:id", WithParams("/users/:id", capture))
	router.Get("/users/{id}", WithParams("/users/{id}", MiddlewareFunc[*Exchange](func(ctx context.Context, ex *Exchange, next Next[*Exchange]) (*Exchange, error) {
		return ex, ex.JSON(http.StatusOK, map[string]string{"id": ex.Param("id"), "missing": ex.Param("nope")})
	})))

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/users/7", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"id": "7", "missing": ""}, decodeBody(t, rec))
	assert.Equal(t, []map[string]string{{"rest": "users/7"}, {"id": "7"}}, seen)
}

func TestExchange_Fork(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	parent := NewExchange(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	parent.Header().Set("X-Before", "1")
	parent.Set("user", "alice")

	child, release := parent.Fork()
	v, ok := child.Get("user")
	assert.True(t, ok)
	assert.Equal(t, "alice", v)
	assert.Equal(t, "1", child.Header().Get("X-Before"))

	child.Header().Set("X-Child", "1")
	child.Set("user", "bob")
	v, _ = parent.Get("user")
	assert.Equal(t, "alice", v, "values are copied, not shared")
	assert.Empty(t, parent.Header().Get("X-Child"))

	release()
	assert.ErrorIs(t, child.JSON(http.StatusOK, map[string]string{"late": "write"}), http.ErrHandlerTimeout)
	assert.False(t, parent.Written())

	require.NoError(t, parent.JSON(http.StatusGatewayTimeout, map[string]string{"error": "timeout"}))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Before"))
	assert.Empty(t, rec.Header().Get("X-Child"))
	assert.JSONEq(t, `{"error":"timeout"}`, rec.Body.String())
}

func TestExchange_ForkSharesWrittenState(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	parent := NewExchange(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	child, _ := parent.Fork()

	require.NoError(t, child.JSON(http.StatusCreated, map[string]string{}))
	assert.True(t, parent.Written())
	assert.Equal(t, http.StatusCreated, parent.Status())
}
