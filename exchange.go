package relay

import (
	"encoding/json"
	"maps"
	"net/http"
	"sync"
)

// Exchange is the request context used when serving HTTP. One Exchange is
// created per request and handed, as a pointer, from step to step.
type Exchange struct {
	writer  *responseWriter
	request *http.Request
	method  Method
	path    string

	mu     sync.RWMutex
	values map[string]any
	params map[string]string
}

var _ Forker[*Exchange] = (*Exchange)(nil)

// NewExchange wraps w and r.
func NewExchange(w http.ResponseWriter, r *http.Request) *Exchange {
	method, _ := ParseMethod(r.Method)
	return &Exchange{
		writer: &responseWriter{
			ResponseWriter: w,
			state:          &responseState{},
			header:         w.Header().Clone(),
		},
		request: r,
		method:  method,
		path:    r.URL.Path,
	}
}

// Fork returns a copy of e for work that may be abandoned, for example by a
// timeout. The copy starts with e's headers, values and params and writes to
// the same response. After release is called every write through the copy
// is dropped, so e can answer the request on its own.
func (e *Exchange) Fork() (*Exchange, func()) {
	e.mu.RLock()
	child := &Exchange{
		writer: &responseWriter{
			ResponseWriter: e.writer.ResponseWriter,
			state:          e.writer.state,
			header:         e.writer.header.Clone(),
		},
		request: e.request,
		method:  e.method,
		path:    e.path,
		values:  maps.Clone(e.values),
		params:  e.params,
	}
	e.mu.RUnlock()

	return child, child.writer.detach
}

// Request returns the current request.
func (e *Exchange) Request() *http.Request {
	return e.request
}

// SetRequest replaces the request, typically with r.WithContext(...).
func (e *Exchange) SetRequest(r *http.Request) {
	e.request = r
}

// Method returns the parsed request method, or "" when it is not one of
// Methods().
func (e *Exchange) Method() Method {
	return e.method
}

// Path returns the request path.
func (e *Exchange) Path() string {
	return e.path
}

// Param returns a parameter captured from the pattern of the step that is
// running (see WithParams). Missing names give "".
func (e *Exchange) Param(name string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.params[name]
}

// Params returns the parameters captured for the running step.
func (e *Exchange) Params() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.params)
}

func (e *Exchange) setParams(params map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = params
}

// Writer returns the response writer.
func (e *Exchange) Writer() http.ResponseWriter {
	return e.writer
}

// Header returns the response headers. They are sent when the response is
// started.
func (e *Exchange) Header() http.Header {
	return e.writer.Header()
}

// Status returns the response status, or 0 if nothing has been written.
func (e *Exchange) Status() int {
	e.writer.state.mu.Lock()
	defer e.writer.state.mu.Unlock()
	return e.writer.state.status
}

// Written reports whether a response has been started.
func (e *Exchange) Written() bool {
	e.writer.state.mu.Lock()
	defer e.writer.state.mu.Unlock()
	return e.writer.state.written
}

// Set stores a value for later middleware.
func (e *Exchange) Set(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.values == nil {
		e.values = make(map[string]any)
	}
	e.values[key] = value
}

// Get returns a value stored with Set.
func (e *Exchange) Get(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.values[key]
	return v, ok
}

// DecodeJSON decodes the request body into v.
func (e *Exchange) DecodeJSON(v any) error {
	return json.NewDecoder(e.request.Body).Decode(v)
}

// JSON writes data as a JSON response with the given status.
func (e *Exchange) JSON(statusCode int, data any) error {
	e.writer.Header().Set("Content-Type", "application/json")
	e.writer.WriteHeader(statusCode)
	return json.NewEncoder(e.writer).Encode(data)
}

// responseState is shared by every writer of one response.
type responseState struct {
	mu      sync.Mutex
	status  int
	written bool
}

// responseWriter tracks whether and with which status a response was
// written. Headers are kept per writer and copied out when the response
// starts. A detached writer drops everything.
type responseWriter struct {
	http.ResponseWriter
	state    *responseState
	header   http.Header
	detached bool // guarded by state.mu
}

var (
	_ http.ResponseWriter = (*responseWriter)(nil)
	_ http.Flusher        = (*responseWriter)(nil)
)

func (rw *responseWriter) Header() http.Header {
	return rw.header
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.state.mu.Lock()
	defer rw.state.mu.Unlock()
	if rw.detached {
		return
	}
	rw.writeHeaderLocked(status)
}

func (rw *responseWriter) writeHeaderLocked(status int) {
	if rw.state.written {
		return
	}
	dst := rw.ResponseWriter.Header()
	for k, v := range rw.header {
		dst[k] = v
	}
	rw.state.status = status
	rw.state.written = true
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.state.mu.Lock()
	defer rw.state.mu.Unlock()
	if rw.detached {
		return 0, http.ErrHandlerTimeout
	}
	rw.writeHeaderLocked(http.StatusOK)
	return rw.ResponseWriter.Write(b)
}

// Flush implements http.Flusher when the underlying writer supports it.
func (rw *responseWriter) Flush() {
	rw.state.mu.Lock()
	defer rw.state.mu.Unlock()
	if rw.detached {
		return
	}
	rw.writeHeaderLocked(http.StatusOK)
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseWriter) detach() {
	rw.state.mu.Lock()
	defer rw.state.mu.Unlock()
	rw.detached = true
}
