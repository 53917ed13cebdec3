package relay

import "strings"

// Method is an HTTP method used as a route table key.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodConnect Method = "CONNECT"
	MethodPatch   Method = "PATCH"
	MethodTrace   Method = "TRACE"

	// MethodUse is a registration marker meaning "every concrete method".
	// It is never a request method.
	MethodUse Method = "USE"
)

var concreteMethods = [...]Method{
	MethodGet,
	MethodPost,
	MethodPut,
	MethodDelete,
	MethodHead,
	MethodOptions,
	MethodConnect,
	MethodPatch,
	MethodTrace,
}

// Methods returns the concrete HTTP methods in declaration order.
// The USE marker is not included.
func Methods() []Method {
	out := make([]Method, len(concreteMethods))
	copy(out, concreteMethods[:])
	return out
}

// ParseMethod maps a request method string to a concrete Method.
// The lookup is case-insensitive. USE is rejected.
func ParseMethod(s string) (Method, bool) {
	m := Method(strings.ToUpper(s))
	for _, known := range concreteMethods {
		if m == known {
			return m, true
		}
	}
	return "", false
}

func (m Method) String() string {
	return string(m)
}
