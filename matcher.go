package relay

import "strings"

// IsMatch reports whether path matches pattern.
//
// Patterns are split into "/"-separated segments (empty segments are
// ignored, so "/users/" and "/users" are equivalent):
//
//	/users          literal, exact and case-sensitive
//	/users/:id      ":name" captures exactly one segment
//	/users/{id}     "{name}" is the same as ":name"
//	/static/*       a final "*" or "*name" matches zero or more segments
//	/a/*/c          a "*" anywhere else matches exactly one segment
//
// A malformed pattern never matches.
func IsMatch(pattern, path string) bool {
	_, ok := match(pattern, path, false)
	return ok
}

// MatchParams is IsMatch plus the captured parameters. A trailing wildcard
// captures the remaining segments joined by "/" under its name, or under "*"
// when unnamed.
func MatchParams(pattern, path string) (map[string]string, bool) {
	return match(pattern, path, true)
}

func match(pattern, path string, capture bool) (map[string]string, bool) {
	if !strings.HasPrefix(pattern, "/") || !strings.HasPrefix(path, "/") {
		return nil, false
	}

	pSegs := segments(pattern)
	rSegs := segments(path)

	var params map[string]string
	set := func(name, value string) {
		if !capture {
			return
		}
		if params == nil {
			params = make(map[string]string)
		}
		params[name] = value
	}

	for i, seg := range pSegs {
		last := i == len(pSegs)-1

		if seg[0] == '*' {
			if last {
				name := seg[1:]
				if name == "" {
					name = "*"
				}
				rest := ""
				if i < len(rSegs) {
					rest = strings.Join(rSegs[i:], "/")
				}
				set(name, rest)
				return params, true
			}
			if i >= len(rSegs) {
				return nil, false
			}
			continue
		}

		name, isParam, ok := paramName(seg)
		if !ok {
			return nil, false
		}
		if i >= len(rSegs) {
			return nil, false
		}
		if isParam {
			set(name, rSegs[i])
			continue
		}
		if seg != rSegs[i] {
			return nil, false
		}
	}

	if len(pSegs) != len(rSegs) {
		return nil, false
	}
	return params, true
}

// paramName classifies a pattern segment. ok is false for malformed
// parameter syntax such as ":" or "{id".
func paramName(seg string) (name string, isParam bool, ok bool) {
	switch seg[0] {
	case ':':
		if len(seg) == 1 {
			return "", false, false
		}
		return seg[1:], true, true
	case '{':
		if len(seg) < 3 || seg[len(seg)-1] != '}' {
			return "", false, false
		}
		return seg[1 : len(seg)-1], true, true
	}
	return "", false, true
}

func segments(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
