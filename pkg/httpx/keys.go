package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
)

// KeyFunc names the bucket a request is charged to. An empty key exempts the
// request.
type KeyFunc func(*http.Request) string

// ClientIP keys on the first X-Forwarded-For hop, then X-Real-IP, then the
// peer address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Principal keys on the authenticated principal, empty for anonymous
// requests.
func Principal(r *http.Request) string {
	return PrincipalFromContext(r.Context())
}

// BodyField keys on a top-level string field of a JSON body, lowercased and
// trimmed. The body is put back for the handler.
func BodyField(name string) KeyFunc {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err != nil {
			return ""
		}

		var doc map[string]json.RawMessage
		if json.Unmarshal(raw, &doc) != nil {
			return ""
		}
		var v string
		if json.Unmarshal(doc[name], &v) != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(v))
	}
}

// Join concatenates the non-empty keys of fns with ":".
func Join(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if k := fn(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, ":")
	}
}
