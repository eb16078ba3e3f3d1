package auth

import (
	"net/http"
	"strings"
)

// SessionCookie is the cookie that carries a session token
const SessionCookie = "session"

// TokenFromRequest returns the session token carried by r. A Bearer
// Authorization header wins over the session cookie, which wins over a
// token query parameter. The query form serves EventSource and browser
// websocket clients that cannot set headers.
func TokenFromRequest(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
