package ctrlembed

import (
	"context"
	"net/http"
)

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if token := r.Header.Get("token"); token != "" {
		return token
	}
	// older producers send the token in a "secret" header
	return r.Header.Get("secret")
}

// WithUser resolves the bearer token to a user row, or fails the request with
// a 401 before any state is touched.
func (c *Controller) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := c.DB.GetUserFromToken(tokenFromRequest(r))
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, "no user for token")
			return
		}
		withUser := context.WithValue(r.Context(), CtxUser, user)
		next.ServeHTTP(w, r.WithContext(withUser))
	})
}
