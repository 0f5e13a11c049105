package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

// routePattern returns the chi route pattern r is dispatched to (e.g.
// "/statements/{handle}"). Router-level middleware such as basicAuth
// runs before chi has routed the request, so when no pattern has been
// recorded yet it is looked up by matching r against the route table.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
		if rc.Routes != nil {
			tctx := chi.NewRouteContext()
			if rc.Routes.Match(tctx, r.Method, r.URL.Path) {
				return tctx.RoutePattern()
			}
		}
	}
	return r.URL.Path
}

type principalKey struct{}

// principalFromContext returns the authenticated username, or "" for an
// anonymous request let through by AllowAnonymousReads.
func principalFromContext(ctx context.Context) string {
	p, _ := ctx.Value(principalKey{}).(string)
	return p
}

// isAnonymousReadRoute reports whether (method, pattern) is one of the
// only routes a request with no credentials may reach when
// AllowAnonymousReads is set.
func isAnonymousReadRoute(method, pattern string) bool {
	if method != http.MethodGet {
		return false
	}
	return pattern == "/statements" || pattern == "/statements/{handle}"
}

// basicAuth builds the Basic Auth gate: 401 + WWW-Authenticate on
// missing/bad credentials. credentials maps username to a bcrypt
// hash of the password. allowAnonymousReads lets a subset of read
// routes through without credentials at all.
func basicAuth(credentials map[string]string, allowAnonymousReads bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok {
				if allowAnonymousReads && isAnonymousReadRoute(r.Method, routePattern(r)) {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w)
				return
			}

			hash, known := credentials[user]
			if !known || bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="triplestore"`)
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
}
