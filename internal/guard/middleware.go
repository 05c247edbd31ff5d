package guard

import "net/http"

// Middleware adapts a guard into chi middleware. Allow passes through to the
// next handler; a deny becomes an HTTP redirect carrying the guard's query
// parameters, mirroring the router redirect a SPA would perform.
func Middleware(g Guard, access RouteAccess) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := Route{RequestedPath: r.URL.Path, Access: access}
			decision := g(r.Context(), route)
			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			target := decision.Path
			if len(decision.Query) > 0 {
				target += "?" + decision.Query.Encode()
			}
			http.Redirect(w, r, target, http.StatusFound)
		})
	}
}
