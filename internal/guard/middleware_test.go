package guard

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"warden/pkg/domain"
)

func TestMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allow passes through", func(t *testing.T) {
		e := NewEvaluator(newFakeState(true))
		handler := Middleware(e.RequireAuth, RouteAccess{})(okHandler)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("deny redirects with the guard's query", func(t *testing.T) {
		e := NewEvaluator(newFakeState(false))
		handler := Middleware(e.RequireAuth, RouteAccess{})(okHandler)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		assert.Equal(t, http.StatusFound, rr.Code)

		loc, err := url.Parse(rr.Header().Get("Location"))
		assert.NoError(t, err)
		assert.Equal(t, PathLogin, loc.Path)
		assert.Equal(t, "/dashboard", loc.Query().Get("returnUrl"))
	})

	t.Run("route access reaches the guard", func(t *testing.T) {
		state := newFakeState(true)
		state.roles = []domain.Role{domain.RoleUser}
		e := NewEvaluator(state)

		handler := Middleware(e.RequireRoles, RouteAccess{
			Roles: []domain.Role{domain.RoleAdmin},
		})(okHandler)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))
		assert.Equal(t, http.StatusFound, rr.Code)

		loc, err := url.Parse(rr.Header().Get("Location"))
		assert.NoError(t, err)
		assert.Equal(t, PathUnauthorized, loc.Path)
	})
}
