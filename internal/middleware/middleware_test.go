package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"garment-dashboard/internal/model"
	"garment-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// tokenTable treats every token as the id of a principal
type tokenTable map[string]*model.User

func (t tokenTable) ValidateToken(token string) (*model.User, error) {
	if u, ok := t[token]; ok {
		return u, nil
	}
	return nil, errors.New("invalid token")
}

type roleTable struct {
	roles map[string]model.Role
	err   error
}

func (r roleTable) ResolveRole(_ context.Context, principal *model.User) (model.Role, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.roles[principal.ID], nil
}

var (
	tokens = tokenTable{
		"t-admin":   {ID: "admin"},
		"t-manager": {ID: "manager"},
		"t-buyer":   {ID: "buyer"},
	}
	roles = roleTable{roles: map[string]model.Role{
		"admin":   model.RoleAdmin,
		"manager": model.RoleManager,
		"buyer":   model.RoleBuyer,
	}}
)

func newAuthz(t *testing.T) *service.AuthorizationService {
	t.Helper()
	authz, err := service.NewAuthorizationService(service.DashboardRoutes(), service.APIPermissions())
	require.NoError(t, err)
	return authz
}

func dashboardRouter(t *testing.T, resolver RoleResolver) *gin.Engine {
	t.Helper()
	guard, err := service.NewGuard(newAuthz(t), resolver, service.DefaultRoleHomes(), nil, nil)
	require.NoError(t, err)

	r := gin.New()
	r.Use(OptionalAuth(tokens), RouteGuard(guard))
	r.GET("/dashboard/*view", func(c *gin.Context) {
		role, _ := GetRoleFromContext(c)
		c.String(http.StatusOK, "view for "+string(role))
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouteGuard(t *testing.T) {
	r := dashboardRouter(t, roles)

	tests := []struct {
		name     string
		path     string
		token    string
		status   int
		location string
	}{
		{"admin views user management", "/dashboard/manage-users", "t-admin", http.StatusOK, ""},
		{"manager sent to own home", "/dashboard/manage-users", "t-manager", http.StatusSeeOther, "/dashboard/manage-products"},
		{"buyer sent to own home", "/dashboard/pending-orders", "t-buyer", http.StatusSeeOther, "/dashboard/my-orders"},
		{"anonymous sent to login", "/dashboard/all-orders", "", http.StatusSeeOther, "/login?from=%2Fdashboard%2Fall-orders"},
		{"bad token is anonymous", "/dashboard/my-orders", "forged", http.StatusSeeOther, "/login?from=%2Fdashboard%2Fmy-orders"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.path, tt.token)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
		})
	}
}

func TestRouteGuard_AllowedViewSeesRole(t *testing.T) {
	w := get(dashboardRouter(t, roles), "/dashboard/add-product", "t-manager")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "view for manager", w.Body.String())
}

func TestRouteGuard_UnresolvedRoleRendersNothing(t *testing.T) {
	r := dashboardRouter(t, roleTable{err: context.Canceled})

	w := get(r, "/dashboard/my-orders", "t-buyer")
	assert.Empty(t, w.Body.String())
	assert.Empty(t, w.Header().Get("Location"))
}

func TestRouteGuard_CookieToken(t *testing.T) {
	r := dashboardRouter(t, roles)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/all-products", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "t-admin"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func apiRouter(t *testing.T, resolver RoleResolver, perm service.Permission) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.Use(AuthMiddleware(tokens), RequirePermission(newAuthz(t), resolver, perm))
	r.GET("/api/thing", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name   string
		perm   service.Permission
		token  string
		status int
	}{
		{"no token", service.PermOrdersCreate, "", http.StatusUnauthorized},
		{"invalid token", service.PermOrdersCreate, "forged", http.StatusUnauthorized},
		{"buyer creates orders", service.PermOrdersCreate, "t-buyer", http.StatusNoContent},
		{"buyer cannot review", service.PermOrdersReview, "t-buyer", http.StatusForbidden},
		{"manager reviews", service.PermOrdersReview, "t-manager", http.StatusNoContent},
		{"manager cannot manage users", service.PermUsersManage, "t-manager", http.StatusForbidden},
		{"admin manages users", service.PermUsersManage, "t-admin", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(apiRouter(t, roles, tt.perm), "/api/thing", tt.token)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRequirePermission_ForbiddenNamesAction(t *testing.T) {
	w := get(apiRouter(t, roles, service.PermUsersManage), "/api/thing", "t-buyer")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Access denied","resource":"users","action":"manage"}`, w.Body.String())
}

func TestRequirePermission_AbandonedResolutionWritesNothing(t *testing.T) {
	w := get(apiRouter(t, roleTable{err: context.Canceled}, service.PermOrdersCreate), "/api/thing", "t-buyer")
	assert.Empty(t, w.Body.String())
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	r := gin.New()
	r.Use(AuthMiddleware(tokens))
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token t-admin")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger(zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))

	w = get(r, "/ping", "")
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}
