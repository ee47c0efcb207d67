package service

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"garment-dashboard/internal/model"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

const actionView = "view"

// Permission is an API action checked by RequirePermission
type Permission struct {
	Resource string
	Action   string
}

var (
	PermOrdersCreate   = Permission{"orders", "create"}
	PermOrdersReview   = Permission{"orders", "review"}
	PermOrdersAdvance  = Permission{"orders", "advance"}
	PermOrdersReadAll  = Permission{"orders", "read_all"}
	PermProductsManage = Permission{"products", "manage"}
	PermUsersManage    = Permission{"users", "manage"}
)

var allRoles = []model.Role{model.RoleBuyer, model.RoleManager, model.RoleAdmin}
var staffRoles = []model.Role{model.RoleManager, model.RoleAdmin}

// RouteRule maps a route pattern to the roles allowed to view it. An Exact rule only
// matches the pattern itself, not paths below it.
type RouteRule struct {
	Pattern string
	Roles   []model.Role
	Exact   bool
}

// DashboardRoutes is the route policy of the dashboard.
func DashboardRoutes() []RouteRule {
	return []RouteRule{
		{Pattern: "/dashboard", Roles: allRoles, Exact: true},
		{Pattern: "/dashboard/profile", Roles: allRoles},
		{Pattern: "/dashboard/track-order", Roles: allRoles},
		{Pattern: "/dashboard/my-orders", Roles: allRoles},
		{Pattern: "/dashboard/add-product", Roles: staffRoles},
		{Pattern: "/dashboard/manage-products", Roles: staffRoles},
		{Pattern: "/dashboard/pending-orders", Roles: staffRoles},
		{Pattern: "/dashboard/approved-orders", Roles: staffRoles},
		{Pattern: "/dashboard/manage-users", Roles: []model.Role{model.RoleAdmin}},
		{Pattern: "/dashboard/all-products", Roles: []model.Role{model.RoleAdmin}},
		{Pattern: "/dashboard/all-orders", Roles: []model.Role{model.RoleAdmin}},
	}
}

// APIPermissions is the action table of the REST API.
func APIPermissions() map[Permission][]model.Role {
	return map[Permission][]model.Role{
		PermOrdersCreate:   allRoles,
		PermOrdersReview:   staffRoles,
		PermOrdersAdvance:  staffRoles,
		PermOrdersReadAll:  staffRoles,
		PermProductsManage: staffRoles,
		PermUsersManage:    {model.RoleAdmin},
	}
}

// AuthorizationService answers role questions for routes and API actions. Its policy
// is loaded once and never changes afterwards.
type AuthorizationService struct {
	enforcer *casbin.Enforcer
	routes   []RouteRule
}

// NewAuthorizationService builds the enforcer from the route and action tables
func NewAuthorizationService(routes []RouteRule, perms map[Permission][]model.Role) (*AuthorizationService, error) {
	m, err := casbinmodel.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load RBAC model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RBAC enforcer: %w", err)
	}

	for _, rule := range routes {
		if !strings.HasPrefix(rule.Pattern, "/") {
			return nil, fmt.Errorf("route pattern %q must start with /", rule.Pattern)
		}
		for _, role := range rule.Roles {
			if _, err := enforcer.AddPolicy(string(role), rule.Pattern, actionView); err != nil {
				return nil, fmt.Errorf("failed to add route policy %s: %w", rule.Pattern, err)
			}
		}
	}
	for perm, roles := range perms {
		for _, role := range roles {
			if _, err := enforcer.AddPolicy(string(role), perm.Resource, perm.Action); err != nil {
				return nil, fmt.Errorf("failed to add permission %s:%s: %w", perm.Resource, perm.Action, err)
			}
		}
	}

	routes = slices.Clone(routes)
	// Longest pattern first so the first match is the longest prefix.
	slices.SortStableFunc(routes, func(a, b RouteRule) int {
		return len(b.Pattern) - len(a.Pattern)
	})

	return &AuthorizationService{enforcer: enforcer, routes: routes}, nil
}

// MatchRoute returns the rule governing path, if any.
func (s *AuthorizationService) MatchRoute(path string) (RouteRule, bool) {
	path = normalizePath(path)
	for _, rule := range s.routes {
		if path == rule.Pattern {
			return rule, true
		}
		if !rule.Exact && strings.HasPrefix(path, rule.Pattern+"/") {
			return rule, true
		}
	}
	return RouteRule{}, false
}

// RequiredRoles returns the roles allowed to view path. Empty means unrestricted.
func (s *AuthorizationService) RequiredRoles(path string) []model.Role {
	rule, ok := s.MatchRoute(path)
	if !ok {
		return nil
	}
	return slices.Clone(rule.Roles)
}

// CanView reports whether role may view path.
func (s *AuthorizationService) CanView(role model.Role, path string) (bool, error) {
	rule, ok := s.MatchRoute(path)
	if !ok || len(rule.Roles) == 0 {
		return true, nil
	}
	allowed, err := s.enforcer.Enforce(string(role), rule.Pattern, actionView)
	if err != nil {
		return false, fmt.Errorf("route permission check failed: %w", err)
	}
	return allowed, nil
}

// CheckPermission reports whether role may perform perm.
func (s *AuthorizationService) CheckPermission(role model.Role, perm Permission) (bool, error) {
	allowed, err := s.enforcer.Enforce(string(role), perm.Resource, perm.Action)
	if err != nil {
		return false, fmt.Errorf("RBAC permission check failed: %w", err)
	}
	return allowed, nil
}

func normalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	// Collapse "//", "." and ".." so a rule cannot be sidestepped by spelling
	// the same route differently.
	return path.Clean("/" + p)
}
