package service

import (
	"context"
	"fmt"
	"net/url"

	"garment-dashboard/internal/model"
	"garment-dashboard/internal/telemetry"

	"go.uber.org/zap"
)

// LoginPath is where unauthenticated navigation is sent
const LoginPath = "/login"

// DecisionKind is the outcome of a route authorization
type DecisionKind string

const (
	// DecisionPending means the role was not resolved; nothing may be rendered.
	DecisionPending         DecisionKind = "pending"
	DecisionAllow           DecisionKind = "allow"
	DecisionRedirect        DecisionKind = "redirect"
	DecisionUnauthenticated DecisionKind = "unauthenticated"
)

// Decision is the guard's answer for one navigation
type Decision struct {
	Kind     DecisionKind `json:"kind"`
	Path     string       `json:"path"`
	Target   string       `json:"target,omitempty"`
	ReturnTo string       `json:"return_to,omitempty"`
	Role     model.Role   `json:"role,omitempty"`
}

// LoginURL is the login location carrying the originally requested path.
func (d Decision) LoginURL() string {
	return LoginPath + "?from=" + url.QueryEscape(d.ReturnTo)
}

// roleLookup is the part of RoleResolver the guard uses.
type roleLookup interface {
	ResolveRole(ctx context.Context, principal *model.User) (model.Role, error)
}

// DefaultRoleHomes are the views each role lands on when sent away from a route.
func DefaultRoleHomes() map[model.Role]string {
	return map[model.Role]string{
		model.RoleAdmin:   "/dashboard/all-products",
		model.RoleManager: "/dashboard/manage-products",
		model.RoleBuyer:   "/dashboard/my-orders",
	}
}

// Guard decides whether a principal may render a dashboard route
type Guard struct {
	authz   *AuthorizationService
	roles   roleLookup
	homes   map[model.Role]string
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// NewGuard creates a guard. Every role must have a home it is itself allowed to view,
// otherwise redirects could loop.
func NewGuard(authz *AuthorizationService, roles roleLookup, homes map[model.Role]string, logger *zap.Logger, metrics *telemetry.Metrics) (*Guard, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, role := range allRoles {
		home, ok := homes[role]
		if !ok {
			return nil, fmt.Errorf("no home route for role %s", role)
		}
		allowed, err := authz.CanView(role, home)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("home route %s is not viewable by role %s", home, role)
		}
	}
	return &Guard{authz: authz, roles: roles, homes: homes, logger: logger, metrics: metrics}, nil
}

// Authorize decides the navigation of principal to path. A nil principal is
// unauthenticated. If ctx ends before the role is known the decision is pending.
func (g *Guard) Authorize(ctx context.Context, principal *model.User, path string) Decision {
	d := g.authorize(ctx, principal, normalizePath(path))
	if d.Kind != DecisionAllow {
		d.Path = path
	}
	g.metrics.GuardDecision(string(d.Kind))
	return d
}

func (g *Guard) authorize(ctx context.Context, principal *model.User, path string) Decision {
	if principal == nil {
		return Decision{Kind: DecisionUnauthenticated, Path: path, Target: LoginPath, ReturnTo: path}
	}

	role, err := g.roles.ResolveRole(ctx, principal)
	if err != nil {
		return Decision{Kind: DecisionPending, Path: path}
	}

	allowed, err := g.authz.CanView(role, path)
	if err != nil {
		g.logger.Error("route check failed", zap.String("path", path), zap.String("role", string(role)), zap.Error(err))
	}
	if allowed {
		return Decision{Kind: DecisionAllow, Path: path, Role: role}
	}
	return Decision{Kind: DecisionRedirect, Path: path, Target: g.homes[role], Role: role}
}

// Home returns the landing route of role.
func (g *Guard) Home(role model.Role) string {
	return g.homes[role]
}
