package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"garment-dashboard/internal/model"
	"garment-dashboard/internal/service"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for a missing, malformed, expired or forged token
	ErrInvalidToken = errors.New("invalid token")

	// ErrRoleNotSelfAssignable is returned when registration asks for the admin role
	ErrRoleNotSelfAssignable = errors.New("role cannot be chosen at registration")
)

// DefaultTokenTTL is the lifetime of an access token
const DefaultTokenTTL = 24 * time.Hour

// Service issues and validates access tokens
type Service struct {
	users  service.UserService
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates the auth service. A non-positive ttl selects DefaultTokenTTL.
func NewService(users service.UserService, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Register creates a user and signs them in. Buyers are active immediately; managers
// wait as pending until an admin activates them.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.LoginResponse, error) {
	role, status := req.Role, model.UserStatusActive
	switch role {
	case "", model.RoleBuyer:
		role = model.RoleBuyer
	case model.RoleManager:
		status = model.UserStatusPending
	default:
		return nil, fmt.Errorf("%w: %s", ErrRoleNotSelfAssignable, role)
	}

	user, err := s.users.CreateUser(ctx, &service.CreateUserRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
		Role:        role,
		Status:      status,
	})
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login checks the credentials and issues a token
func (s *Service) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	user, err := s.users.ValidatePassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// ValidateToken parses a token into the request principal. The principal carries no
// role; it is resolved per request.
func (s *Service) ValidateToken(tokenString string) (*model.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return &model.User{
		ID:          claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Status:      claims.Status,
	}, nil
}

func (s *Service) issue(user *model.User) (*model.LoginResponse, error) {
	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	resp := *user
	resp.Password = ""
	return &model.LoginResponse{Token: token, User: resp}, nil
}

func (s *Service) generateJWT(user *model.User) (string, error) {
	now := s.now()
	claims := &model.JWTClaims{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Status:      user.Status,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
