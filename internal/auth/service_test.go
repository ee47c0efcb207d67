package auth

import (
	"context"
	"testing"
	"time"

	"garment-dashboard/internal/model"
	"garment-dashboard/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUsers implements the parts of the user directory the auth service calls.
type fakeUsers struct {
	service.UserService
	created  []*service.CreateUserRequest
	loginErr error
	user     *model.User
}

func (f *fakeUsers) CreateUser(_ context.Context, req *service.CreateUserRequest) (*model.User, error) {
	f.created = append(f.created, req)
	return &model.User{
		ID:          "u-new",
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    "$2a$hash",
		Role:        req.Role,
		Status:      req.Status,
	}, nil
}

func (f *fakeUsers) ValidatePassword(context.Context, string, string) (*model.User, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.user, nil
}

func newTestService(users service.UserService, now time.Time) *Service {
	s := NewService(users, "test-secret", time.Hour)
	s.now = func() time.Time { return now }
	return s
}

func TestRegister_RolesAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		role   model.Role
		want   model.Role
		status model.UserStatus
	}{
		{"default is buyer", "", model.RoleBuyer, model.UserStatusActive},
		{"buyer", model.RoleBuyer, model.RoleBuyer, model.UserStatusActive},
		{"manager waits for approval", model.RoleManager, model.RoleManager, model.UserStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &fakeUsers{}
			resp, err := newTestService(users, time.Now()).Register(context.Background(), &model.RegisterRequest{
				Email:       "new@garments.test",
				Password:    "password123",
				DisplayName: "New User",
				Role:        tt.role,
			})
			require.NoError(t, err)
			require.Len(t, users.created, 1)
			assert.Equal(t, tt.want, users.created[0].Role)
			assert.Equal(t, tt.status, users.created[0].Status)
			assert.NotEmpty(t, resp.Token)
			assert.Empty(t, resp.User.Password)
		})
	}
}

func TestRegister_AdminIsNotSelfAssignable(t *testing.T) {
	users := &fakeUsers{}
	_, err := newTestService(users, time.Now()).Register(context.Background(), &model.RegisterRequest{
		Email: "root@garments.test", Password: "password123", DisplayName: "Root", Role: model.RoleAdmin,
	})
	assert.ErrorIs(t, err, ErrRoleNotSelfAssignable)
	assert.Empty(t, users.created)
}

func TestLogin_TokenRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	users := &fakeUsers{user: &model.User{
		ID:          "u-1",
		Email:       "buyer@garments.test",
		DisplayName: "Buyer",
		Role:        model.RoleAdmin,
		Status:      model.UserStatusActive,
	}}
	s := newTestService(users, now)

	resp, err := s.Login(context.Background(), "buyer@garments.test", "password123")
	require.NoError(t, err)

	principal, err := s.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", principal.ID)
	assert.Equal(t, "buyer@garments.test", principal.Email)
	assert.Equal(t, model.UserStatusActive, principal.Status)
	assert.Empty(t, principal.Role, "the role is never taken from the token")
}

func TestLogin_PropagatesCredentialError(t *testing.T) {
	s := newTestService(&fakeUsers{loginErr: service.ErrInvalidCredentials}, time.Now())

	_, err := s.Login(context.Background(), "buyer@garments.test", "wrong")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestValidateToken_Rejects(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	users := &fakeUsers{user: &model.User{ID: "u-1", Email: "buyer@garments.test"}}
	resp, err := newTestService(users, now).Login(context.Background(), "", "")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		_, err := newTestService(users, now.Add(2*time.Hour)).ValidateToken(resp.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewService(users, "another-secret", time.Hour)
		other.now = func() time.Time { return now }
		_, err := other.ValidateToken(resp.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &model.JWTClaims{UserID: "u-1"})
		raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = newTestService(users, now).ValidateToken(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := newTestService(users, now).ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
