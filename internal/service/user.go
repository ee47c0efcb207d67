package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"garment-dashboard/internal/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService is the user directory
type UserService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, changedBy string, id string, req *UpdateUserRequest) (*model.User, error)
	ValidatePassword(ctx context.Context, email, password string) (*model.User, error)
	ListUsers(ctx context.Context, filters UserFilters) ([]model.User, error)
	GetAuditLog(ctx context.Context, from, to time.Time) ([]model.RoleChange, error)
}

// CreateUserRequest is a user creation request
type CreateUserRequest struct {
	Email       string           `json:"email" binding:"required,email"`
	Password    string           `json:"password" binding:"required,min=6"`
	DisplayName string           `json:"display_name" binding:"required"`
	PhotoURL    string           `json:"photo_url"`
	Role        model.Role       `json:"role"`
	Status      model.UserStatus `json:"status"`
}

// UpdateUserRequest changes a user's role, status or profile. Nil fields are kept.
type UpdateUserRequest struct {
	Role        *model.Role       `json:"role,omitempty"`
	Status      *model.UserStatus `json:"status,omitempty"`
	DisplayName *string           `json:"display_name,omitempty"`
	PhotoURL    *string           `json:"photo_url,omitempty"`
	Reason      string            `json:"reason,omitempty"`
}

// UserFilters restricts ListUsers
type UserFilters struct {
	Role   model.Role
	Status model.UserStatus
	Email  string
}

// roleInvalidator drops cached roles after a directory change
type roleInvalidator interface {
	Invalidate(ctx context.Context, principalID string) error
}

type userServiceImpl struct {
	db    *gorm.DB
	roles roleInvalidator
}

// NewUserService creates the gorm-backed user directory. roles may be nil.
func NewUserService(db *gorm.DB, roles roleInvalidator) UserService {
	return &userServiceImpl{db: db, roles: roles}
}

// CreateUser stores a new user with a bcrypt hashed password
func (s *userServiceImpl) CreateUser(ctx context.Context, req *CreateUserRequest) (*model.User, error) {
	email := normalizeEmail(req.Email)
	role := req.Role
	if role == "" {
		role = model.RoleBuyer
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidUserUpdate, role)
	}
	status := req.Status
	if status == "" {
		status = model.UserStatusActive
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidUserUpdate, status)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:          uuid.New().String(),
		Email:       email,
		DisplayName: req.DisplayName,
		Password:    hashedPassword,
		PhotoURL:    req.PhotoURL,
		Role:        role,
		Status:      status,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.Password = ""
	return user, nil
}

// GetUserByID returns a user without its password hash
func (s *userServiceImpl) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.find(ctx, "id = ?", id)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// GetUserByEmail returns a user without its password hash
func (s *userServiceImpl) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.find(ctx, "email = ?", normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// ValidatePassword checks a login and returns the user on success
func (s *userServiceImpl) ValidatePassword(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.find(ctx, "email = ?", normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user.Password = ""
	return user, nil
}

// UpdateUser applies an admin change. Role and status changes are written to the
// audit log in the same transaction and drop the user's cached role.
func (s *userServiceImpl) UpdateUser(ctx context.Context, changedBy string, id string, req *UpdateUserRequest) (*model.User, error) {
	if req.Role != nil && !req.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidUserUpdate, *req.Role)
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidUserUpdate, *req.Status)
	}

	var user model.User
	var audited bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrUserNotFound, id)
			}
			return fmt.Errorf("failed to get user: %w", err)
		}

		change := model.RoleChange{
			ID:           uuid.New().String(),
			UserID:       user.ID,
			BeforeRole:   user.Role,
			AfterRole:    user.Role,
			BeforeStatus: user.Status,
			AfterStatus:  user.Status,
			ChangedBy:    changedBy,
			Reason:       req.Reason,
		}

		if req.Role != nil {
			user.Role = *req.Role
			change.AfterRole = user.Role
		}
		if req.Status != nil {
			user.Status = *req.Status
			change.AfterStatus = user.Status
		}
		if req.DisplayName != nil {
			user.DisplayName = *req.DisplayName
		}
		if req.PhotoURL != nil {
			user.PhotoURL = *req.PhotoURL
		}

		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		if change.BeforeRole != change.AfterRole || change.BeforeStatus != change.AfterStatus {
			if err := tx.Create(&change).Error; err != nil {
				return fmt.Errorf("failed to log role change: %w", err)
			}
			audited = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if audited && s.roles != nil {
		if err := s.roles.Invalidate(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to invalidate cached role: %w", err)
		}
	}

	user.Password = ""
	return &user, nil
}

// ListUsers lists users matching filters, oldest first
func (s *userServiceImpl) ListUsers(ctx context.Context, filters UserFilters) ([]model.User, error) {
	query := s.db.WithContext(ctx).Model(&model.User{})

	if filters.Role != "" {
		query = query.Where("role = ?", filters.Role)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Email != "" {
		query = query.Where("email LIKE ?", "%"+normalizeEmail(filters.Email)+"%")
	}

	var users []model.User
	if err := query.Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

// GetAuditLog returns role changes recorded between from and to, newest first
func (s *userServiceImpl) GetAuditLog(ctx context.Context, from, to time.Time) ([]model.RoleChange, error) {
	var changes []model.RoleChange
	if err := s.db.WithContext(ctx).
		Where("changed_at BETWEEN ? AND ?", from, to).
		Order("changed_at DESC").
		Find(&changes).Error; err != nil {
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	return changes, nil
}

func (s *userServiceImpl) find(ctx context.Context, query string, arg string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, arg)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UserDirectory answers role lookups from the users table
type UserDirectory struct {
	db *gorm.DB
}

// NewUserDirectory creates the directory consulted by the role resolver
func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

// LookupByEmail returns the role and status registered for email
func (d *UserDirectory) LookupByEmail(ctx context.Context, email string) (*DirectoryEntry, error) {
	var user model.User
	err := d.db.WithContext(ctx).
		Select("role", "status").
		Where("email = ?", normalizeEmail(email)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("directory lookup failed: %w", err)
	}
	return &DirectoryEntry{Role: user.Role, Status: user.Status}, nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
