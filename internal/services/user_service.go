package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/localnerve/bizflow/internal/models"
	"github.com/localnerve/bizflow/internal/types"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const minPasswordLength = 8

// RegisterInput creates a client account
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// CreateUserInput creates any account; admin only
type CreateUserInput struct {
	RegisterInput
	Role models.Role `json:"role"`
}

// ProfileInput updates the caller's own profile; nil fields are left alone
type ProfileInput struct {
	Name     *string              `json:"name"`
	Phone    *string              `json:"phone"`
	Settings *models.UserSettings `json:"settings"`
}

// PasswordInput changes the caller's password
type PasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AuthResult is returned by register and login
type AuthResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expiresAt"`
}

// UserService manages accounts and credentials
type UserService struct {
	db     *gorm.DB
	tokens *TokenService
	log    zerolog.Logger
	cost   int
}

// NewUserService creates the account service
func NewUserService(db *gorm.DB, tokens *TokenService, log zerolog.Logger) *UserService {
	return &UserService{db: db, tokens: tokens, log: log, cost: bcrypt.DefaultCost}
}

// WithHashCost sets the bcrypt cost; tests use bcrypt.MinCost
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

func validateAccount(in RegisterInput) (RegisterInput, error) {
	fields := map[string]string{}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)

	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email == "" {
		fields["email"] = "must be a valid email address"
	}
	if len(in.Password) < minPasswordLength {
		fields["password"] = "must be at least 8 characters"
	}
	if in.Name == "" {
		fields["name"] = "required"
	}
	if len(fields) > 0 {
		return in, types.Validation("validation.user", "Invalid account details", fields)
	}
	return in, nil
}

func (s *UserService) create(ctx context.Context, in RegisterInput, role models.Role) (*models.User, error) {
	in, err := validateAccount(in)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, types.Internal("check email", err)
	}
	if count > 0 {
		return nil, types.Conflict("user.exists", "An account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, types.Internal("hash password", err)
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		Name:         in.Name,
		Phone:        in.Phone,
		Role:         role,
		Settings: datatypes.NewJSONType(models.UserSettings{
			EmailNotifications: true,
			Language:           "en",
		}),
	}
	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, types.Conflict("user.exists", "An account with this email already exists")
		}
		return nil, types.Internal("create user", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("account created")
	return user, nil
}

func (s *UserService) issue(user *models.User) (*AuthResult, error) {
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, types.Internal("issue token", err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expires.Unix()}, nil
}

// Register creates a client account and signs it in
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	user, err := s.create(ctx, in, models.RoleClient)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login checks credentials and issues a token
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, types.Validation("validation.credentials", "Email and password are required",
			map[string]string{"email": "required", "password": "required"})
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.Unauthorized("Invalid email or password")
		}
		return nil, types.Internal("load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, types.Unauthorized("Invalid email or password")
	}
	return s.issue(&user)
}

// Get loads one user
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, types.NotFound("User not found")
	}
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("User not found")
		}
		return nil, types.Internal("load user", err)
	}
	return &user, nil
}

// List returns users for admins, optionally filtered by role
func (s *UserService) List(ctx context.Context, caller Identity, role string, page Page) (*PageResult[models.User], error) {
	if !caller.IsAdmin() {
		return nil, types.Forbidden("Only admins can list users")
	}
	if role != "" && !models.Role(role).Valid() {
		return nil, types.Validation("validation.filter", "Invalid filter", map[string]string{"role": "unknown role"})
	}

	page = page.normalize()
	q := s.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}

	out := &PageResult[models.User]{Items: make([]models.User, 0), Page: page.Page, Limit: page.Limit}
	if err := q.Session(&gorm.Session{}).Count(&out.Total).Error; err != nil {
		return nil, types.Internal("count users", err)
	}
	if err := q.Session(&gorm.Session{}).Order("created_at DESC").Scopes(paginate(page)).Find(&out.Items).Error; err != nil {
		return nil, types.Internal("list users", err)
	}
	return out, nil
}

// CreateUser lets an admin create employees, admins or clients
func (s *UserService) CreateUser(ctx context.Context, caller Identity, in CreateUserInput) (*models.User, error) {
	if !caller.IsAdmin() {
		return nil, types.Forbidden("Only admins can create users")
	}
	if !in.Role.Valid() {
		return nil, types.Validation("validation.role", "Unknown role",
			map[string]string{"role": "must be client, employee or admin"})
	}
	return s.create(ctx, in.RegisterInput, in.Role)
}

// UpdateProfile changes the caller's name, phone or delivery settings
func (s *UserService) UpdateProfile(ctx context.Context, caller Identity, in ProfileInput) (*models.User, error) {
	user, err := s.Get(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, types.Validation("validation.user", "Invalid profile", map[string]string{"name": "required"})
		}
		updates["name"] = name
		user.Name = name
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
		updates["phone"] = user.Phone
	}
	if in.Settings != nil {
		user.Settings = datatypes.NewJSONType(*in.Settings)
		updates["settings"] = user.Settings
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, types.Internal("update profile", err)
	}
	return user, nil
}

// ChangePassword replaces the caller's password after checking the current one
func (s *UserService) ChangePassword(ctx context.Context, caller Identity, in PasswordInput) error {
	if len(in.NewPassword) < minPasswordLength {
		return types.Validation("validation.password", "Invalid password",
			map[string]string{"newPassword": "must be at least 8 characters"})
	}

	user, err := s.Get(ctx, caller.ID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)); err != nil {
		return types.Validation("validation.password", "Current password is incorrect",
			map[string]string{"currentPassword": "incorrect"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.cost)
	if err != nil {
		return types.Internal("hash password", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", string(hash)).Error; err != nil {
		return types.Internal("change password", err)
	}
	return nil
}

// DeleteUser removes an account and, for clients, every application and record they own
func (s *UserService) DeleteUser(ctx context.Context, caller Identity, id string) (*DeleteCounts, error) {
	if !caller.IsAdmin() {
		return nil, types.Forbidden("Only admins can delete users")
	}
	if caller.ID == id {
		return nil, types.Conflict("user.self", "Admins cannot delete their own account")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var counts DeleteCounts
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		counts, err = deleteUserCascade(tx, user)
		return err
	})
	if err != nil {
		return nil, types.Internal("delete user", err)
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("deleted_by", caller.ID).
		Int64("applications", counts.Applications).
		Msg("account deleted")
	return &counts, nil
}
