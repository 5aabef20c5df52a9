package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/tournament-registration/models"
	"github.com/Dosada05/tournament-registration/repositories"
	"github.com/Dosada05/tournament-registration/utils"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/golang-jwt/jwt/v4"
)

const (
	DefaultTokenTTL    = 24 * time.Hour
	RememberMeTokenTTL = 7 * 24 * time.Hour
)

// RegisterInput содержит данные для создания учётной записи.
type RegisterInput struct {
	Username  *string `json:"username,omitempty"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// Validate проверяет данные регистрации пользователя.
func (in *RegisterInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&in.Username, validation.NilOrNotEmpty, validation.Length(3, 100)),
		validation.Field(&in.FirstName, validation.Length(0, 100)),
		validation.Field(&in.LastName, validation.Length(0, 100)),
	)
}

// LoginInput содержит учётные данные для входа.
type LoginInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// AuthResult содержит выданный токен и пользователя.
type AuthResult struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

// AuthConfig задаёт секрет JWT и список email администраторов.
type AuthConfig struct {
	JWTSecret   []byte
	AdminEmails []string
}

// AuthService отвечает за регистрацию, вход и профиль пользователя.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Profile(ctx context.Context, userID int) (*models.User, error)
}

type authService struct {
	userRepo    repositories.UserRepository
	jwtSecret   []byte
	adminEmails map[string]struct{}
	now         Clock
}

// NewAuthService создаёт AuthService.
func NewAuthService(userRepo repositories.UserRepository, cfg AuthConfig) AuthService {
	admins := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			admins[email] = struct{}{}
		}
	}
	return &authService{
		userRepo:    userRepo,
		jwtSecret:   cfg.JWTSecret,
		adminEmails: admins,
		now:         time.Now,
	}
}

// Register создаёт пользователя. Email из AdminEmails получает роль администратора.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Username != nil {
		input.Username = optionalString(*input.Username)
	}
	if err := input.Validate(); err != nil {
		return nil, validationError(err)
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		if utils.IsPasswordTooLong(err) {
			return nil, validationError(errors.New("password is too long"))
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := models.RolePlayer
	if _, ok := s.adminEmails[input.Email]; ok {
		role = models.RoleAdmin
	}

	user := &models.User{
		Username:     input.Username,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserEmailConflict):
			return nil, ErrUserEmailConflict
		case errors.Is(err, repositories.ErrUserUsernameConflict):
			return nil, ErrUserUsernameConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login проверяет пароль и выдаёт JWT.
func (s *authService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !utils.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	ttl := DefaultTokenTTL
	if input.RememberMe {
		ttl = RememberMeTokenTTL
	}
	expiresAt := now.Add(ttl)

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"email":   user.Email,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err == nil {
		user.LastLoginAt = &now
	}

	return &AuthResult{AccessToken: token, ExpiresAt: expiresAt, User: user}, nil
}

// Profile возвращает пользователя по ID.
func (s *authService) Profile(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return user, nil
}
