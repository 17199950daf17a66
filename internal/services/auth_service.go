package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sjperalta/finops-api/internal/config"
	"github.com/sjperalta/finops-api/internal/models"
	"github.com/sjperalta/finops-api/internal/repository"
	"github.com/sjperalta/finops-api/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService handles authentication operations
type AuthService struct {
	userRepo repository.UserRepository
	audit    *AuditService
	cfg      *config.Config
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repository.UserRepository, audit *AuditService, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		audit:    audit,
		cfg:      cfg,
		now:      time.Now,
	}
}

// LoginResult represents the result of a login attempt
type LoginResult struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	User      models.UserResponse `json:"user"`
}

// Login authenticates a user and returns a signed token
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, translateRepoError(err, "user")
	}

	if !user.IsActive() {
		return nil, fmt.Errorf("%w: account is inactive or suspended", ErrPermissionDenied)
	}

	if !VerifyPassword(password, user.EncryptedPassword) {
		return nil, ErrInvalidCredentials
	}

	actor := user.Actor(ip, userAgent)
	if !actor.Role.Valid() {
		return nil, fmt.Errorf("%w: user has no valid role", ErrPermissionDenied)
	}

	expiresAt := s.now().Add(time.Duration(s.cfg.JWTExpirationHours) * time.Hour)
	token, err := s.generateJWT(actor, user.Email, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.audit.Log(ctx, AuditEntry{
		Entity:   "users",
		RecordID: recordID(user.ID),
		Action:   models.AuditActionLogin,
		Actor:    actor,
	})
	logger.FromContext(ctx).Info("user logged in", "user_id", user.ID, "role", actor.Role)

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.ToResponse(),
	}, nil
}

// Logout records the end of a session. Tokens are stateless and simply expire.
func (s *AuthService) Logout(ctx context.Context, actor models.Actor) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	s.audit.Log(ctx, AuditEntry{
		Entity:   "users",
		RecordID: recordID(actor.ID),
		Action:   models.AuditActionLogout,
		Actor:    actor,
	})
	return nil
}

// generateJWT creates a new JWT token carrying the actor identity
func (s *AuthService) generateJWT(actor models.Actor, email string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id":          actor.ID,
		"email":            email,
		"role":             actor.Role,
		"business_unit_id": actor.BusinessUnitID,
		"exp":              expiresAt.Unix(),
		"iat":              s.now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// VerifyPassword compares a password with a hash
func VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
