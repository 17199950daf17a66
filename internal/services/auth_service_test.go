package services

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sjperalta/finops-api/internal/config"
	"github.com/sjperalta/finops-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newTestAuthService(t *testing.T, repo *mockUserRepo) (*AuthService, *mockAuditRepo) {
	t.Helper()
	audits := &mockAuditRepo{}
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 2}
	return NewAuthService(repo, NewAuditService(audits, nil, false), cfg), audits
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthService_Login(t *testing.T) {
	bu := uint(1)
	mockRepo := &mockUserRepo{
		mockFindByEmail: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{
				ID:                3,
				Email:             email,
				EncryptedPassword: hashed(t, "s3cret"),
				Role:              "bu manager",
				BusinessUnitID:    &bu,
				Status:            models.StatusActive,
			}, nil
		},
	}
	service, audits := newTestAuthService(t, mockRepo)

	result, err := service.Login(context.Background(), "manager@example.com", "s3cret", "10.1.1.1", "curl")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, uint(3), result.User.ID)

	parsed, err := jwt.Parse(result.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "BU_MANAGER", claims["role"])
	assert.Equal(t, float64(1), claims["business_unit_id"])
	assert.Equal(t, float64(3), claims["user_id"])

	entries := audits.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionLogin, entries[0].Action)
	assert.Equal(t, "users", entries[0].Entity)
	assert.Equal(t, "10.1.1.1", entries[0].IPAddress)
}

func TestAuthService_Login_Failures(t *testing.T) {
	tests := []struct {
		name     string
		user     *models.User
		findErr  error
		password string
		wantErr  error
	}{
		{"unknown email", nil, gorm.ErrRecordNotFound, "x", ErrInvalidCredentials},
		{"storage down", nil, errors.New("dial tcp: refused"), "x", ErrStorage},
		{"wrong password", &models.User{ID: 1, Role: models.RoleStaff, Status: models.StatusActive}, nil, "wrong", ErrInvalidCredentials},
		{"inactive", &models.User{ID: 1, Role: models.RoleStaff, Status: models.StatusInactive}, nil, "s3cret", ErrPermissionDenied},
		{"missing password", nil, nil, "", ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mockUserRepo{
				mockFindByEmail: func(ctx context.Context, email string) (*models.User, error) {
					if tt.findErr != nil {
						return nil, tt.findErr
					}
					u := *tt.user
					u.EncryptedPassword = hashed(t, "s3cret")
					return &u, nil
				},
			}
			service, audits := newTestAuthService(t, mockRepo)

			result, err := service.Login(context.Background(), "user@example.com", tt.password, "", "")
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, audits.Entries())
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	service, audits := newTestAuthService(t, &mockUserRepo{})

	require.NoError(t, service.Logout(context.Background(), staff))
	entries := audits.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionLogout, entries[0].Action)
	assert.Equal(t, "5", entries[0].RecordID)

	assert.ErrorIs(t, service.Logout(context.Background(), models.Actor{}), ErrUnauthenticated)
}
