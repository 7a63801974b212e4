package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/openkmj/timjs/config"
	"github.com/openkmj/timjs/models"
	"github.com/openkmj/timjs/repositories"
	"github.com/openkmj/timjs/utils"
)

const RoleAdmin = "admin"

type AuthService interface {
	// Authenticate resolves a bearer API key to its user, team included.
	Authenticate(ctx context.Context, apiKey string) (*models.User, error)
	AdminLogin(ctx context.Context, input AdminLoginInput) (*AdminToken, error)
	ValidateAdminToken(token string) (*AdminClaims, error)
}

type AdminLoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AdminToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	userRepo repositories.UserRepository
	cache    UserCache
	admin    config.AdminConfig
	now      func() time.Time
}

func NewAuthService(userRepo repositories.UserRepository, cache UserCache, admin config.AdminConfig) AuthService {
	if cache == nil {
		cache = NoopUserCache{}
	}
	return &authService{
		userRepo: userRepo,
		cache:    cache,
		admin:    admin,
		now:      time.Now,
	}
}

func (s *authService) Authenticate(ctx context.Context, apiKey string) (*models.User, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrAuthenticationFailed
	}
	if user, ok := s.cache.Get(ctx, apiKey); ok {
		return user, nil
	}

	user, err := s.userRepo.GetByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthenticationFailed
		}
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}
	s.cache.Set(ctx, user)
	return user, nil
}

func (s *authService) AdminLogin(ctx context.Context, input AdminLoginInput) (*AdminToken, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if s.admin.PasswordHash == "" || s.admin.SecretKey == "" {
		return nil, ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(input.Username), []byte(s.admin.Username)) == 1
	passOK := utils.CheckPasswordHash(input.Password, s.admin.PasswordHash)
	if !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.admin.TokenTTL)
	claims := AdminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.admin.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.admin.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("failed to sign admin token: %w", err)
	}
	return &AdminToken{Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *authService) ValidateAdminToken(token string) (*AdminClaims, error) {
	if s.admin.SecretKey == "" || token == "" {
		return nil, ErrAuthenticationFailed
	}
	claims := &AdminClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.admin.SecretKey), nil
	})
	if err != nil || !parsed.Valid || claims.Role != RoleAdmin {
		return nil, ErrAuthenticationFailed
	}
	return claims, nil
}
