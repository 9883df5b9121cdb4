package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/config"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminNotFound      = errors.New("admin not found")
)

// TokenTypeAdmin is the only token type this service issues.
const TokenTypeAdmin = "admin"

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
	AdminID   int    `json:"admin_id"`
	Username  string `json:"username"`
}

// AuthService handles admin authentication and JWT handling.
type AuthService struct {
	cfg    *config.Config
	admins repository.AdminStore
	now    func() time.Time
	log    zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, admins repository.AdminStore, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:    cfg,
		admins: admins,
		now:    time.Now,
		log:    log.With().Str("component", "auth_service").Logger(),
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// CreateAdmin registers a new admin account.
func (s *AuthService) CreateAdmin(ctx context.Context, username, password string) (*model.Admin, error) {
	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &model.Admin{Username: username, PasswordHash: hash}
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info().Int("admin_id", a.ID).Str("username", username).Msg("Admin created")
	return a, nil
}

// Login verifies credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, req *model.AdminLoginRequest) (*model.AdminLoginResponse, error) {
	a, err := s.admins.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}

	if err := s.CheckPassword(a.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	token, err := s.GenerateAdminToken(a)
	if err != nil {
		return nil, err
	}

	return &model.AdminLoginResponse{Token: token, Admin: *a}, nil
}

// Profile returns the admin identified by a validated token.
func (s *AuthService) Profile(ctx context.Context, adminID int) (*model.Admin, error) {
	a, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return a, nil
}

// GenerateAdminToken creates a JWT for an admin.
func (s *AuthService) GenerateAdminToken(a *model.Admin) (string, error) {
	now := s.now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(a.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: TokenTypeAdmin,
		AdminID:   a.ID,
		Username:  a.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.TokenType != TokenTypeAdmin {
		return nil, errors.New("not an admin token")
	}

	return claims, nil
}
