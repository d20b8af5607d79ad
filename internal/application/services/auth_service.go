package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/infrastructure/config"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/infrastructure/metrics"
	"github.com/taskmaster/todo/internal/ports"
)

// Claims represents the JWT claims. The registered ID claim carries the
// session id so a token can be revoked before it expires.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserUUID returns the parsed user id
func (c *Claims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// SessionID returns the parsed session id
func (c *Claims) SessionID() (uuid.UUID, error) {
	return uuid.Parse(c.ID)
}

// AuthService handles authentication operations
type AuthService struct {
	users       *UserService
	userRepo    ports.UserRepository
	sessionRepo ports.SessionRepository
	jwtConfig   config.JWTConfig
	logger      *logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users *UserService, userRepo ports.UserRepository, sessionRepo ports.SessionRepository, jwtConfig config.JWTConfig, logger *logger.Logger, m *metrics.Metrics) *AuthService {
	return &AuthService{
		users:       users,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		jwtConfig:   jwtConfig,
		logger:      logger.WithComponent("auth"),
		metrics:     m,
		now:         time.Now,
	}
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, req ports.RegisterRequest) (*entities.User, error) {
	return s.users.CreateUser(ctx, req)
}

// Login verifies the credentials and opens a session backed by a signed token
func (s *AuthService) Login(ctx context.Context, req ports.LoginRequest) (*ports.AuthResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
			s.logger.Warnw("Login attempt with unknown username", "username", req.Username)
			s.metrics.RecordEvent(metrics.EventLoginFailed)
			return nil, apperrors.NewInvalidCredentialsError("invalid credentials")
		}
		return nil, err
	}

	if !checkPassword(user.PasswordHash, req.Password) {
		s.logger.Warnw("Login attempt with invalid password", "user_id", user.ID)
		s.metrics.RecordEvent(metrics.EventLoginFailed)
		return nil, apperrors.NewInvalidCredentialsError("invalid credentials")
	}

	now := s.now().UTC()
	session := &entities.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.jwtConfig.ExpiresIn),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.generateToken(user, session)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("User logged in successfully", "user_id", user.ID, "session_id", session.ID)
	s.metrics.RecordEvent(metrics.EventLogin)

	return &ports.AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: session.ExpiresAt,
		User:      user,
	}, nil
}

// Logout revokes the session behind the presented token
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	sessionID, err := claims.SessionID()
	if err != nil {
		return apperrors.NewUnauthorizedError("invalid token")
	}

	if err := s.sessionRepo.Revoke(ctx, sessionID, s.now()); err != nil {
		if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
			return apperrors.NewUnauthorizedError("session already ended")
		}
		return err
	}

	s.logger.Infow("User logged out successfully", "user_id", claims.UserID, "session_id", sessionID)
	s.metrics.RecordEvent(metrics.EventLogout)
	return nil
}

// ValidateToken checks the signature and expiry of a token and that its
// session is still live
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	},
		jwt.WithIssuer(s.jwtConfig.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.NewUnauthorizedError("invalid token claims")
	}

	sessionID, err := claims.SessionID()
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid token claims")
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewUnauthorizedError("session not found")
		}
		return nil, err
	}
	if !session.IsActive(s.now()) {
		return nil, apperrors.NewUnauthorizedError("session expired or revoked")
	}

	return claims, nil
}

// PurgeSessions deletes sessions that can no longer authenticate
func (s *AuthService) PurgeSessions(ctx context.Context) (int64, error) {
	n, err := s.sessionRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.RecordEvents(metrics.EventSessionsPurged, int(n))
	return n, nil
}

func (s *AuthService) generateToken(user *entities.User, session *entities.Session) (string, error) {
	claims := &Claims{
		UserID:   user.ID.String(),
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID.String(),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			NotBefore: jwt.NewNumericDate(session.CreatedAt),
			Issuer:    s.jwtConfig.Issuer,
			Subject:   user.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}
