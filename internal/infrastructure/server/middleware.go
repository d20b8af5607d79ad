package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	httpHandlers "github.com/taskmaster/todo/internal/adapters/http"
	"github.com/taskmaster/todo/internal/application/services"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
)

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			entry := logger.Request{
				Method:    values.Method,
				URI:       values.URI,
				Status:    values.Status,
				Latency:   values.Latency,
				RemoteIP:  values.RemoteIP,
				UserAgent: values.UserAgent,
				RequestID: values.RequestID,
				Err:       values.Error,
			}
			if values.Error != nil {
				// the error handler has not written the response yet
				entry.Status, _ = renderError(values.Error)
			}
			if userID, ok := c.Get(httpHandlers.ContextKeyUser).(uuid.UUID); ok {
				entry.UserID = userID.String()
			}

			s.logger.LogRequest(entry)
			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.POST, echo.DELETE},
	}))

	// Rate limiting middleware
	if s.config.Security.RateLimitRequests > 0 {
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      rate.Limit(s.config.Security.RateLimitRequests),
					Burst:     s.config.Security.RateLimitRequests,
					ExpiresIn: s.config.Security.RateLimitWindow,
				},
			),
			IdentifierExtractor: func(ctx echo.Context) (string, error) {
				return ctx.RealIP(), nil
			},
			ErrorHandler: func(context echo.Context, err error) error {
				return context.JSON(http.StatusForbidden, httpHandlers.ErrorResponse{Error: "FORBIDDEN", Message: "rate limit exceeded"})
			},
			DenyHandler: func(context echo.Context, identifier string, err error) error {
				return context.JSON(http.StatusTooManyRequests, httpHandlers.ErrorResponse{Error: "RATE_LIMITED", Message: "rate limit exceeded"})
			},
		}))
	}

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
	}))

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Bound request handling; the request context is cancelled on expiry
	if s.config.Server.RequestTimeout > 0 {
		s.echo.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: s.config.Server.RequestTimeout,
		}))
	}
}

// authMiddleware validates bearer tokens against their live session
func (s *Server) authMiddleware(authService *services.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return apperrors.NewUnauthorizedError("missing authorization header")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader || tokenString == "" {
				return apperrors.NewUnauthorizedError("invalid authorization header format")
			}

			claims, err := authService.ValidateToken(c.Request().Context(), tokenString)
			if err != nil {
				s.logger.LogSecurityEvent("invalid_token", "", c.RealIP(), map[string]interface{}{
					"error":    err.Error(),
					"endpoint": c.Request().URL.Path,
				})
				return err
			}

			userID, err := claims.UserUUID()
			if err != nil {
				return apperrors.NewUnauthorizedError("invalid token subject")
			}

			c.Set(httpHandlers.ContextKeyUser, userID)
			c.Set(httpHandlers.ContextKeyClaims, claims)

			return next(c)
		}
	}
}

// renderError maps err to the status and body the API answers with
func renderError(err error) (int, httpHandlers.ErrorResponse) {
	var (
		appErr         *apperrors.AppError
		he             *echo.HTTPError
		validationErrs validator.ValidationErrors
	)

	switch {
	case errors.As(err, &appErr):
		code := appErr.Type.HTTPStatus()
		body := httpHandlers.ErrorResponse{Error: appErr.Code, Message: appErr.Message}
		if code >= http.StatusInternalServerError {
			// internals stay in the log
			body.Message = apperrors.GetUserMessage(appErr)
		}
		return code, body
	case errors.As(err, &he):
		body := httpHandlers.ErrorResponse{Error: strings.ToUpper(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))}
		if msg, ok := he.Message.(string); ok {
			body.Message = msg
		} else {
			body.Message = http.StatusText(he.Code)
		}
		return he.Code, body
	case errors.As(err, &validationErrs):
		return http.StatusBadRequest, httpHandlers.ErrorResponse{Error: "VALIDATION_FAILED", Message: validationErrs.Error()}
	default:
		return http.StatusInternalServerError, httpHandlers.ErrorResponse{Error: "INTERNAL_ERROR", Message: http.StatusText(http.StatusInternalServerError)}
	}
}

// customErrorHandler renders every failure as {"error": code, "message": text}
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code, body := renderError(err)

		if code >= http.StatusInternalServerError {
			logger.WithRequestID(c.Response().Header().Get(echo.HeaderXRequestID)).
				Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		// Send response
		if !c.Response().Committed {
			if c.Request().Method == echo.HEAD {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, body)
			}
			if err != nil {
				logger.Errorw("Error sending response", "error", err)
			}
		}
	}
}
