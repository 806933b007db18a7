package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/hr-assessment-service/internal/config"
	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/hr-assessment-service/internal/services"
	"github.com/SAP-F-2025/hr-assessment-service/internal/utils"
)

// Context keys set by the auth middleware
const (
	requesterKey = "requester"
	userIDKey    = "user_id"
	userRoleKey  = "user_role"
	userKey      = "user"
)

// TokenParser validates a bearer token and returns its claims
type TokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// CasdoorAuthMiddleware authenticates requests with Casdoor issued JWTs and
// mirrors the caller into the local user tables
type CasdoorAuthMiddleware struct {
	parser TokenParser
	users  services.UserService
	logger utils.Logger
}

func NewCasdoorClient(cfg config.CasdoorConfig) *casdoorsdk.Client {
	return casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
}

func NewCasdoorAuthMiddleware(parser TokenParser, users services.UserService, logger utils.Logger) *CasdoorAuthMiddleware {
	return &CasdoorAuthMiddleware{
		parser: parser,
		users:  users,
		logger: logger,
	}
}

// AuthMiddleware returns a Gin middleware function for Casdoor authentication
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			cam.unauthorized(c, "authorization header missing")
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			cam.unauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := cam.parser.ParseJwtToken(tokenParts[1])
		if err != nil {
			cam.unauthorized(c, fmt.Sprintf("invalid token: %v", err))
			return
		}
		if claims.User.Id == "" {
			cam.unauthorized(c, "invalid user ID in token")
			return
		}

		user, err := cam.resolveUser(c, &claims.User)
		if err != nil {
			utils.GetLogger(c, cam.logger).Error("Failed to resolve authenticated user",
				"user_id", claims.User.Id,
				"error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
				Error:   services.KindInternal,
				Message: "user directory unavailable",
			})
			return
		}

		c.Set(userIDKey, user.ID)
		c.Set(userKey, user)
		c.Set(userRoleKey, user.Role)
		c.Set(requesterKey, user.Requester())

		c.Next()
	}
}

// resolveUser refreshes the local mirror from the token. When the write fails
// the last mirrored record is used instead.
func (cam *CasdoorAuthMiddleware) resolveUser(c *gin.Context, cu *casdoorsdk.User) (*models.User, error) {
	ctx := c.Request.Context()
	user, err := cam.users.SyncProfile(ctx, casdoor.ProfileFromCasdoorUser(cu))
	if err == nil {
		return user, nil
	}

	utils.GetLogger(c, cam.logger).Warn("Profile sync failed, using stored user", "user_id", cu.Id, "error", err)
	requester, getErr := cam.users.GetRequester(ctx, cu.Id)
	if getErr != nil {
		return nil, fmt.Errorf("sync: %w; lookup: %v", err, getErr)
	}
	return &models.User{
		ID:           requester.UserID,
		FullName:     cu.DisplayName,
		Email:        cu.Email,
		Role:         requester.Role,
		DepartmentID: requester.DepartmentID,
	}, nil
}

// RequireRoleMiddleware checks if user has required role; admins always pass
func (cam *CasdoorAuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetUserRoleFromContext(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Error:   services.KindForbidden,
				Message: err.Error(),
			})
			return
		}

		for _, requiredRole := range requiredRoles {
			if role == requiredRole || role == models.RoleAdmin {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Error:   services.KindForbidden,
			Message: fmt.Sprintf("insufficient permissions, required role: %v", requiredRoles),
		})
	}
}

func (cam *CasdoorAuthMiddleware) unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Error:   "unauthorized",
		Message: msg,
	})
}

// GetUserRoleFromContext extracts user role from Gin context
func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	userRole, exists := c.Get(userRoleKey)
	if !exists {
		return "", fmt.Errorf("user role not found in context")
	}

	role, ok := userRole.(models.UserRole)
	if !ok {
		return "", fmt.Errorf("invalid user role type in context")
	}

	return role, nil
}
