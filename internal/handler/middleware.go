package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/staynest/backend/internal/model"
	"github.com/staynest/backend/internal/service"
)

const authUserKey = "auth_user"

// Response headers set when the middleware proactively rotates a session
// token. Clients are responsible for persisting the replacement.
const (
	newTokenHeader       = "X-New-Token"
	tokenRefreshedHeader = "X-Token-Refreshed"
)

// AuthMiddleware rejects requests without a valid session token. Missing,
// malformed and expired tokens are all reported as unauthorized; the
// reason is never disclosed. On success the identity is attached to the
// request context and, near expiry, a replacement token is surfaced via
// response headers.
func AuthMiddleware(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		user, err := authUserFromClaims(claims)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		if tokens.ShouldRefresh(claims) {
			if fresh, err := tokens.Issue(user.ID, user.Email); err == nil {
				c.Header(newTokenHeader, fresh)
				c.Header(tokenRefreshedHeader, "true")
			}
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches the identity when a valid token is
// present and otherwise leaves the context anonymous. It never aborts.
func OptionalAuthMiddleware(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			c.Next()
			return
		}

		if user, err := authUserFromClaims(claims); err == nil {
			c.Set(authUserKey, user)
		}
		c.Next()
	}
}

// RequireAdmin gates a route on the admin role. Unlike authentication
// failures, the reason is safe to disclose.
func RequireAdmin(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authUser := GetAuthUser(c)
		if authUser == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		user, err := authService.Me(c.Request.Context(), authUser.ID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		if user.Role != model.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func GetAuthUser(c *gin.Context) *model.AuthUser {
	if value, ok := c.Get(authUserKey); ok {
		if user, ok := value.(*model.AuthUser); ok {
			return user
		}
	}
	return nil
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func authUserFromClaims(claims *service.SessionClaims) (*model.AuthUser, error) {
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	return &model.AuthUser{ID: userID, Email: claims.Email}, nil
}

func CORSMiddleware(allowedOrigins []string, allowCredentials bool) gin.HandlerFunc {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				if allowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				c.Header("Access-Control-Expose-Headers", newTokenHeader+", "+tokenRefreshedHeader)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
