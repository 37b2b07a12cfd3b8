package authz

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/clusterhub/server/internal/shared/errors"
	"github.com/clusterhub/server/internal/utils/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CallerFrom returns the authenticated caller set by the auth middleware.
func CallerFrom(c *gin.Context) (Caller, bool) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return Caller{}, false
	}
	role, _ := ParseRole(middleware.GetRole(c))
	return Caller{
		UserID: userID,
		Email:  middleware.GetEmail(c),
		Role:   role,
	}, true
}

// CallerLookup resolves a user id to the caller as currently stored.
type CallerLookup interface {
	CurrentCaller(ctx context.Context, userID uuid.UUID) (Caller, error)
}

// RefreshCaller replaces the email and role taken from the access token with
// the stored ones, so role changes and deletions apply before the token
// expires. Unauthenticated requests pass through untouched.
func RefreshCaller(lookup CallerLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == uuid.Nil {
			c.Next()
			return
		}

		caller, err := lookup.CurrentCaller(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": gin.H{
						"code":    "ACCOUNT_NOT_FOUND",
						"message": "The account for this token no longer exists",
					},
				})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "INTERNAL_ERROR",
					"message": "internal error",
				},
			})
			return
		}

		c.Set(middleware.EmailKey, caller.Email)
		c.Set(middleware.RoleKey, string(caller.Role))
		c.Next()
	}
}

// RequirePermission aborts with 403 unless the caller's role may perform
// act on obj.
func RequirePermission(e *Enforcer, obj, act string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "User not authenticated",
				},
			})
			return
		}

		if !e.Can(caller.Role, obj, act) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "INSUFFICIENT_ROLE",
					"message": "Your role does not permit this action",
				},
			})
			return
		}

		c.Next()
	}
}
