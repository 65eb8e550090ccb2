package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"parlay.app/coordinator/internal/model"
	"parlay.app/coordinator/internal/store"
)

const profileKey = "auth.profile"

// RequireProfile authenticates the request's bearer token against stored
// participant profiles and attaches the profile to the request context.
func RequireProfile(profiles store.ProfileStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		profile, err := profiles.GetByAPIToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set(profileKey, profile)
		c.Next()
	}
}

// CurrentProfile returns the authenticated profile attached by RequireProfile.
func CurrentProfile(c *gin.Context) (*model.Profile, bool) {
	v, ok := c.Get(profileKey)
	if !ok {
		return nil, false
	}
	profile, ok := v.(*model.Profile)
	return profile, ok
}
