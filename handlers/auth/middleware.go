package auth

import (
	"net/http"

	"earnspark-server/config"
	"earnspark-server/models"
	"earnspark-server/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const contextUserKey = "user"

// Middleware validates the bearer token and loads the user row into the
// gin context.
func Middleware(cfg *config.Config, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			c.Abort()
			return
		}

		userID, err := utils.ExtractUserIDFromToken([]byte(cfg.Auth.JWTSecret), authHeader)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			c.Abort()
			return
		}

		c.Set(contextUserKey, &user)
		c.Next()
	}
}

// SetCurrentUser places a user in the gin context the way Middleware
// does, for handlers mounted without the full auth chain.
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(contextUserKey, user)
}

// CurrentUser returns the user loaded by Middleware, or nil.
func CurrentUser(c *gin.Context) *models.User {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
