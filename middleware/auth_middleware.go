package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/repository"
	"github.com/princinho/videotube/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"

	currentUserKey = "currentUser"
)

// VerifyJWT rejects the request unless it carries a valid access token for an
// existing user. The user, without secrets, is then available via CurrentUser.
func VerifyJWT(users repository.UserRepository, tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := AccessTokenFromRequest(c)
		if tokenStr == "" {
			utils.RespondError(c, utils.Unauthorized("Unauthorized request"))
			return
		}

		user, err := authenticate(c, users, tokens, tokenStr)
		if err != nil {
			utils.RespondError(c, utils.Unauthorized("Invalid Access Token"))
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// OptionalJWT loads the caller when a valid access token is present and lets
// anonymous requests through otherwise.
func OptionalJWT(users repository.UserRepository, tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := AccessTokenFromRequest(c); tokenStr != "" {
			if user, err := authenticate(c, users, tokens, tokenStr); err == nil {
				c.Set(currentUserKey, user)
			}
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, users repository.UserRepository, tokens *utils.TokenManager, tokenStr string) (*models.User, error) {
	claims, err := tokens.ValidateAccessToken(tokenStr)
	if err != nil {
		return nil, err
	}
	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, err
	}
	return users.FindPublicByID(c.Request.Context(), id)
}

// AccessTokenFromRequest reads the accessToken cookie, then the bearer header.
func AccessTokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// CurrentUser returns the user stored by VerifyJWT or OptionalJWT.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}
