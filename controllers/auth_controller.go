package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/dto"
	"github.com/princinho/videotube/metrics"
	"github.com/princinho/videotube/middleware"
	"github.com/princinho/videotube/repository"
	"github.com/princinho/videotube/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// POST /api/v1/users/login
func (uc *UserController) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, bindError(err))
			return
		}

		username := utils.NormalizeIdentity(body.Username)
		email := utils.NormalizeIdentity(body.Email)
		if username == "" && email == "" {
			fail(c, utils.BadRequest("Username or email is required"))
			return
		}

		user, err := uc.users.FindByUsernameOrEmail(ctx, username, email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				metrics.Auth(metrics.EventLogin, metrics.OutcomeRejected)
				fail(c, utils.NotFound("User does not exist"))
				return
			}
			metrics.Auth(metrics.EventLogin, metrics.OutcomeError)
			fail(c, err)
			return
		}

		if !user.IsPasswordCorrect(body.Password) {
			metrics.Auth(metrics.EventLogin, metrics.OutcomeRejected)
			fail(c, utils.Unauthorized("Invalid user credentials"))
			return
		}

		pair, err := uc.sessions.IssueTokenPair(ctx, user.ID)
		if err != nil {
			metrics.Auth(metrics.EventLogin, metrics.OutcomeError)
			fail(c, err)
			return
		}

		loggedIn, err := uc.users.FindPublicByID(ctx, user.ID)
		if err != nil {
			metrics.Auth(metrics.EventLogin, metrics.OutcomeError)
			fail(c, err)
			return
		}

		metrics.Auth(metrics.EventLogin, metrics.OutcomeSuccess)
		uc.setAuthCookies(c, pair)
		utils.Respond(c, http.StatusOK, gin.H{
			"user":         loggedIn,
			"accessToken":  pair.AccessToken,
			"refreshToken": pair.RefreshToken,
		}, "User logged in successfully")
	}
}

// POST /api/v1/users/logout
func (uc *UserController) Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, utils.Unauthorized("Unauthorized request"))
			return
		}

		if err := uc.users.ClearRefreshToken(c.Request.Context(), user.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			metrics.Auth(metrics.EventLogout, metrics.OutcomeError)
			fail(c, err)
			return
		}

		metrics.Auth(metrics.EventLogout, metrics.OutcomeSuccess)
		uc.clearAuthCookies(c)
		utils.Respond(c, http.StatusOK, gin.H{}, "User logged out")
	}
}

// POST /api/v1/users/refresh-token
func (uc *UserController) RefreshAccessToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		incoming, _ := c.Cookie(middleware.RefreshTokenCookie)
		if incoming == "" {
			var body dto.RefreshTokenDTO
			// the body is optional when the cookie is present
			_ = c.ShouldBindJSON(&body)
			incoming = strings.TrimSpace(body.RefreshToken)
		}
		if incoming == "" {
			metrics.Auth(metrics.EventRefresh, metrics.OutcomeRejected)
			fail(c, utils.Unauthorized("Unauthorized request"))
			return
		}

		claims, err := uc.tokens.ValidateRefreshToken(incoming)
		if err != nil {
			metrics.Auth(metrics.EventRefresh, metrics.OutcomeRejected)
			fail(c, utils.Unauthorized("Invalid refresh token"))
			return
		}
		id, err := bson.ObjectIDFromHex(claims.UserID)
		if err != nil {
			metrics.Auth(metrics.EventRefresh, metrics.OutcomeRejected)
			fail(c, utils.Unauthorized("Invalid refresh token"))
			return
		}

		user, err := uc.users.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				metrics.Auth(metrics.EventRefresh, metrics.OutcomeRejected)
				fail(c, utils.Unauthorized("Invalid refresh token"))
				return
			}
			metrics.Auth(metrics.EventRefresh, metrics.OutcomeError)
			fail(c, err)
			return
		}

		if user.RefreshToken == "" || user.RefreshToken != incoming {
			metrics.Auth(metrics.EventRefresh, metrics.OutcomeRejected)
			fail(c, utils.Unauthorized("Refresh token is expired or used"))
			return
		}

		pair, err := uc.sessions.RotateTokenPair(ctx, user, incoming)
		if err != nil {
			metrics.Auth(metrics.EventRefresh, refreshOutcome(err))
			fail(c, err)
			return
		}

		metrics.Auth(metrics.EventRefresh, metrics.OutcomeSuccess)
		uc.setAuthCookies(c, pair)
		utils.Respond(c, http.StatusOK, pair, "Access token refreshed")
	}
}

// refreshOutcome tells a rotated-out token apart from a server failure.
func refreshOutcome(err error) string {
	var apiErr *utils.ApiError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}
