package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/dto"
	"github.com/princinho/videotube/metrics"
	"github.com/princinho/videotube/middleware"
	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/repository"
	"github.com/princinho/videotube/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

const (
	avatarFolder     = "avatars"
	coverImageFolder = "cover-images"

	msgPasswordTooLong = "Password must be at most 72 bytes"
)

// passwordError maps hashing failures caused by the input to 400.
func passwordError(err error) error {
	if errors.Is(err, models.ErrPasswordTooLong) || errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return utils.BadRequest(msgPasswordTooLong)
	}
	return err
}

// POST /api/v1/users/register
func (uc *UserController) Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var body dto.RegisterUserDTO
		if err := c.ShouldBind(&body); err != nil {
			fail(c, bindError(err))
			return
		}

		fullName := strings.TrimSpace(body.FullName)
		username := utils.NormalizeIdentity(body.Username)
		email := utils.NormalizeIdentity(body.Email)
		if utils.AnyBlank(fullName, username, email, body.Password) {
			fail(c, utils.BadRequest("All fields are required"))
			return
		}
		if len(body.Password) > models.MaxPasswordBytes {
			fail(c, utils.BadRequest(msgPasswordTooLong))
			return
		}

		if _, err := uc.users.FindByUsernameOrEmail(ctx, username, email); err == nil {
			metrics.Auth(metrics.EventRegister, metrics.OutcomeRejected)
			fail(c, utils.Conflict("User with email or username already exists"))
			return
		} else if !errors.Is(err, repository.ErrNotFound) {
			fail(c, err)
			return
		}

		avatarFile, err := c.FormFile("avatar")
		if err != nil {
			fail(c, utils.BadRequest("Avatar file is required"))
			return
		}
		if _, err := uc.images.ValidateFile(avatarFile); err != nil {
			fail(c, utils.BadRequest("Invalid avatar file", err.Error()))
			return
		}
		coverFile, _ := c.FormFile("coverImage")
		if coverFile != nil {
			if _, err := uc.images.ValidateFile(coverFile); err != nil {
				fail(c, utils.BadRequest("Invalid cover image file", err.Error()))
				return
			}
		}

		avatarURL, err := uc.uploader.Upload(ctx, avatarFolder, avatarFile)
		if err != nil || avatarURL == "" {
			uc.log.WithError(err).Warn("avatar upload failed")
			fail(c, utils.BadRequest("Avatar file is required"))
			return
		}
		var coverURL string
		if coverFile != nil {
			coverURL, err = uc.uploader.Upload(ctx, coverImageFolder, coverFile)
			if err != nil {
				// the cover image is optional; register without it
				uc.log.WithError(err).Warn("cover image upload failed")
				coverURL = ""
			}
		}

		user := &models.User{
			Username:   username,
			Email:      email,
			FullName:   fullName,
			Avatar:     avatarURL,
			CoverImage: coverURL,
		}
		if err := user.SetPassword(body.Password); err != nil {
			uc.discard(ctx, avatarURL, coverURL)
			fail(c, passwordError(err))
			return
		}

		if err := uc.users.Create(ctx, user); err != nil {
			uc.discard(ctx, avatarURL, coverURL)
			if errors.Is(err, repository.ErrDuplicate) {
				metrics.Auth(metrics.EventRegister, metrics.OutcomeRejected)
				fail(c, utils.Conflict("User with email or username already exists"))
				return
			}
			metrics.Auth(metrics.EventRegister, metrics.OutcomeError)
			fail(c, err)
			return
		}

		created, err := uc.users.FindPublicByID(ctx, user.ID)
		if err != nil {
			metrics.Auth(metrics.EventRegister, metrics.OutcomeError)
			uc.log.WithError(err).WithField("user_id", user.ID.Hex()).Error("reload registered user")
			fail(c, utils.Internal("Something went wrong while registering the user"))
			return
		}

		metrics.Auth(metrics.EventRegister, metrics.OutcomeSuccess)
		utils.Respond(c, http.StatusCreated, created, "User registered successfully")
	}
}

// POST /api/v1/users/change-password
func (uc *UserController) ChangeCurrentPassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		current, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, utils.Unauthorized("Unauthorized request"))
			return
		}

		var body dto.ChangePasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, bindError(err))
			return
		}
		if utils.AnyBlank(body.OldPassword, body.NewPassword) {
			fail(c, utils.BadRequest("Old and new password are required"))
			return
		}
		if len(body.NewPassword) > models.MaxPasswordBytes {
			fail(c, utils.BadRequest(msgPasswordTooLong))
			return
		}

		// the context user carries no password hash
		user, err := uc.users.FindByID(ctx, current.ID)
		if err != nil {
			fail(c, err)
			return
		}
		if !user.IsPasswordCorrect(body.OldPassword) {
			metrics.Auth(metrics.EventChangePassword, metrics.OutcomeRejected)
			fail(c, utils.BadRequest("Invalid old password"))
			return
		}

		if err := user.SetPassword(body.NewPassword); err != nil {
			fail(c, passwordError(err))
			return
		}
		if err := uc.users.UpdatePassword(ctx, user.ID, user.PasswordHash); err != nil {
			metrics.Auth(metrics.EventChangePassword, metrics.OutcomeError)
			fail(c, err)
			return
		}

		metrics.Auth(metrics.EventChangePassword, metrics.OutcomeSuccess)
		utils.Respond(c, http.StatusOK, gin.H{}, "Password changed successfully")
	}
}

// GET /api/v1/users/current-user
func (uc *UserController) GetCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, utils.Unauthorized("Unauthorized request"))
			return
		}
		utils.Respond(c, http.StatusOK, user, "User fetched successfully")
	}
}

// PATCH /api/v1/users/update-account
func (uc *UserController) UpdateAccountDetails() gin.HandlerFunc {
	return func(c *gin.Context) {
		current, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, utils.Unauthorized("Unauthorized request"))
			return
		}

		var body dto.UpdateAccountDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, bindError(err))
			return
		}
		fullName := strings.TrimSpace(body.FullName)
		email := utils.NormalizeIdentity(body.Email)
		if utils.AnyBlank(fullName, email) {
			fail(c, utils.BadRequest("All fields are required"))
			return
		}

		updated, err := uc.users.UpdateAccount(c.Request.Context(), current.ID, fullName, email)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrDuplicate):
				fail(c, utils.Conflict("User with email already exists"))
			case errors.Is(err, repository.ErrNotFound):
				fail(c, utils.NotFound("User does not exist"))
			default:
				fail(c, err)
			}
			return
		}

		utils.Respond(c, http.StatusOK, updated, "Account details updated successfully")
	}
}

// PATCH /api/v1/users/avatar
func (uc *UserController) UpdateUserAvatar() gin.HandlerFunc {
	return uc.updateImage(repository.AvatarField, avatarFolder, "Avatar", "Avatar image updated successfully")
}

// PATCH /api/v1/users/cover-image
func (uc *UserController) UpdateUserCoverImage() gin.HandlerFunc {
	return uc.updateImage(repository.CoverImageField, coverImageFolder, "Cover image", "Cover image updated successfully")
}

func (uc *UserController) updateImage(field repository.ImageField, folder, label, success string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		current, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, utils.Unauthorized("Unauthorized request"))
			return
		}

		fh, err := c.FormFile(string(field))
		if err != nil {
			fail(c, utils.BadRequest(label+" file is missing"))
			return
		}
		if _, err := uc.images.ValidateFile(fh); err != nil {
			fail(c, utils.BadRequest("Invalid "+strings.ToLower(label)+" file", err.Error()))
			return
		}

		url, err := uc.uploader.Upload(ctx, folder, fh)
		if err != nil || url == "" {
			uc.log.WithError(err).WithField("field", field).Warn("image upload failed")
			fail(c, utils.BadRequest("Error while uploading "+strings.ToLower(label)))
			return
		}

		updated, err := uc.users.UpdateImage(ctx, current.ID, field, url)
		if err != nil {
			uc.discard(ctx, url)
			if errors.Is(err, repository.ErrNotFound) {
				fail(c, utils.NotFound("User does not exist"))
				return
			}
			fail(c, err)
			return
		}

		previous := current.Avatar
		if field == repository.CoverImageField {
			previous = current.CoverImage
		}
		if previous != url {
			uc.discard(ctx, previous)
		}

		utils.Respond(c, http.StatusOK, updated, success)
	}
}

// GET /api/v1/users/c/:username
func (uc *UserController) GetUserChannelProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := utils.NormalizeIdentity(c.Param("username"))
		if username == "" {
			fail(c, utils.BadRequest("Username is missing"))
			return
		}

		var viewer *bson.ObjectID
		if user, ok := middleware.CurrentUser(c); ok {
			viewer = &user.ID
		}

		channel, err := uc.users.ChannelProfile(c.Request.Context(), username, viewer)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				fail(c, utils.NotFound("Channel does not exist"))
				return
			}
			fail(c, err)
			return
		}

		utils.Respond(c, http.StatusOK, channel, "User channel fetched successfully")
	}
}

// GET /api/v1/users/history
func (uc *UserController) GetWatchHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, utils.Unauthorized("Unauthorized request"))
			return
		}

		history, err := uc.users.WatchHistory(c.Request.Context(), user.ID)
		if err != nil {
			fail(c, err)
			return
		}
		if history == nil {
			history = []dto.WatchHistoryVideo{}
		}

		utils.Respond(c, http.StatusOK, history, "Watch history fetched successfully")
	}
}

// discard deletes uploaded objects that ended up unreferenced. Failures are
// only logged.
func (uc *UserController) discard(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := uc.uploader.Delete(ctx, url); err != nil {
			uc.log.WithError(err).WithField("url", url).Warn("delete stale object")
		}
	}
}
