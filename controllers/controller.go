package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/middleware"
	"github.com/princinho/videotube/repository"
	"github.com/princinho/videotube/services"
	"github.com/princinho/videotube/storage"
	"github.com/princinho/videotube/utils"
	"github.com/sirupsen/logrus"
)

// CookieConfig controls the auth cookie attributes. Secure is turned off only
// for plain HTTP development.
type CookieConfig struct {
	Secure bool
	Domain string
}

// UserController serves the /users API.
type UserController struct {
	users    repository.UserRepository
	tokens   *utils.TokenManager
	sessions *services.TokenService
	uploader storage.Uploader
	images   *utils.FileValidator
	cookies  CookieConfig
	log      logrus.FieldLogger
}

func NewUserController(
	users repository.UserRepository,
	tokens *utils.TokenManager,
	sessions *services.TokenService,
	uploader storage.Uploader,
	images *utils.FileValidator,
	cookies CookieConfig,
	log logrus.FieldLogger,
) *UserController {
	return &UserController{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		uploader: uploader,
		images:   images,
		cookies:  cookies,
		log:      log,
	}
}

// fail records err for the error handler and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// bindError maps a failed body bind to 413 for oversized bodies and 400
// otherwise.
func bindError(err error) *utils.ApiError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return utils.NewApiError(http.StatusRequestEntityTooLarge, "Request body too large")
	}
	return utils.BadRequest("Invalid request body", err.Error())
}

func (uc *UserController) setAuthCookies(c *gin.Context, pair *services.TokenPair) {
	uc.setCookie(c, middleware.AccessTokenCookie, pair.AccessToken, uc.tokens.AccessTTL())
	uc.setCookie(c, middleware.RefreshTokenCookie, pair.RefreshToken, uc.tokens.RefreshTTL())
}

func (uc *UserController) clearAuthCookies(c *gin.Context) {
	uc.setCookie(c, middleware.AccessTokenCookie, "", -1)
	uc.setCookie(c, middleware.RefreshTokenCookie, "", -1)
}

func (uc *UserController) setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	maxAge := -1
	if ttl > 0 {
		maxAge = int(ttl.Seconds())
	}
	sameSite := http.SameSiteLaxMode
	if uc.cookies.Secure {
		sameSite = http.SameSiteNoneMode // cross-site frontend
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   uc.cookies.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   uc.cookies.Secure,
		SameSite: sameSite,
	})
}
