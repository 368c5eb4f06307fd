package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/controllers"
	"github.com/princinho/videotube/middleware"
	"github.com/princinho/videotube/repository"
	"github.com/princinho/videotube/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Users          repository.UserRepository
	Tokens         *utils.TokenManager
	Controller     *controllers.UserController
	AllowedOrigins map[string]bool
	Logger         *logrus.Logger
}

// NewRouter builds the engine with the middleware stack, the health and
// metrics endpoints and the users API.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(d.Logger),
		middleware.Metrics(),
		middleware.ErrorHandler(d.Logger),
		middleware.Recovery(d.Logger),
	)
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return d.AllowedOrigins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	RegisterUserRoutes(api.Group("/users"), d)
	return r
}

func RegisterUserRoutes(g *gin.RouterGroup, d Deps) {
	uc := d.Controller
	verifyJWT := middleware.VerifyJWT(d.Users, d.Tokens)
	g.Use(middleware.BodyLimit(middleware.JSONBodyLimit))

	g.POST("/register", uc.Register())
	g.POST("/login", uc.Login())
	g.POST("/refresh-token", uc.RefreshAccessToken())
	g.GET("/c/:username", middleware.OptionalJWT(d.Users, d.Tokens), uc.GetUserChannelProfile())

	secured := g.Group("")
	secured.Use(verifyJWT)
	{
		secured.POST("/logout", uc.Logout())
		secured.POST("/change-password", uc.ChangeCurrentPassword())
		secured.GET("/current-user", uc.GetCurrentUser())
		secured.PATCH("/update-account", uc.UpdateAccountDetails())
		secured.PATCH("/avatar", uc.UpdateUserAvatar())
		secured.PATCH("/cover-image", uc.UpdateUserCoverImage())
		secured.GET("/history", uc.GetWatchHistory())
	}
}
