package internal

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func BuildRouter(app *App) *gin.Engine {
	router := gin.New()

	if app.Config.TemplateGLOB != "" {
		router.LoadHTMLGlob(app.Config.TemplateGLOB)
	}
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{app.Config.ClientOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	gate := []gin.HandlerFunc{}

	if app.Google != nil {
		store := cookie.NewStore([]byte(app.Config.CookieSecret))
		store.Options(sessions.Options{
			Path:     "/",
			MaxAge:   int((7 * 24 * time.Hour).Seconds()),
			HttpOnly: true,
		})
		router.Use(sessions.Sessions(SessionName, store))

		auth := router.Group("/auth")
		auth.GET("/google", app.Google.Login)
		auth.GET("/google/callback", app.Google.Callback)
		auth.GET("/logout", app.Google.Logout)
		auth.GET("/user", app.Google.CurrentUser)

		gate = append(gate, app.Google.RequireUser)
	}

	if app.Config.TemplateGLOB != "" {
		router.GET("/", app.Home)
	}
	router.GET("/health", app.Health)

	router.POST("/upload", append(gate, app.Upload)...)

	history := router.Group("/captions", gate...)
	history.GET("", app.ListHistory)
	history.GET("/search", app.SearchHistory)
	history.GET("/live", app.LiveHistory)

	return router
}
