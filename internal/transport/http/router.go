package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/user-auth/internal/transport/http/handler"
	"github.com/ErlanBelekov/user-auth/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
)

type Options struct {
	// TLS enables HSTS. Set outside ENV=local, where a proxy terminates TLS.
	TLS bool
}

// NewRouter mounts the auth routes. requireSession guards /main.
func NewRouter(logger *slog.Logger, auth *handler.AuthHandler, requireSession gin.HandlerFunc, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(opts.TLS))
	r.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		// These paths carry activation and reset tokens.
		Filters: []sloggin.Filter{
			sloggin.IgnorePath("/favicon.ico"),
			sloggin.IgnorePathPrefix("/auth/activate/", "/auth/forgot/", "/auth/reset/"),
		},
	}))
	r.Use(middleware.Metrics())
	r.Use(middleware.Errors(logger))

	a := r.Group("/auth")
	a.POST("/register", auth.Register)
	a.GET("/activate/:token", auth.Activate)
	a.POST("/login", auth.Login)
	a.POST("/logout", auth.Logout)
	a.POST("/forgot", auth.Forgot)
	a.GET("/forgot/:token", auth.GotoReset)
	a.POST("/reset/:token", auth.Reset)

	r.GET("/main", requireSession, auth.Main)

	return r
}
