package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"standingwave/internal/auth"
	"standingwave/internal/config"
	"standingwave/internal/core"
	"standingwave/internal/curiosity"
	"standingwave/internal/memory"
	"standingwave/internal/model"
)

// Deps bundles what the handlers need.
type Deps struct {
	Cfg    *config.Config
	Redis  *redis.Client
	Core   *core.Core
	Store  *memory.Store
	Engine *curiosity.Engine
	Models *model.Client
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.Default()

	r.GET("/health", healthHandler(d))
	r.GET("/config", configHandler(d.Cfg))

	r.POST("/auth/login", LoginHandler(d.Cfg, d.Redis))
	r.POST("/auth/logout", auth.AuthMiddleware(d.Cfg, d.Redis), LogoutHandler(d.Redis))

	protected := r.Group("/", auth.AuthMiddleware(d.Cfg, d.Redis))
	{
		protected.POST("/turn", TurnHandler(d.Core))
		protected.GET("/wave", WaveHandler(d.Core))
		protected.GET("/memories/count", MemoriesCountHandler(d.Store))
		protected.GET("/affirmed", AffirmedHandler(d.Core))
		protected.GET("/curiosities", CuriositiesHandler(d.Core, d.Engine))
		protected.POST("/pulse/pause", PulsePauseHandler(d.Core))
		protected.POST("/pulse/resume", PulseResumeHandler(d.Core))
		protected.GET("/ws/status", WSStatusHandler(d.Core))
	}

	return r
}
