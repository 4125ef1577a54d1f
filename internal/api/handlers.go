package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"standingwave/internal/auth"
	"standingwave/internal/config"
	"standingwave/internal/core"
	"standingwave/internal/curiosity"
	"standingwave/internal/laws"
	"standingwave/internal/memory"
)

const sessionDuration = 12 * time.Hour

func healthHandler(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		w := d.Core.WaveSnapshot()
		resp := gin.H{
			"status":              "alive",
			"mode":                string(d.Core.Mode()),
			"affirmed":            laws.IsAffirmed(w),
			"memories":            d.Store.Count(),
			"active_curiosities":  len(w.ActiveCuriosities),
			"conversation_active": d.Core.ConversationActive(),
			"pulse_paused":        d.Core.PulsePaused(),
			"status_subscribers":  d.Core.Hub().SubscriberCount(),
		}
		if d.Models != nil {
			resp["model_breaker"] = d.Models.BreakerState()
		}
		c.JSON(http.StatusOK, resp)
	}
}

// configHandler exposes the non-secret parts of the config.
func configHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"mode":            cfg.Agent.Mode,
			"weaving_rounds":  cfg.Agent.WeavingRounds,
			"pulse_seconds":   cfg.Agent.PulseSeconds,
			"search_interval": cfg.Agent.SearchInterval,
			"auth_enabled":    cfg.AuthEnabled(),
			"models": gin.H{
				"generator":  cfg.Models.Generator,
				"elaborator": cfg.Models.Elaborator,
				"classifier": cfg.Models.Classifier,
			},
		})
	}
}

func LoginHandler(cfg *config.Config, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.AuthEnabled() || rdb == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": gin.H{"message": "Auth is disabled"}})
			return
		}
		var req struct {
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid request body"}})
			return
		}
		if cfg.Server.Password == "" || req.Password != cfg.Server.Password {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Wrong password"}})
			return
		}

		token, err := auth.GenerateJWT(cfg.Server.JWTSecret, auth.SessionSubject, sessionDuration)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Failed to create token"}})
			return
		}
		if err := auth.SetSession(rdb, auth.SessionSubject, token, sessionDuration); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Failed to store session"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

func LogoutHandler(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb != nil {
			_ = auth.DeleteSession(rdb, auth.SessionSubject)
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

// TurnHandler runs one conversational exchange.
func TurnHandler(cr *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Field 'text' is required"}})
			return
		}

		response, err := cr.ProcessTurn(c.Request.Context(), req.Text)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": err.Error()}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"response": response})
	}
}

// WaveHandler returns a snapshot of the standing wave.
func WaveHandler(cr *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, cr.WaveSnapshot())
	}
}

func MemoriesCountHandler(store *memory.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"total":      store.Count(),
			"researched": store.CountBySource(memory.SourceCuriosityLookup),
		})
	}
}

func AffirmedHandler(cr *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		w := cr.WaveSnapshot()
		c.JSON(http.StatusOK, gin.H{
			"affirmed":       laws.IsAffirmed(w),
			"meaningfulness": cr.MeaningfulnessScore(),
		})
	}
}

func CuriositiesHandler(cr *core.Core, engine *curiosity.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{"active": cr.WaveSnapshot().ActiveCuriosities}
		if engine != nil {
			resp["resolved"] = engine.Resolved()
		}
		c.JSON(http.StatusOK, resp)
	}
}

func PulsePauseHandler(cr *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		cr.PausePulse()
		c.JSON(http.StatusOK, gin.H{"pulse_paused": true})
	}
}

func PulseResumeHandler(cr *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		cr.ResumePulse()
		c.JSON(http.StatusOK, gin.H{"pulse_paused": false})
	}
}
