package router

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"sudooom.trivia/internal/config"
	"sudooom.trivia/internal/handler"
	"sudooom.trivia/internal/health"
)

// SetupRouter 设置路由
func SetupRouter(
	cfg *config.Config,
	roomHandler *handler.RoomHandler,
	leaderboardHandler *handler.LeaderboardHandler,
	matchHandler *handler.MatchHandler,
	wsHandler *handler.WSHandler,
	checker *health.Checker,
) *gin.Engine {
	gin.SetMode(cfg.App.Mode)

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.CORS)))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if checker != nil {
		r.GET("/health", gin.WrapH(checker))
		r.GET("/ready", gin.WrapF(checker.Ready))
	}

	r.GET("/ws/:roomId", wsHandler.Connect)

	v1 := r.Group("/api/v1")
	{
		rooms := v1.Group("/rooms")
		{
			rooms.POST("", roomHandler.Create)
			rooms.GET("/:roomId", roomHandler.State)
			rooms.POST("/:roomId/players", roomHandler.Join)
		}

		v1.GET("/leaderboard", leaderboardHandler.Top)
		v1.GET("/matches", matchHandler.Recent)
	}

	return r
}

func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:     c.AllowedMethods,
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"},
		AllowCredentials: c.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}
	if len(cc.AllowMethods) == 0 {
		cc.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	if len(c.AllowedOrigins) == 0 || slices.Contains(c.AllowedOrigins, "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = c.AllowedOrigins
	}
	return cc
}
