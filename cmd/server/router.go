package main

import (
	"ecoxchange/config"
	"ecoxchange/controllers"
	"ecoxchange/middlewares"
	"ecoxchange/routes"
	"ecoxchange/services"
	"ecoxchange/utils"
	"ecoxchange/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func setupRouter(cfg *config.Config, market *services.Marketplace, logger *zap.Logger) *gin.Engine {
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middlewares.Recovery(logger), middlewares.RequestLogger(logger))
	router.MaxMultipartMemory = cfg.Server.MaxMultipartMemory

	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	router.OPTIONS("/*path", func(c *gin.Context) { c.Status(204) })

	tokens := utils.NewTokenManager(cfg.JWT.Secret, cfg.TokenExpiry())
	mc := controllers.NewMarketplaceController(market, tokens, cfg.GaugeFull(), logger)

	hub := websocket.NewHub(mc.Render, logger, cfg.Server.AllowOrigins)
	market.Observe(hub)

	router.POST("/signin", mc.SignIn)

	auth := router.Group("/")
	auth.Use(middlewares.AuthMiddleware(tokens, market))
	{
		routes.SetupMarketplaceRoutes(auth, mc)
		auth.GET("/ws", hub.Handler(market))
	}

	return router
}
