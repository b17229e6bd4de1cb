package routes

import (
	"ecoxchange/controllers"

	"github.com/gin-gonic/gin"
)

// SetupMarketplaceRoutes registers the session-scoped marketplace endpoints.
// router must already carry the auth middleware.
func SetupMarketplaceRoutes(router *gin.RouterGroup, mc *controllers.MarketplaceController) {
	market := router.Group("/marketplace")
	{
		market.GET("/state", mc.GetState)
		market.GET("/listings", mc.GetListings)
		market.GET("/transactions", mc.GetTransactions)

		market.PUT("/view", mc.SetView)
		market.POST("/view/toggle", mc.ToggleView)

		market.PUT("/file", mc.SelectFile)
		market.POST("/submit", mc.Submit)

		market.POST("/search", mc.Search)
		market.POST("/purchase", mc.Purchase)
	}
}

// SetupEvaluatorRoutes registers the development evaluator's upload endpoint.
func SetupEvaluatorRoutes(router *gin.RouterGroup, upload gin.HandlerFunc) {
	router.POST("/api/upload", upload)
}
