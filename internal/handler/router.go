package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"bankrec-engine/internal/middleware"
)

type Handlers struct {
	Imports        *ImportHandler
	Transactions   *TransactionHandler
	Rules          *RuleHandler
	Reconciliation *ReconciliationHandler
}

// NewRouter builds the HTTP surface. maxUploadBytes <= 0 disables the body limit.
func NewRouter(h Handlers, maxUploadBytes int64) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		imports := v1.Group("/imports")
		{
			imports.POST("", middleware.MaxBodySize(maxUploadBytes), h.Imports.Import)
			imports.GET("", h.Imports.ListBatches)
			imports.GET("/:batch_id", h.Imports.GetBatch)
		}

		transactions := v1.Group("/transactions")
		{
			transactions.GET("", h.Transactions.ListTransactions)
			transactions.GET("/:id", h.Transactions.GetTransaction)
			transactions.POST("/:id/match", h.Transactions.ManualMatch)
			transactions.POST("/:id/ignore", h.Transactions.Ignore)
			transactions.POST("/:id/classify", h.Reconciliation.ClassifyTransaction)
		}

		v1.POST("/reconcile", h.Reconciliation.Reconcile)

		rules := v1.Group("/rules")
		{
			rules.GET("", h.Rules.ListRules)
			rules.POST("", h.Rules.CreateRule)
			rules.PUT("/order", h.Rules.ReorderRules)
			rules.PUT("/:id", h.Rules.UpdateRule)
			rules.DELETE("/:id", h.Rules.DeleteRule)
			rules.POST("/:id/move-top", h.Rules.MoveRuleToTop)
			rules.POST("/:id/move-bottom", h.Rules.MoveRuleToBottom)
		}
	}

	return router
}
