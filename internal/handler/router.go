package handler

import (
	"poolledger/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, rdb, cfg)

	api := r.Group("/api/v1")
	{
		transaction := api.Group("/transaction")
		{
			transaction.POST("/add", h.AddTransaction)
			transaction.POST("/archive", h.SetArchived)
			transaction.GET("/get", h.GetTransaction)
			transaction.GET("/list", h.GetTransactions)
			transaction.GET("/types", h.GetTypes)
			transaction.GET("/summary", h.GetTransactionSummary)
		}

		account := api.Group("/account")
		{
			account.GET("/balance", h.GetBalance)
		}

		ledger := api.Group("/ledger")
		{
			ledger.GET("/locked", h.GetLockedBalance)
		}

		donation := api.Group("/donation")
		{
			donation.GET("/list", h.GetDonations)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
