// Package server assembles the HTTP router.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/handler"
	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/Addisu87/bank-support-agent/internal/metrics"
	"github.com/Addisu87/bank-support-agent/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	Users        *handler.UserHandler
	Banks        *handler.BankHandler
	Accounts     *handler.AccountHandler
	Cards        *handler.CardHandler
	Transactions *handler.TransactionHandler
	// Agent is nil when no chat credentials are configured.
	Agent *handler.AgentHandler
}

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Handlers       Handlers
	Tokens         *middleware.TokenManager
	Logger         *logging.Logger
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler
	HealthChecks   map[string]HealthCheck
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware(d.Logger, d.Metrics))

	router.GET("/health", health(d.HealthChecks))
	if d.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}

	h := d.Handlers
	api := router.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/token", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/change-password", middleware.AuthMiddleware(d.Tokens), h.Auth.ChangePassword)
	}

	protected := api.Group("", middleware.AuthMiddleware(d.Tokens))
	superuser := middleware.RequireSuperuser()

	users := protected.Group("/users")
	{
		users.GET("", superuser, h.Users.ListUsers)
		users.GET("/:userId", h.Users.GetUser)
		users.PATCH("/:userId", h.Users.UpdateUser)
		users.DELETE("/:userId", h.Users.DeleteUser)
	}

	banks := protected.Group("/banks")
	{
		banks.POST("", superuser, h.Banks.CreateBank)
		banks.GET("", h.Banks.ListBanks)
		banks.GET("/:bankId", h.Banks.GetBank)
		banks.PATCH("/:bankId", superuser, h.Banks.UpdateBank)
	}

	accounts := protected.Group("/accounts")
	{
		accounts.POST("", h.Accounts.CreateAccount)
		accounts.GET("", h.Accounts.ListAccounts)
		accounts.GET("/:accountNumber", h.Accounts.GetAccount)
		accounts.PATCH("/:accountNumber", h.Accounts.UpdateAccount)
		accounts.DELETE("/:accountNumber", h.Accounts.DeleteAccount)
		accounts.GET("/:accountNumber/balance", h.Accounts.GetBalance)
		accounts.GET("/:accountNumber/transactions", h.Transactions.ListTransactions)
		accounts.POST("/:accountNumber/cards", h.Cards.IssueCard)
	}

	cards := protected.Group("/cards")
	{
		cards.GET("", h.Cards.ListCards)
		cards.GET("/:cardId", h.Cards.GetCard)
		cards.PATCH("/:cardId", h.Cards.UpdateCard)
		cards.POST("/:cardId/block", h.Cards.BlockCard)
		cards.POST("/:cardId/unblock", h.Cards.UnblockCard)
		cards.GET("/:cardId/transactions", h.Transactions.ListTransactions)
	}

	transactions := protected.Group("/transactions")
	{
		transactions.POST("/deposit", h.Transactions.Deposit)
		transactions.POST("/withdraw", h.Transactions.Withdraw)
		transactions.POST("/transfer", h.Transactions.Transfer)
		transactions.GET("", h.Transactions.ListTransactions)
		transactions.GET("/recent", h.Transactions.RecentTransactions)
		transactions.GET("/summary/:accountNumber", h.Transactions.Summary)
		transactions.GET("/reference/:reference", h.Transactions.GetByReference)
		transactions.GET("/:transactionId", h.Transactions.GetTransaction)
		transactions.POST("/:transactionId/status", superuser, h.Transactions.TransitionStatus)
		transactions.DELETE("/:transactionId", superuser, h.Transactions.DeleteTransaction)
	}

	if h.Agent != nil {
		protected.POST("/agent/chat", h.Agent.Chat)
	} else {
		protected.POST("/agent/chat", func(c *gin.Context) {
			middleware.RespondWithError(c, http.StatusServiceUnavailable, "Support agent is not configured")
		})
	}

	return router
}

func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logging.L().Warn("health check failed", zap.String("dependency", name), zap.Error(err))
				results[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "checks": results})
	}
}
