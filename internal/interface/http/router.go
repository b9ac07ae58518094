package httpservice

import (
	"fmt"

	"github.com/ark-network/giveaway/internal/core/application"
	"github.com/ark-network/giveaway/internal/infrastructure/ledger"
	"github.com/ark-network/giveaway/internal/interface/http/handlers"
	"github.com/ark-network/giveaway/internal/interface/http/middleware"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	AppService   application.Service
	AdminService application.AdminService
	JWTSecret    string
	// Ledger and AdminAddress are required only to mount the dev ledger routes.
	Ledger       *ledger.Ledger
	AdminAddress string
}

func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.AppService == nil || cfg.AdminService == nil {
		return nil, fmt.Errorf("missing app services")
	}
	if len(cfg.JWTSecret) <= 0 {
		return nil, fmt.Errorf("missing jwt secret")
	}
	if err := handlers.RegisterValidations(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger())

	roundHandler := handlers.NewRoundHandler(cfg.AppService)
	adminHandler := handlers.NewAdminHandler(cfg.AdminService)
	oracleHandler := handlers.NewOracleHandler(cfg.AppService)
	auth := middleware.Auth([]byte(cfg.JWTSecret))

	public := router.Group("/v1")
	{
		public.GET("/info", roundHandler.GetInfo)
		public.GET("/round/latest", roundHandler.GetLatestRound)
		public.GET("/round/:id", roundHandler.GetRound)
		public.GET("/token/:address", roundHandler.IsTokenAllowed)
	}

	authenticated := router.Group("/v1", auth)
	{
		authenticated.POST("/round/participate", roundHandler.Participate)
		authenticated.POST("/round/:id/draw", roundHandler.RequestDraw)
		authenticated.POST("/oracle/fulfill", oracleHandler.Fulfill)
	}

	admin := router.Group("/v1/admin", auth)
	{
		admin.POST("/round", adminHandler.CreateRound)
		admin.GET("/rounds", adminHandler.ListRounds)
		admin.POST("/token", adminHandler.SetAllowedToken)
		admin.GET("/tokens", adminHandler.ListAllowedTokens)
		admin.POST("/round/:id/withdraw", adminHandler.WithdrawTreasury)
		admin.POST("/round/:id/close-empty", adminHandler.CloseEmptyRound)
		admin.POST("/round/:id/retry-prizes", adminHandler.RetryPrizeDelivery)
	}

	if cfg.Ledger != nil {
		ledgerHandler, err := handlers.NewLedgerHandler(cfg.Ledger, cfg.AdminAddress)
		if err != nil {
			return nil, fmt.Errorf("invalid admin address: %s", err)
		}
		router.GET("/v1/ledger/balance", ledgerHandler.GetBalance)
		dev := router.Group("/v1/ledger", auth)
		{
			dev.POST("/mint", ledgerHandler.Mint)
			dev.POST("/approve", ledgerHandler.Approve)
		}
	}

	return router, nil
}
