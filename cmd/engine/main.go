package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"tradingx/internal/archive"
	"tradingx/internal/config"
	"tradingx/internal/coverage"
	cronrunner "tradingx/internal/cron"
	"tradingx/internal/db"
	"tradingx/internal/engine"
	"tradingx/internal/feed"
	"tradingx/internal/handler"
	"tradingx/internal/logger"
	gormrepository "tradingx/internal/repository/gorm"

	_ "tradingx/docs"
)

func main() {
	cfgPath := os.Getenv("TX_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("TX_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	priceFeed := &feed.BinancePriceFeed{
		HTTP:     &http.Client{Timeout: 10 * time.Second},
		Logger:   logger,
		Endpoint: cfg.PriceFeed.Endpoint,
		CacheTTL: cfg.PriceFeed.CacheTTL,
	}
	candidateFeed := &feed.StrategyClient{
		HTTP:    &http.Client{Timeout: cfg.StrategyFeed.Timeout},
		Logger:  logger,
		BaseURL: cfg.StrategyFeed.BaseURL,
	}

	sources := []engine.Source{
		{
			Reporter:     priceFeed,
			SourceType:   "rest_poll",
			Endpoint:     cfg.PriceFeed.Endpoint,
			PollInterval: cfg.Engine.TickInterval,
		},
		{
			Reporter:     candidateFeed,
			SourceType:   "rest_poll",
			Endpoint:     cfg.StrategyFeed.BaseURL,
			PollInterval: cfg.Engine.TickInterval,
		},
	}

	signalEngine := &engine.Engine{
		Repo:       store,
		Prices:     priceFeed,
		Candidates: candidateFeed,
		Coverage:   &coverage.Manager{TargetSymbols: cfg.Engine.TargetSymbols},
		Archiver:   archive.NewPipeline(store, logger),
		Logger:     logger,
		Sources:    sources,

		TickInterval: cfg.Engine.TickInterval,
		TickTimeout:  cfg.Engine.TickTimeout,
		CandidateFilters: feed.Filters{
			Symbols:       cfg.Engine.TargetSymbols,
			Timeframes:    cfg.Engine.Timeframes,
			UrgencyLevels: cfg.Engine.UrgencyLevels,
			MinConfidence: cfg.Engine.MinConfidence,
			Limit:         cfg.Engine.CandidateMax,
		},
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Engine: signalEngine}
	healthHandler.Register(router)
	signalsHandler := &handler.SignalHandler{Store: signalEngine.Store()}
	signalsHandler.Register(router)
	historyHandler := &handler.HistoryHandler{Repo: store}
	historyHandler.Register(router)
	pipelineHandler := &handler.PipelineHandler{Engine: signalEngine, Repo: store}
	pipelineHandler.Register(router)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := signalEngine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("signal engine stopped", zap.Error(err))
		}
	}()

	if cfg.PriceFeed.Stream.Enabled {
		stream := feed.NewTickerStream(feed.TickerStreamOptions{
			URL:     cfg.PriceFeed.Stream.URL,
			Symbols: cfg.Engine.TargetSymbols,
			Logger:  logger,
		})
		go func() {
			if err := stream.Run(ctx, priceFeed.Push); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("ticker stream stopped", zap.Error(err))
			}
		}()
	}

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		retention := cfg.History.RetentionDays
		_, err := cronRunner.Add(cfg.Cron.HistoryPrune, func(ctx context.Context) {
			if retention <= 0 {
				return
			}
			cutoff := time.Now().UTC().AddDate(0, 0, -retention)
			n, err := store.DeleteArchivedBefore(ctx, cutoff)
			if err != nil {
				logger.Warn("history prune failed", zap.Error(err))
				return
			}
			if n > 0 {
				logger.Info("pruned history rows",
					zap.Int64("count", n),
					zap.Time("cutoff", cutoff))
			}
		})
		if err != nil {
			logger.Warn("cron register history prune failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
