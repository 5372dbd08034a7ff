package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/agent"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/api"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/api/handlers"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/config"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/database"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/llm"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/logging"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/middleware"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/notify"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/partner"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/report"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/services"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/tools"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	// Repositories.
	signals := store.NewSignalRepository(db.Pool)
	analyzed := store.NewAnalyzedSignalRepository(db.Pool)
	reports := store.NewReportRepository(db.Pool)
	feedback := store.NewFeedbackRepository(db.Pool, logger)
	runs := store.NewAgentRunRepository(db.Pool, logger)

	// Model backend and tool services.
	anthropic := llm.NewAnthropicClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model, logger)
	if cfg.Anthropic.BaseURL != "" {
		anthropic.SetBaseURL(cfg.Anthropic.BaseURL)
	}
	if cfg.Anthropic.Timeout != "" {
		timeout, _ := time.ParseDuration(cfg.Anthropic.Timeout)
		anthropic.SetTimeout(timeout)
	}

	newsCacheTTL, _ := time.ParseDuration(cfg.NewsAPI.CacheTTL)
	newsLimiter := tools.NewRateLimiter(cfg.NewsAPI.DailyLimit, 24*time.Hour,
		time.Duration(cfg.NewsAPI.MinRequestGapMs)*time.Millisecond)
	rss := tools.NewRSSFetcher(tools.DefaultRSSSources(), logger)
	news := tools.NewNewsService(cfg.NewsAPI.APIKey, newsLimiter, rss, redis, newsCacheTTL, logger)
	if cfg.NewsAPI.BaseURL != "" {
		news.SetBaseURL(cfg.NewsAPI.BaseURL)
	}
	reddit := tools.NewRedditService(logger)
	trends := tools.NewTrendsService(nil, logger)
	sites := tools.NewSiteAnalyzer(logger)
	serper := tools.NewSerperService(cfg.Serper.APIKey, logger)

	// Partner roster resolver.
	rosterCacheTTL, _ := time.ParseDuration(cfg.Partner.CacheTTL)
	rosterClient := partner.NewGraphQLClient(cfg.Partner.GraphQLURL, cfg.Partner.GraphQLToken, logger)
	rosterClient.SetPaging(cfg.Partner.PageSize, cfg.Partner.MaxPages)
	rosterCache := partner.NewRosterCache(rosterCacheTTL)
	resolver := partner.NewResolver(rosterClient, rosterCache, cfg.Partner.MatchThreshold, logger)

	// Agent stages.
	loop := agent.NewLoop(anthropic, logger)
	signalTTL := services.RetentionTTL(cfg.Cleanup)
	collector := agent.NewCollector(loop, news, reddit, trends, sites, resolver,
		signals, runs, cfg.Collector, cfg.Anthropic.MaxTokens, signalTTL, logger)
	lightweight := agent.NewLightweightCollector(news, resolver, signals, runs, signalTTL, logger)
	publishers := agent.NewPublisherCollector(loop, serper, sites, signals, runs,
		cfg.Collector, cfg.Anthropic.MaxTokens, signalTTL, logger)
	analyzer := agent.NewAnalyzer(loop, resolver, signals, analyzed, runs,
		cfg.Analyzer, cfg.Anthropic.MaxTokens, logger)

	compiler := report.NewCompiler(analyzed, logger)
	email := report.NewResendClient(cfg.Report.ResendAPIKey, cfg.Report.ResendBaseURL,
		cfg.Report.FromAddress, cfg.Report.RecipientEmails, logger)
	reporter := agent.NewReporter(loop, compiler, reports, email, runs,
		cfg.Report, cfg.Anthropic.MaxTokens, logger)

	notifier := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)

	cleanup := services.NewCleanupService(signals, cfg.Cleanup, logger)
	cleanup.Start()
	defer cleanup.Stop()

	// HTTP surface.
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, api.Handlers{
		Health:  handlers.NewHealthHandler(db, redis, rosterCache),
		Signals: handlers.NewSignalHandler(signals, feedback, logger),
		Reports: handlers.NewReportHandler(reports, reporter, logger),
		Agents:  handlers.NewAgentHandler(collector, lightweight, publishers, analyzer, analyzed, notifier, logger),
		Cleanup: handlers.NewCleanupHandler(cleanup, logger),
		Admin:   middleware.NewAdminMiddleware(cfg.Security.AdminAPIKey),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
