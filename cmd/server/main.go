package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pulseboard/internal/client/actiongw"
	"pulseboard/internal/client/telegram"
	"pulseboard/internal/config"
	cronrunner "pulseboard/internal/cron"
	"pulseboard/internal/db"
	"pulseboard/internal/handler"
	"pulseboard/internal/logger"
	"pulseboard/internal/models"
	gormrepository "pulseboard/internal/repository/gorm"
	"pulseboard/internal/service"
)

func main() {
	cfgPath := os.Getenv("PB_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PB_ENV_ONLY"); envOnlyRaw != "" {
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

	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	location, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		logger.Warn("invalid destination timezone, falling back to UTC",
			zap.String("timezone", cfg.App.Timezone), zap.Error(err))
		location = time.UTC
	}

	gateway := &actiongw.Client{
		BaseURL:     cfg.Gateway.BaseURL,
		ExecutePath: cfg.Gateway.ExecutePath,
		APIKey:      cfg.Gateway.APIKey,
		UserID:      cfg.Gateway.UserID,
		EntityID:    cfg.Gateway.EntityID,
		Identities:  actiongw.NewIdentityCache(),
		HTTP:        &http.Client{Timeout: cfg.Gateway.Timeout},
	}
	telegramClient := telegram.NewClient(
		&http.Client{Timeout: cfg.Telegram.Timeout},
		cfg.Telegram.APIBaseURL,
		cfg.Telegram.BotToken,
	)

	store := gormrepository.New(dbConn.Gorm)

	salesSvc := &service.SalesSyncService{
		Gateway: gateway,
		Repo:    store,
		Config:  cfg.Sales,
		Account: cfg.Gateway.AccountFor("sheets"),
		Logger:  logger,
	}
	videoSvc := &service.VideoSyncService{
		Gateway:  gateway,
		Repo:     store,
		Config:   cfg.YouTube,
		Account:  cfg.Gateway.AccountFor("youtube"),
		Location: location,
		Logger:   logger,
	}
	telegramSvc := &service.TelegramSyncService{
		Client:   telegramClient,
		Repo:     store,
		Config:   cfg.Telegram,
		Location: location,
		Logger:   logger,
	}
	calendarSvc := &service.CalendarSyncService{
		Gateway:  gateway,
		Repo:     store,
		Config:   cfg.Calendar,
		Account:  cfg.Gateway.AccountFor("calendar"),
		Location: location,
		Logger:   logger,
	}
	refreshSvc := &service.RefreshService{
		Repo:      store,
		Ingestors: []service.Ingestor{videoSvc, salesSvc, telegramSvc, calendarSvc},
		Logger:    logger,
	}
	dashboardSvc := &service.DashboardService{Repo: store, Location: location}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	dashboardHandler := &handler.DashboardHandler{Dashboard: dashboardSvc}
	dashboardHandler.Register(engine)
	syncHandler := &handler.SyncHandler{
		Refresh:    refreshSvc,
		Repo:       store,
		RefreshKey: cfg.Server.RefreshKey,
	}
	syncHandler.Register(engine)
	webhookHandler := &handler.TelegramWebhookHandler{
		Telegram: telegramSvc,
		Secret:   cfg.Telegram.WebhookSecret,
		Logger:   logger,
	}
	webhookHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.Refresh, func(ctx context.Context) {
			result, err := refreshSvc.Run(ctx, models.TriggerScheduled)
			if err != nil {
				logger.Warn("cron refresh failed", zap.Error(err))
				return
			}
			logger.Info("cron refresh finished",
				zap.String("run_id", result.RunID),
				zap.String("status", result.Status),
			)
		})
		if err != nil {
			logger.Warn("cron register refresh failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)
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

func corsMiddleware(allowedOrigins string) gin.HandlerFunc {
	allowAny := strings.TrimSpace(allowedOrigins) == "" || strings.TrimSpace(allowedOrigins) == "*"
	allowed := map[string]struct{}{}
	for _, origin := range strings.Split(allowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			allowed[trimmed] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAny:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := allowed[origin]; ok {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Set("Vary", "Origin")
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,x-refresh-key,X-Telegram-Bot-Api-Secret-Token")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
