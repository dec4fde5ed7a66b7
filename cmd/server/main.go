package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vertexautomation/site-server/internal/cache"
	"github.com/vertexautomation/site-server/internal/config"
	"github.com/vertexautomation/site-server/internal/database"
	"github.com/vertexautomation/site-server/internal/email"
	"github.com/vertexautomation/site-server/internal/handler"
	"github.com/vertexautomation/site-server/internal/jobs"
	"github.com/vertexautomation/site-server/internal/metrics"
	"github.com/vertexautomation/site-server/internal/middleware"
	"github.com/vertexautomation/site-server/internal/redis"
	"github.com/vertexautomation/site-server/internal/repository"
	"github.com/vertexautomation/site-server/internal/service"
	"github.com/vertexautomation/site-server/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)
	isProduction := cfg.IsProduction()
	if isProduction {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	metricsHandler, err := metrics.Register(metrics.Config{DB: db.DB.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	var mailer email.Sender
	if cfg.MailEnabled() {
		mailer = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPassword)
		log.Info().Str("host", cfg.SMTPHost).Msg("smtp configured")
	}

	var objectStore storage.ObjectStore
	if cfg.StorageEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
		store, err := storage.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to object storage")
		}
		objectStore = store
		log.Info().Str("bucket", cfg.MinioBucket).Msg("object storage connected")
	}

	userRepo := repository.NewUserRepository(db.DB)
	sessionRepo := repository.NewUserSessionRepository(db.DB)
	roleRepo := repository.NewRoleRepository(db.DB)
	codeRepo := repository.NewAccessCodeRepository(db.DB)
	legalRepo := repository.NewLegalDocumentRepository(db.DB)
	consentRepo := repository.NewConsentRepository(db.DB)
	contentRepo := repository.NewContentRepository(db.DB)
	settingsRepo := repository.NewSettingsRepository(db.DB)
	contactRepo := repository.NewContactRepository(db.DB)

	authEvents := service.NewAuthEventBroker(redisClient.Client)
	defer authEvents.Close()

	contentCache := cache.New(cfg.ContentCacheTTL())
	limiter := service.NewRateLimiter(redisClient.Client)

	creds := service.NewCredentialStore(userRepo, sessionRepo, authEvents, cfg.SessionSecret)
	roleService := service.NewRoleService(roleRepo, userRepo)
	ledger := service.NewAccessCodeLedger(codeRepo)
	loginFlow := service.NewLoginFlow(creds, roleService, ledger, limiter, mailer, cfg.AccessCodeEmail)
	legalService := service.NewLegalService(legalRepo, consentRepo, contentCache)
	consentService := service.NewConsentService(consentRepo, legalService)
	contentService := service.NewContentService(contentRepo, settingsRepo, contentCache)
	contactService := service.NewContactService(contactRepo, limiter, mailer, cfg.ContactNotifyEmail)
	mediaService := service.NewMediaService(objectStore)
	adminService := service.NewAdminService(contentRepo, userRepo, consentRepo, codeRepo, legalRepo)

	sessionMiddleware := middleware.NewSessionMiddleware(creds, roleService)
	consentGate := middleware.NewConsentGate(consentService)
	csrfMiddleware := middleware.NewCSRFMiddleware(cfg.SecureCookies)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	uploadLimitMiddleware := middleware.NewBodyLimitMiddleware(config.MaxUploadSize + 1<<20)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction, cfg.MediaOrigin())
	publicRateLimit := middleware.NewIPRateLimitMiddleware(limiter, config.PublicRateLimitPerMin, config.PublicRateLimitWindow, "public")

	eventsHandler := handler.NewEventsHandler(authEvents)
	authHandler := handler.NewAuthHandler(loginFlow, creds, eventsHandler, cfg.SecureCookies)
	consentHandler := handler.NewConsentHandler(consentService, sessionMiddleware.RequireAuth, cfg.SecureCookies)
	publicHandler := handler.NewPublicHandler(contentService, legalService, contactService, mediaService, consentHandler, consentGate.RequireConsent)
	adminHandler := handler.NewAdminHandler(handler.AdminServices{
		Admin:    adminService,
		Content:  contentService,
		Legal:    legalService,
		Roles:    roleService,
		Consents: consentService,
		Contact:  contactService,
		Media:    mediaService,
	}, sessionMiddleware.RequireVerifiedAdmin, consentGate.RequireConsent, cfg.AdminRateLimitPerMin)
	spa := handler.NewSPAHandler(cfg.StaticDir, "")

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})
	r.Handle("/metrics", metricsHandler)

	r.Route("/auth", func(r chi.Router) {
		r.Use(bodyLimitMiddleware.Handler)
		r.Use(csrfMiddleware.Handler)
		r.Use(sessionMiddleware.Load)
		r.Mount("/", authHandler.Routes())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(bodyLimitMiddleware.Handler)
		r.Use(publicRateLimit.Handler)
		r.Use(csrfMiddleware.Handler)
		r.Use(sessionMiddleware.Load)
		r.Mount("/", publicHandler.Routes())
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(uploadLimitMiddleware.Handler)
		r.Use(csrfMiddleware.Handler)
		r.Use(sessionMiddleware.Load)
		r.Mount("/", adminHandler.Routes())
		r.NotFound(spa.ServeHTTP)
	})

	r.NotFound(spa.ServeHTTP)

	if cfg.RenewalJobEnabled {
		renewalJob := jobs.NewRenewalJob(ledger, creds, config.RenewalJobInterval)
		renewalJob.Start()
		defer renewalJob.Stop()
	}

	// WriteTimeout stays 0 so the auth event stream is not cut off.
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Bool("production", isProduction).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
