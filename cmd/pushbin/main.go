package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pushbin/pushbin-server/internal/api"
	"github.com/pushbin/pushbin-server/internal/application"
	"github.com/pushbin/pushbin-server/internal/attachment"
	"github.com/pushbin/pushbin-server/internal/auth"
	"github.com/pushbin/pushbin-server/internal/bootstrap"
	"github.com/pushbin/pushbin-server/internal/client"
	"github.com/pushbin/pushbin-server/internal/config"
	"github.com/pushbin/pushbin-server/internal/email"
	"github.com/pushbin/pushbin-server/internal/httputil"
	"github.com/pushbin/pushbin-server/internal/message"
	"github.com/pushbin/pushbin-server/internal/permission"
	"github.com/pushbin/pushbin-server/internal/postgres"
	"github.com/pushbin/pushbin-server/internal/push"
	"github.com/pushbin/pushbin-server/internal/ratelimit"
	"github.com/pushbin/pushbin-server/internal/storage"
	"github.com/pushbin/pushbin-server/internal/stream"
	"github.com/pushbin/pushbin-server/internal/topic"
	"github.com/pushbin/pushbin-server/internal/user"
	"github.com/pushbin/pushbin-server/internal/webhook"
	"github.com/pushbin/pushbin-server/internal/worker"
)

// Build metadata injected via ldflags at compile time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// server holds the shared dependencies used by route handlers and middleware.
type server struct {
	cfg            *config.Config
	db             *pgxpool.Pool
	userRepo       user.Repository
	appRepo        application.Repository
	clientRepo     client.Repository
	topicRepo      topic.Repository
	permRepo       permission.Repository
	messageRepo    message.Repository
	attachmentRepo attachment.Repository
	webhookRepo    webhook.Repository
	pushRepo       push.Repository
	storage        storage.Provider
	hub            *stream.Hub
	dispatcher     *webhook.Dispatcher
	forwarder      *push.Forwarder
	limiter        *ratelimit.Limiter
	emailSender    api.EmailSender
	authenticator  *auth.Authenticator
}

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.Info().
		Str("version", version).
		Str("commit", commit).
		Str("built", date).
		Msg("Starting pushbin")

	ctx := context.Background()

	// Connect PostgreSQL
	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	log.Info().Msg("PostgreSQL connected")

	// Run migrations
	if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info().Msg("Database migrations complete")

	// Repositories
	userRepo := user.NewPGRepository(db, log.Logger)
	appRepo := application.NewPGRepository(db, log.Logger)
	clientRepo := client.NewPGRepository(db, log.Logger)
	topicRepo := topic.NewPGRepository(db, log.Logger)
	permRepo := permission.NewPGRepository(db, log.Logger)
	messageRepo := message.NewPGRepository(db, log.Logger)
	attachmentRepo := attachment.NewPGRepository(db, log.Logger)
	webhookRepo := webhook.NewPGRepository(db, log.Logger)
	pushRepo := push.NewPGRepository(db, log.Logger)

	// Seed the admin account on a fresh database.
	if err := bootstrap.SeedAdmin(ctx, userRepo); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// SMTP client for Email-header notifications.
	var emailSender api.EmailSender
	if cfg.SMTPConfigured() {
		emailClient := email.NewClient(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
		if err := emailClient.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("SMTP connection test failed. Notification emails may not be delivered.")
		} else {
			log.Info().Str("host", cfg.SMTPHost).Int("port", cfg.SMTPPort).Msg("SMTP connection verified")
		}
		emailSender = emailClient
	} else {
		log.Info().Msg("SMTP_HOST is not configured. Email notifications are disabled.")
	}

	store := storage.NewLocal(cfg.UploadDir)
	hub := stream.NewHub(log.Logger)
	dispatcher := webhook.NewDispatcher(webhookRepo, log.Logger)
	forwarder := push.NewForwarder(log.Logger)
	limiter := ratelimit.New(cfg.RateLimitBurst, cfg.RateLimitRPS)

	// Background workers and the hub's idle-channel sweep share one
	// cancellation signal.
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()

	runner := worker.NewRunner(messageRepo, attachmentRepo, topicRepo, hub, dispatcher, limiter, store, log.Logger)
	runner.Start(workerCtx)
	go func() {
		if err := hub.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Error().Err(err).Msg("Stream hub sweep stopped")
		}
	}()

	// Create Fiber app. The body limit leaves margin above the 1 MiB icon cap
	// for multipart framing.
	app := fiber.New(fiber.Config{
		AppName:      "pushbin",
		BodyLimit:    (1 + 1) * 1024 * 1024,
		ReadTimeout:  cfg.RequestTimeout(),
		WriteTimeout: 0, // streaming endpoints hold the response open
		ErrorHandler: func(c fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			msg := "An internal error occurred"
			var e *fiber.Error
			if errors.As(err, &e) {
				status = e.Code
				msg = e.Message
			} else {
				log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("Unhandled error")
			}
			return httputil.Fail(c, status, msg)
		},
	})

	// Global middleware
	app.Use(requestid.New())
	app.Use(httputil.RequestLogger(log.Logger, "/health"))

	origins := corsOrigins(cfg.CORSOrigins)
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Pushbin-Key"},
		ExposeHeaders: []string{"X-Request-ID"},
	}))

	app.Use(limiter.Middleware())

	srv := &server{
		cfg:            cfg,
		db:             db,
		userRepo:       userRepo,
		appRepo:        appRepo,
		clientRepo:     clientRepo,
		topicRepo:      topicRepo,
		permRepo:       permRepo,
		messageRepo:    messageRepo,
		attachmentRepo: attachmentRepo,
		webhookRepo:    webhookRepo,
		pushRepo:       pushRepo,
		storage:        store,
		hub:            hub,
		dispatcher:     dispatcher,
		forwarder:      forwarder,
		limiter:        limiter,
		emailSender:    emailSender,
		authenticator:  auth.NewAuthenticator(cfg.JWTSecret, userRepo, clientRepo, appRepo, log.Logger),
	}
	srv.registerRoutes(app)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("Shutting down server")
		workerCancel()
		dispatcher.Shutdown()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("Server listening")
	if err := app.Listen(cfg.ListenAddr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func (s *server) registerRoutes(app *fiber.App) {
	requireUser := s.authenticator.RequireUser()
	requireApp := s.authenticator.RequireApp()

	health := api.NewHealthHandler(s.db, version, commit, date)
	app.Get("/health", health.Health)
	app.Get("/version", health.Version)

	authHandler := api.NewAuthHandler(s.userRepo, s.cfg.JWTSecret, s.cfg.JWTExpiry(), log.Logger)
	app.Post("/api/auth/login", authHandler.Login)

	// Current user
	userHandler := api.NewUserHandler(s.userRepo, s.messageRepo, log.Logger)
	app.Get("/current/user", requireUser, userHandler.GetCurrent)
	app.Post("/current/user/password", requireUser, userHandler.ChangePassword)

	// Admin user management
	userGroup := app.Group("/user", requireUser, auth.AdminOnly)
	userGroup.Get("/", userHandler.List)
	userGroup.Post("/", userHandler.Create)
	userGroup.Get("/:id", userHandler.Get)
	userGroup.Put("/:id", userHandler.Update)
	userGroup.Delete("/:id", userHandler.Delete)

	// Applications
	appHandler := api.NewApplicationHandler(s.appRepo, s.messageRepo, s.storage, log.Logger)
	app.Get("/application", requireUser, appHandler.List)
	app.Post("/application", requireUser, appHandler.Create)
	app.Put("/application/:id", requireUser, appHandler.Update)
	app.Delete("/application/:id", requireUser, appHandler.Delete)
	app.Get("/application/:id/messages", requireUser, appHandler.ListMessages)
	app.Post("/application/:id/icon", requireUser, appHandler.UploadIcon)
	app.Get("/application/:id/icon", appHandler.GetIcon)
	app.Delete("/application/:id/icon", requireUser, appHandler.DeleteIcon)

	// Clients
	clientHandler := api.NewClientHandler(s.clientRepo, log.Logger)
	app.Get("/client", requireUser, clientHandler.List)
	app.Post("/client", requireUser, clientHandler.Create)
	app.Put("/client/:id", requireUser, clientHandler.Update)
	app.Delete("/client/:id", requireUser, clientHandler.Delete)

	// Application-model messages and the aggregate stream
	messageHandler := api.NewMessageHandler(s.messageRepo, s.appRepo, s.clientRepo, s.hub, s.cfg.MaxMessageSize, log.Logger)
	app.Post("/message", requireApp, messageHandler.Create)
	app.Get("/message", requireUser, messageHandler.List)
	app.Delete("/message", requireUser, messageHandler.DeleteAll)
	app.Delete("/message/:id", requireUser, messageHandler.Delete)
	app.Get("/stream", messageHandler.Stream)

	// Topics
	topicHandler := api.NewTopicHandler(s.topicRepo, s.permRepo, s.messageRepo, s.hub, s.dispatcher, s.cfg.MaxMessageSize, log.Logger)
	app.Post("/api/topics", requireUser, topicHandler.Create)
	app.Get("/api/topics", requireUser, topicHandler.List)
	app.Get("/api/topics/:name", requireUser, topicHandler.Get)
	app.Delete("/api/topics/:name", requireUser, topicHandler.Delete)
	app.Post("/api/topics/:name/publish", requireUser, topicHandler.Publish)
	app.Get("/api/topics/:name/ws", requireUser, topicHandler.WebSocket)
	app.Get("/api/topics/:name/sse", requireUser, topicHandler.SSE)
	app.Get("/api/topics/:name/json", requireUser, topicHandler.ListMessages)
	app.Get("/api/topics/:name/messages", requireUser, topicHandler.ListMessages)

	// Permissions
	permHandler := api.NewPermissionHandler(s.permRepo, log.Logger)
	app.Post("/api/permissions", requireUser, auth.AdminOnly, permHandler.Create)
	app.Get("/api/permissions", requireUser, permHandler.List)
	app.Delete("/api/permissions/:id", requireUser, auth.AdminOnly, permHandler.Delete)

	// Stats
	statsHandler := api.NewStatsHandler(s.userRepo, s.topicRepo, s.messageRepo, log.Logger)
	app.Get("/api/stats", requireUser, auth.AdminOnly, statsHandler.Get)

	// Attachments
	attachmentHandler := api.NewAttachmentHandler(s.attachmentRepo, s.messageRepo, s.storage, log.Logger)
	app.Post("/api/messages/:id/attachments", requireUser, attachmentHandler.Upload)
	app.Get("/api/attachments/:id", attachmentHandler.Download)

	// Webhooks
	webhookHandler := api.NewWebhookHandler(s.webhookRepo, s.topicRepo, s.messageRepo, s.hub, s.dispatcher, log.Logger)
	app.Post("/api/webhooks", requireUser, webhookHandler.Create)
	app.Get("/api/webhooks", requireUser, webhookHandler.List)
	app.Put("/api/webhooks/:id", requireUser, webhookHandler.Update)
	app.Delete("/api/webhooks/:id", requireUser, webhookHandler.Delete)
	app.Post("/api/wh/:token", webhookHandler.Receive)

	// Push relay
	pushHandler := api.NewPushHandler(s.pushRepo, s.forwarder, log.Logger)
	app.Post("/UP", pushHandler.Relay)
	app.Post("/api/up/register", requireUser, pushHandler.Register)
	app.Get("/api/up/registrations", requireUser, pushHandler.List)
	app.Delete("/api/up/registrations/:id", requireUser, pushHandler.Delete)

	// Catch-all raw publish. Registered last and for POST and PUT only, so
	// every specific route wins and other methods fall through to the terminal
	// handler below (the web-UI sink when assets are mounted).
	publishHandler := api.NewPublishHandler(s.topicRepo, s.permRepo, s.messageRepo, s.hub, s.dispatcher, s.emailSender, s.cfg.MaxMessageSize, log.Logger)
	app.Post("/:topic", requireUser, publishHandler.Publish)
	app.Put("/:topic", requireUser, publishHandler.Publish)

	// Terminal handler: Fiber treats app.Use middleware as route matches, so
	// without this unmatched requests would end with an empty 200.
	app.Use(func(_ fiber.Ctx) error {
		return fiber.ErrNotFound
	})
}

// corsOrigins parses the comma-separated CORS_ORIGINS value. Empty means
// permissive.
func corsOrigins(raw string) []string {
	if raw == "" {
		return []string{"*"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
