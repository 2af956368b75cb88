package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"medichat/internal/config"
	"medichat/internal/database"
	"medichat/internal/mailer"
	"medichat/internal/middleware"
	"medichat/internal/modules/auth"
	"medichat/internal/modules/chat"
	"medichat/internal/modules/medical"
	"medichat/internal/pkg/token"
	"medichat/internal/repository"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migrate")
	}

	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)

	issuer := token.New(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	mail := mailer.New(cfg.BrevoAPIKey, cfg.MailFrom, cfg.FrontendURL, log)

	hub := chat.NewHub(log)
	go hub.Run()

	authService := auth.NewService(userRepo, issuer, mail, cfg.VerifyTokenTTL, cfg.ResetTokenTTL, log)
	authHandler := auth.NewHandler(authService, cfg.CookieSecure, cfg.AccessTTL, cfg.RefreshTTL)

	chatService := chat.NewService(chatRepo, hub, log)
	chatHandler := chat.NewHandler(chatService)
	wsHandler := chat.NewWSHandler(hub, issuer, log)

	pubmed := medical.NewClient(cfg.PubMedBaseURL)
	medicalService := medical.NewService(pubmed, chatService, log)
	medicalHandler := medical.NewHandler(medicalService)

	if cfg.AppEnv == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	api := r.Group("/api")
	{
		authHandler.RegisterRoutes(api)

		protected := api.Group("/")
		protected.Use(middleware.Auth(issuer))
		{
			authHandler.RegisterProtectedRoutes(protected)
			chatHandler.RegisterRoutes(protected)
			medicalHandler.RegisterRoutes(protected)
		}
	}

	// The websocket handshake authenticates itself from the same cookie.
	r.GET("/ws", wsHandler.HandleWebSocket)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
