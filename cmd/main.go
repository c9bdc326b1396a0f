package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"

	"github.com/s/peripatos/internal/auth"
	"github.com/s/peripatos/internal/config"
	"github.com/s/peripatos/internal/courses"
	"github.com/s/peripatos/internal/database"
	"github.com/s/peripatos/internal/handlers"
	"github.com/s/peripatos/internal/lease"
	"github.com/s/peripatos/internal/logger"
	"github.com/s/peripatos/internal/middleware"
	"github.com/s/peripatos/internal/newsletter"
	"github.com/s/peripatos/internal/server"
)

func main() {
	// 0. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	// 1. Document store (connects, migrates)
	store, closeStore, err := database.OpenStore(cfg, log)
	if err != nil {
		log.Fatal("failed to open document store", "error", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("failed to close document store", "error", err)
		}
	}()

	// 2. Seeds
	if err := database.Seed(context.Background(), store); err != nil {
		log.Warn("failed to seed spaces", "error", err)
	}

	// 3. Google OAuth, optional
	var oauthConfig *oauth2.Config
	if cfg.GoogleEnabled() {
		oauthConfig = auth.InitGoogleOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	} else {
		log.Warn("GOOGLE_* variables not set, Google sign-in disabled")
	}

	// 4. Sessions
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionKey))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}

	// 5. Services
	var mailer newsletter.Mailer = newsletter.NewLogMailer(log)
	if cfg.SendgridAPIKey != "" {
		mailer = newsletter.NewSendgridMailer(cfg.SendgridAPIKey, cfg.MailFrom, cfg.MailFromName)
	}
	svc := handlers.Services{
		Auth:       auth.NewService(store, log),
		Courses:    courses.NewService(store, log),
		Newsletter: newsletter.NewService(store, mailer, log),
		Lease:      lease.NewService(store),
	}

	// 6. Handlers and routes
	h, err := handlers.NewHandler(store, sessionStore, oauthConfig, svc, log)
	if err != nil {
		log.Fatal("failed to build handlers", "error", err)
	}
	router := server.NewRouter(h, cfg.StaticDir)

	// 7. Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.Cors(cfg.CorsOrigin)(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("server started", "addr", "http://localhost:"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
