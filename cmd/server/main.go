package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatengine/internal/config"
	"chatengine/internal/httpserver"
	"chatengine/internal/logger"
	"chatengine/internal/security"
	"chatengine/internal/service"
	"chatengine/internal/store/sqlite"
	"chatengine/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Sync()

	db, err := sqlite.Open(cfg.DatabaseDSN)
	if err != nil {
		zlog.Fatalw("open database", "error", err)
	}
	defer db.Close()

	if err := sqlite.Migrate(db); err != nil {
		zlog.Fatalw("run migrations", "error", err)
	}

	tokenSvc := security.NewTokenService(
		cfg.JWTSecret,
		time.Duration(cfg.AccessTokenMinutes)*time.Minute,
		time.Duration(cfg.RefreshTokenDays)*24*time.Hour,
	)
	encryptor, err := security.NewEncryptor([]byte(cfg.EncryptKey), nil)
	if err != nil {
		zlog.Fatalw("init encryptor", "error", err)
	}

	userRepo := sqlite.NewUserRepo(db)
	refreshRepo := sqlite.NewRefreshTokenRepo(db)
	sessionRepo := sqlite.NewSessionRepo(db)
	convRepo := sqlite.NewConversationRepo(db)
	membershipRepo := sqlite.NewMembershipRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	deletionRepo := sqlite.NewMessageDeletionRepo(db)
	reactionRepo := sqlite.NewReactionRepo(db)
	pinRepo := sqlite.NewPinRepo(db)
	readRepo := sqlite.NewReadStatusRepo(db)
	graphRepo := sqlite.NewGraphRepo(db)
	mediaRepo := sqlite.NewMediaRepo(db)

	gateSvc := service.NewGateService(tokenSvc, refreshRepo, userRepo)
	sessionSvc := service.NewSessionService(sessionRepo, membershipRepo)
	convSvc := service.NewConversationService(
		convRepo, membershipRepo, msgRepo, graphRepo, mediaRepo, cfg.MinGroupMembers)
	msgSvc := service.NewMessageService(
		convSvc, membershipRepo, msgRepo, deletionRepo, reactionRepo, pinRepo,
		readRepo, graphRepo, mediaRepo, encryptor, cfg.EditWindow(), cfg.MaxMessageChars)

	// Sessions cannot survive a restart; clear them before accepting
	// connections.
	if err := sessionSvc.Reset(context.Background()); err != nil {
		zlog.Fatalw("reset sessions", "error", err)
	}

	hub := ws.NewHub()
	wsHandler := ws.MakeHandler(hub, gateSvc, sessionSvc, convSvc, msgSvc, cfg.CORSOrigins, zlog)
	router := httpserver.NewRouter(cfg, wsHandler)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Infow("starting server", "addr", cfg.HTTPAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatalw("server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zlog.Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Errorw("graceful shutdown failed", "error", err)
	}
}
