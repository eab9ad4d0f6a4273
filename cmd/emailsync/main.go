package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.io/infrasutra/emailsync/internal/api"
	"github.io/infrasutra/emailsync/internal/auth"
	"github.io/infrasutra/emailsync/internal/config"
	"github.io/infrasutra/emailsync/internal/drive"
	"github.io/infrasutra/emailsync/internal/gmail"
	"github.io/infrasutra/emailsync/internal/notion"
	"github.io/infrasutra/emailsync/internal/sse"
	"github.io/infrasutra/emailsync/internal/store"
	"github.io/infrasutra/emailsync/internal/syncer"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Error("ensure schema", "error", err)
		os.Exit(1)
	}

	mailbox, err := gmail.NewClient(ctx, gmail.Credentials{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RefreshToken: cfg.GmailRefreshToken,
	}, logger)
	if err != nil {
		logger.Error("init gmail client", "error", err)
		os.Exit(1)
	}

	files, err := drive.NewClient(ctx, drive.Credentials{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RefreshToken: cfg.DriveRefreshToken,
	}, logger)
	if err != nil {
		logger.Error("init drive client", "error", err)
		os.Exit(1)
	}

	docs := notion.NewClient(cfg.NotionToken, logger)
	hub := sse.NewHub()

	svc := syncer.New(mailbox, docs, files, db, hub, syncer.Options{
		EmailsDBID:          cfg.NotionEmailsDBID,
		AttachmentsFolderID: cfg.DriveAttachmentsFolderID,
		MessagesFolderID:    cfg.DriveMessagesFolderID,
		SyncLabel:           cfg.SyncLabel,
	}, logger)

	verifier := auth.NewVerifier(cfg.AllowedEmail)
	apiServer := api.NewServer(svc, db, verifier, hub, logger)

	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	httpSrv := &http.Server{
		Addr:    httpAddr,
		Handler: apiServer,
	}

	go func() {
		logger.Info("http server listening", "addr", httpAddr, "label", cfg.SyncLabel)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown http", "error", err)
	}
}
