package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mockils/pkg/app"
	"mockils/pkg/config"
	"mockils/pkg/server"

	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load Config
	cfgFile := flag.String("config", "", "config file (default is $HOME/.mockils/config.yaml)")
	flag.Parse()

	if err := config.Load(*cfgFile); err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	// 2. Logger
	logger, err := server.NewLogger(os.Stderr, viper.GetString("log.level"), viper.GetString("log.format"))
	if err != nil {
		log.Fatalf("❌ Logger error: %v", err)
	}
	slog.SetDefault(logger)

	// 3. Init Core Application
	ctx := context.Background()
	application, err := app.NewApp(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to initialize app: %v", err)
	}
	defer application.Close()
	fmt.Printf("✅ MockILS initialized, serving %s\n", application.RepoPath)

	// 4. Setup HTTP Server
	addr := viper.GetString("server.addr")
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.NewRouter(application),
		ReadTimeout:  viper.GetDuration("server.read_timeout"),
		WriteTimeout: viper.GetDuration("server.write_timeout"),
	}

	// 5. Start Server (Async)
	go func() {
		fmt.Printf("🚀 HTTP Server listening on %s...\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Failed to serve: %v", err)
		}
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n⚠️  Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", slog.String("err", err.Error()))
	}
	fmt.Println("👋 Server stopped.")
}
