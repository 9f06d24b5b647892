package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"bookgrading/pkg/api"
	"bookgrading/pkg/config"
	"bookgrading/pkg/database"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Fatalf("bookgrading: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bookgrading",
		Short:         "Book catalog with reviews and live stats",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Connect to the database and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context())
		},
	})

	return cmd
}

func openDatabase(ctx context.Context) (*config.Config, *gorm.DB, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Connecting to database (%d attempts, %v apart)", cfg.Database.ConnectAttempts, cfg.Database.ConnectDelay)
	db, err := database.Open(ctx, cfg.Database.URL, database.OptionsFrom(cfg.Database))
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func migrate(ctx context.Context) error {
	_, db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	log.Println("Schema is up to date")
	return database.Close(db)
}

func serve(ctx context.Context) error {
	cfg, db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(db, api.Options{
		AllowedOrigins: cfg.CORS.Origins,
		StatsInterval:  cfg.Stats.Interval,
	})

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr(),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server at %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutdown Server, waiting %v before killing", cfg.Global.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Global.ShutdownTimeout)
	defer cancel()

	// hijacked websocket connections are not tracked by Shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Println("Server exiting")
	return nil
}
