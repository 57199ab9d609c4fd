package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/comment-wall/internal/config"
	"github.com/evcraddock/comment-wall/internal/logging"
	"github.com/evcraddock/comment-wall/internal/store"
	"github.com/evcraddock/comment-wall/internal/wall"
	"github.com/evcraddock/comment-wall/internal/web"
)

func newServeCmd() *cobra.Command {
	var (
		port       int
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the wall server",
		Long:  "Start the HTTP server for the comment form, the wall screens and the API. Uses MongoDB when WALL_MONGO_URL is set and a local SQLite file otherwise.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default from config, 8080)")
	cmd.Flags().StringVar(&configPath, "config", "", "server config file (default $WALL_CONFIG)")

	return cmd
}

func runServe(configPath string, port int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Port = port
	}

	logging.Setup(cfg.DevMode)
	slog.Info("starting wall", "store", cfg.StoreKind(), "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Options{
		MongoURL:     cfg.Store.MongoURL,
		MongoTimeout: cfg.Store.MongoTimeout,
		DBPath:       cfg.Store.DBPath,
		PollEvery:    cfg.Store.PollEvery,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("closing store", "error", err)
		}
	}()

	srv, err := web.NewServer(st, wall.Config{
		Max:          cfg.Wall.MaxItems,
		Viewport:     cfg.Wall.ViewportWidth,
		HighlightFor: cfg.Wall.HighlightFor,
		BannerFor:    cfg.Wall.BannerFor,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.ListenAndServe(ctx, cfg.Port)
}
