package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/config"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/dependency"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/logging"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/session"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tutor chat HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides server.port)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	dbPath := cfg.DatabasePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	lock, ok, err := session.TryLock(dbPath)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("another tutorchat serve is already using %s", dbPath)
	}
	defer lock.Release()

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	if cfg.Log.Watch {
		err := config.Watch(resolvedConfigPath(), func(next *config.Config) {
			logging.SetLevel(next.Log.Level)
		})
		if err != nil {
			slog.Warn("config watch disabled", "err", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return container.Server().Run(gctx) })
	g.Go(func() error { return container.CronService().Start(gctx) })
	g.Go(func() error { return container.Health().Start(gctx) })

	fmt.Printf("%s tutorchat listening on %s (database %s)\n", logo, cfg.ListenAddr(), dbPath)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "serve error: %v\n", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
