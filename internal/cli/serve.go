package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/memdigest/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the memory API over HTTP",
		Long:  "Serve /api/v1/memories. The owner comes from the bearer token's sub claim when server.jwt_secret is set, otherwise from the X-Owner-ID header.",
		Run:   runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default: server.addr or :8080)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	logger := newLogger(cfg)

	svc, err := openService(cfg, logger)
	if err != nil {
		exitErr("open", err)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(svc, server.Options{
		JWTSecret: cfg.Server.JWTSecret,
		Logger:    logger,
		AccessLog: os.Stderr,
	})
	if err := srv.Listen(ctx, cfg.Server.Addr); err != nil {
		exitErr("serve", err)
	}
}
