package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ppiankov/quizrunner/internal/server"
	"github.com/ppiankov/quizrunner/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept quiz requests over HTTP",
	Long: `Serve starts the acceptance endpoint:

  GET  /          health check, {"status":"ok"}
  POST /api/quiz  {"email": ..., "secret": ..., "url": ...}

A request with the configured secret starts one chain in the background and
is answered at once with {"status":"accepted"}. A missing secret is a 400,
a wrong one a 403. When every chain slot is busy the answer is a 503.

On SIGINT or SIGTERM the server stops accepting requests and waits up to
server.shutdown_grace for running chains.

Example:
  QUIZ_EMAIL=me@example.com QUIZ_SECRET=s3cret quizrunner serve --addr :8000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	serveCmd.Flags().Bool("disable-solver", false, "acknowledge requests without solving")
	serveCmd.Flags().Int("max-chains", 0, "concurrent chains (default 8)")

	bindFlags(serveCmd.Flags(), map[string]string{
		"server.addr":            "addr",
		"server.disable_solver":  "disable-solver",
		"concurrency.max_chains": "max-chains",
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadValidConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}

	// Chains outlive the request that started them and are cancelled only
	// when the shutdown grace period runs out.
	scheduler := worker.NewScheduler(context.Background(), cfg.Concurrency.MaxChains)
	srv := server.New(cfg, engine, scheduler, logger)

	logger.Info("starting server",
		zap.String("addr", cfg.Server.Addr),
		zap.Bool("solver_disabled", cfg.Server.DisableSolver),
		zap.Int("max_chains", cfg.Concurrency.MaxChains),
		zap.Duration("chain_budget", cfg.Chain.Budget))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Duration("grace", cfg.Server.ShutdownGrace))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	})

	return g.Wait()
}
