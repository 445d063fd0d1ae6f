package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scriptd/internal/common/fsutil"
	"scriptd/internal/httpapi"
	"scriptd/internal/journal"
	"scriptd/internal/manager"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

type serveOptions struct {
	*rootOptions
	corsOrigins   string
	maxBodyBytes  int64
	invokeTimeout int64
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the runtime and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return opts.run(ctx)
		},
	}
	f := cmd.Flags()
	f.StringVar(&root.cfg.Addr, "addr", ":8080", "HTTP listen address (env SCRIPTD_ADDR)")
	f.StringVar(&root.cfg.JournalPath, "journal", "", "SQLite file recording invocations (empty disables)")
	f.BoolVar(&root.cfg.CORSEnabled, "cors-enabled", false, "enable CORS")
	f.StringVar(&opts.corsOrigins, "cors-origins", "*", "comma-separated allowed CORS origins")
	f.Int64Var(&opts.maxBodyBytes, "max-body-bytes", 1<<20, "max request body size")
	f.Int64Var(&opts.invokeTimeout, "invoke-timeout", 0, "seconds an async /invoke may wait (0 disables)")
	return cmd
}

func (o *serveOptions) run(ctx context.Context) error {
	log := o.log

	var (
		pub manager.EventPublisher
		jr  *journal.Journal
	)
	if o.cfg.JournalPath != "" {
		path, err := fsutil.ExpandHome(o.cfg.JournalPath)
		if err != nil {
			return err
		}
		if jr, err = journal.Open(path, log); err != nil {
			return err
		}
		defer jr.Close()
		pub = jr
	}

	sched, err := o.newScheduler(pub)
	if err != nil {
		return err
	}
	svc, err := manager.NewService(ctx, sched, o.engineKind(), o.lister())
	if err != nil {
		return err
	}

	origins := o.cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = splitCSV(o.corsOrigins)
	}
	httpapi.SetCORSOptions(o.cfg.CORSEnabled, origins, nil, nil)
	httpapi.SetMaxBodyBytes(o.maxBodyBytes)
	httpapi.SetInvokeTimeoutSeconds(o.invokeTimeout)
	httpapi.SetBaseContext(ctx)

	var inv httpapi.InvocationStore
	if jr != nil {
		inv = jr
	}
	srv := &http.Server{
		Addr:              o.cfg.Addr,
		Handler:           httpapi.NewMux(svc, inv),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", o.cfg.Addr).Str("engine", o.engineKind()).
			Str("modules_dir", o.cfg.ModulesDir).Msg("scriptd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	// Releasing the last lease drains the queue and tears the runtime down.
	if err := svc.Close(); err != nil {
		var dte *manager.DrainTimeoutError
		if errors.As(err, &dte) {
			log.Warn().Int("discarded", dte.Discarded).Msg("drain timed out")
		} else {
			serveErr = errors.Join(serveErr, err)
		}
	}
	if jr != nil {
		if err := jr.Flush(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("journal flush")
		}
	}
	return serveErr
}
