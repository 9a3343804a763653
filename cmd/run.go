package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/lingodrill/internal/autosession"
	"github.com/abhisek/lingodrill/internal/items"
	"github.com/abhisek/lingodrill/internal/llm"
	"github.com/abhisek/lingodrill/internal/metrics"
	"github.com/abhisek/lingodrill/internal/questiongen"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the auto-session scheduler until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScheduler(cmd)
	},
}

func init() {
	runCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
}

// runScheduler opens the store, builds the generation pipeline, and blocks
// until SIGINT or SIGTERM.
func runScheduler(cmd *cobra.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := newScheduler(ctx, e)
	if err != nil {
		return err
	}

	addr := e.cfg.MetricsAddr
	if a, _ := cmd.Flags().GetString("metrics-addr"); a != "" {
		addr = a
	}
	if addr != "" {
		srv := serveMetrics(e, addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	sched.Stop()
	return nil
}

// newScheduler wires selector, generator and session manager. A missing
// provider is fatal here: the scheduler has nothing else to do.
func newScheduler(ctx context.Context, e *env) (*autosession.Scheduler, error) {
	provider, err := llm.NewProvider(ctx, e.cfg.LLM, e.store)
	if err != nil {
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}
	gen := questiongen.New(provider, questiongen.Config{
		MaxTokens:   e.cfg.Generation.MaxTokens,
		Temperature: e.cfg.Generation.Temperature,
	})
	auto := e.cfg.AutoSession
	return autosession.New(items.NewSelector(e.store), gen, e.manager, autosession.Config{
		Enabled:       auto.Enabled,
		Interval:      auto.Interval(),
		QuestionCount: auto.QuestionCount,
		Expiry:        auto.Expiry(),
		TickTimeout:   e.cfg.LLM.TickBudget(),
		Notifier:      autosession.NewNotifier(auto.PopupBehavior, os.Stdout, e.logger),
		Logger:        e.logger,
	}), nil
}

func serveMetrics(e *env, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		e.logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}
