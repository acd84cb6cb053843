package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/alden/internal/daemon"
	"github.com/joescharf/alden/internal/devserver"
	"github.com/joescharf/alden/internal/llm"
)

const shutdownTimeout = 5 * time.Second

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run an in-memory development backend",
	Long: `Run an in-memory implementation of the Alden backend API for local
development. Data is lost when the server stops.

Assistant replies use the Anthropic API when anthropic.api_key (or
ANTHROPIC_API_KEY) is set, and canned replies otherwise.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return devserverRun(cmd.Context())
	},
}

var devserverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a dev backend is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return devserverStatusRun()
	},
}

var devserverStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running dev backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return devserverStopRun(cmd.Context())
	},
}

func init() {
	devserverCmd.AddCommand(devserverStatusCmd)
	devserverCmd.AddCommand(devserverStopCmd)
	rootCmd.AddCommand(devserverCmd)

	devserverCmd.Flags().IntP("port", "p", devserver.DefaultPort, "port to listen on")
	_ = viper.BindPFlag("devserver.port", devserverCmd.Flags().Lookup("port"))
}

// newDevHTTPServer builds the dev backend and the http.Server around it.
func newDevHTTPServer(port int) (*devserver.Server, *http.Server) {
	responder := llm.WithFallback(newLLMClient(), logger)
	srv := devserver.NewServer(
		devserver.WithResponder(responder),
		devserver.WithLogger(logger),
	)
	return srv, &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// devserverPIDFile returns the PID file of the dev backend.
func devserverPIDFile() *daemon.PIDFile {
	return daemon.New(filepath.Join(viper.GetString("state_dir"), "alden-devserver.pid"))
}

func devserverRun(ctx context.Context) error {
	port := viper.GetInt("devserver.port")

	if dryRun {
		ui.DryRunMsg("Would start dev backend on port %d", port)
		return nil
	}

	pf := devserverPIDFile()
	if err := pf.Acquire(); err != nil {
		return fmt.Errorf("dev backend: %w (stop it with 'alden devserver stop')", err)
	}
	defer func() { _ = pf.Release() }()

	srv, httpSrv := newDevHTTPServer(port)

	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	ui.Success("Dev backend listening at http://localhost:%d/api", port)
	ui.Info("Press Ctrl-C to stop")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	srv.Wait()
	ui.Info("Dev backend stopped")
	return nil
}

func devserverStatusRun() error {
	pid, running := devserverPIDFile().Status()
	if !running {
		ui.Info("Dev backend is not running")
		return nil
	}
	ui.Success("Dev backend is running (pid %d, port %d)", pid, viper.GetInt("devserver.port"))
	return nil
}

func devserverStopRun(ctx context.Context) error {
	if dryRun {
		ui.DryRunMsg("Would stop the dev backend")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout+time.Second)
	defer cancel()
	if err := devserverPIDFile().Stop(ctx); err != nil {
		if errors.Is(err, daemon.ErrNotRunning) {
			return fmt.Errorf("dev backend is %w", err)
		}
		return err
	}
	ui.Success("Dev backend stopped")
	return nil
}
