package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTracePDK/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP layout service",
	Long: `Serves the component library over HTTP. Clients open layout sessions,
produce cells, place and route them, and download dumps.

Routes:
  GET    /health
  GET    /technology
  GET    /components
  GET    /components/{name}
  POST   /layouts
  DELETE /layouts/{id}
  GET    /layouts/{id}/cells
  POST   /layouts/{id}/cells
  GET    /layouts/{id}/cells/{cell}
  POST   /layouts/{id}/cells/{cell}/instances
  POST   /layouts/{id}/cells/{cell}/routes
  GET    /layouts/{id}/cells/{cell}/dump`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from PDK_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		e.cfg.Addr = serveAddr
	}
	tol, err := e.cfg.Tolerance(e.tech)
	if err != nil {
		return err
	}
	svc := server.NewService(e.tech, e.lib, tol, e.logger, e.cfg.MaxSessions)
	srv := &http.Server{
		Addr:         e.cfg.Addr,
		Handler:      server.NewRouter(server.NewHandler(svc, e.logger)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		e.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			e.logger.Error("shutdown", "error", err)
		}
	}()

	e.logger.Info("server starting", "addr", e.cfg.Addr, "technology", e.tech.Name, "components", len(e.lib.Names()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
