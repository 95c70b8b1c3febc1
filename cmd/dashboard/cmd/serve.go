package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/dashboard-session/internal/logger"
	"github.com/jrsteele09/dashboard-session/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	seedEmail    string
	seedPassword string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the development API server",
	Long: `Runs an in-memory stand-in for the dashboard backend: login, refresh,
personal-info, social login and the goals, habits and notes collections.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&seedEmail, "seed-email", "demo@example.com", "Demo user created at startup, empty to skip")
	serveCmd.Flags().StringVar(&seedPassword, "seed-password", "", "Password of the demo user, generated when empty")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	log := logger.New(cfg.GetEnv())
	displayAppname(cfg.GetAppName())

	s, err := server.New(cfg, server.Deps{Logger: &log})
	if err != nil {
		return err
	}
	if seedEmail != "" {
		if _, err := s.Seed(server.SeedUser{Email: seedEmail, Password: seedPassword, FirstName: "Demo"}); err != nil {
			return err
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.GetPort(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	done := make(chan error, 1)
	go func() {
		done <- listenAndServe(log, httpServer)
	}()

	select {
	case <-waitForStopSignal():
	case err := <-done:
		return err
	}
	return shutdown(log, httpServer)
}

func listenAndServe(log zerolog.Logger, server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(log zerolog.Logger, server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
