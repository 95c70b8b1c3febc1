package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jrsteele09/dashboard-session/credentials"
	"github.com/jrsteele09/dashboard-session/credentials/boltstore"
	"github.com/jrsteele09/dashboard-session/credentials/redisstore"
	"github.com/jrsteele09/dashboard-session/identity"
	"github.com/jrsteele09/dashboard-session/internal/config"
	"github.com/jrsteele09/dashboard-session/internal/logger"
	"github.com/jrsteele09/dashboard-session/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"
)

var Version = "dev"

var (
	cfg       config.Config
	apiURL    string
	storePath string
	redisAddr string
)

var rootCmd = &cobra.Command{
	Use:     "dashboard",
	Short:   "Dashboard session client",
	Version: Version,
	Long: `Logs in to the dashboard API, keeps the session fresh and makes
authenticated calls. The session survives between invocations in a local
bbolt file, or in redis when --redis is set.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
	}
	cfg = config.New()

	rootCmd.PersistentFlags().StringVar(&apiURL, "api", cfg.GetAPIBaseURL(), "Base URL of the dashboard API, including /api")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", cfg.GetStorePath(), "bbolt file holding the session credentials")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", cfg.GetRedisAddr(), "Redis address; stores the session there instead of --store")
}

func newLogger() zerolog.Logger {
	log := logger.New(cfg.GetEnv())
	if os.Getenv("LOG_LEVEL") == "" {
		log = log.Level(zerolog.WarnLevel)
	}
	return log
}

// clientSession is everything a command needs to act as the logged in user.
type clientSession struct {
	manager *session.Manager
	close   func()
}

// openSession builds the credential store and session manager and restores
// any persisted session.
func openSession(cmd *cobra.Command) (*clientSession, error) {
	log := newLogger()

	store, closeStore, err := openStore()
	if err != nil {
		return nil, err
	}

	idp := identity.NewClient(apiURL, identity.WithLogger(log))
	m, err := session.New(store, idp, session.WithConfig(cfg), session.WithLogger(log))
	if err != nil {
		closeStore()
		return nil, err
	}
	m.Watch(func(state session.State) {
		log.Debug().Str("status", state.Status.String()).Msg("session changed")
	})
	if err := m.Initialize(cmd.Context()); err != nil {
		_ = m.Close()
		closeStore()
		return nil, fmt.Errorf("restoring session: %w", err)
	}

	return &clientSession{
		manager: m,
		close: func() {
			_ = m.Close()
			closeStore()
		},
	}, nil
}

func openStore() (credentials.Store, func(), error) {
	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		return redisstore.New(client), func() { _ = client.Close() }, nil
	}

	store, err := boltstore.NewFromFile(storePath, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, nil, fmt.Errorf("opening session store %s: %w", storePath, err)
	}
	return store, func() { _ = store.Close() }, nil
}

func printState(cmd *cobra.Command, state session.State) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "status: %s\n", state.Status)
	if p := state.Identity; p != nil {
		if p.Email != "" {
			fmt.Fprintf(out, "email:  %s\n", p.Email)
		}
		if name := p.Name(); name != "" {
			fmt.Fprintf(out, "name:   %s\n", name)
		}
	}
}

func formatExpiry(exp time.Time) string {
	if exp.IsZero() {
		return "unknown"
	}
	return exp.Local().Format(time.RFC1123)
}
