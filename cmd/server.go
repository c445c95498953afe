package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/niktheblak/helvetic/internal/server"
	"github.com/niktheblak/helvetic/pkg/auth"
	"github.com/niktheblak/helvetic/pkg/publish"
	"github.com/niktheblak/helvetic/pkg/scale"
)

var serverCmd = &cobra.Command{
	Use:          "server",
	Short:        "Start the scale and API server",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			host        = viper.GetString("server.host")
			port        = viper.GetInt("server.port")
			accessToken = viper.GetStringSlice("server.token")
			amqpURL     = viper.GetString("amqp.url")
			amqpQueue   = viper.GetString("amqp.queue")
		)
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		cfg := scale.Config{
			Users:        store,
			Measurements: store,
			Defaults:     profileDefaults(),
			Logger:       logger,
		}
		var publisher *publish.AMQP
		if amqpURL != "" {
			publisher, err = publish.NewAMQP(publish.Config{
				URL:    amqpURL,
				Queue:  amqpQueue,
				Logger: logger,
			})
			if err != nil {
				store.Close()
				return err
			}
			cfg.Publisher = publisher
		}
		if len(accessToken) > 0 {
			logger.Info("Using authentication", "tokens", len(accessToken))
		} else {
			logger.Info("Not using authentication")
		}
		httpServer := &http.Server{
			Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
			Handler:           server.New(scale.NewSyncer(cfg), store, auth.FromTokens(accessToken), logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		return serve(ctx, httpServer, func() {
			if publisher != nil {
				if err := publisher.Close(); err != nil {
					logger.Error("Failed to close publisher", "err", err)
				}
			}
			if err := store.Close(); err != nil {
				logger.Error("Failed to close store", "err", err)
			}
		})
	},
}

// serve runs srv until ctx is done or the listener fails, then shuts it down
// and calls cleanup. A listener failure is returned.
func serve(ctx context.Context, srv *http.Server, cleanup func()) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	serveErr := make(chan error, 1)
	go func() {
		logger.LogAttrs(ctx, slog.LevelInfo, "Starting server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start HTTP server", "err", err)
			serveErr <- err
			cancel()
		}
	}()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		logger.Info("Shutting down service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down HTTP server", "err", err)
		}
		if cleanup != nil {
			cleanup()
		}
	}()
	wg.Wait()
	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

func init() {
	serverCmd.Flags().String("server.host", "", "Address to listen on")
	serverCmd.Flags().Int("server.port", 0, "Server port")
	serverCmd.Flags().StringSlice("server.token", nil, "Allowed API access tokens")
	serverCmd.Flags().String("storage.type", "", "Storage backend (file or postgres)")
	serverCmd.Flags().String("storage.dir", "", "Data directory for file storage")
	serverCmd.Flags().String("postgres.url", "", "PostgreSQL connection URL")
	serverCmd.Flags().String("amqp.url", "", "AMQP broker URL; measurements are published when set")
	serverCmd.Flags().String("amqp.queue", "", "AMQP queue name")

	cobra.CheckErr(viper.BindPFlags(serverCmd.Flags()))

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("amqp.queue", "measurements")

	rootCmd.AddCommand(serverCmd)
}
