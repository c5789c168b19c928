// Command bf-proxy serves Blockfrost resources over HTTP with paging,
// rate limiting and caching handled by the client library.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/blockfrost-client/internal/config"
	"github.com/Sternrassler/blockfrost-client/pkg/cache"
	"github.com/Sternrassler/blockfrost-client/pkg/client"
	"github.com/Sternrassler/blockfrost-client/pkg/explorer"
	"github.com/Sternrassler/blockfrost-client/pkg/logging"
	"github.com/Sternrassler/blockfrost-client/pkg/network"
	"github.com/Sternrassler/blockfrost-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	addr       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "bf-proxy",
		Short:         "HTTP proxy for the Blockfrost Cardano API",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to the YAML config file")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides listen_addr)")
	return cmd
}

func run(ctx context.Context, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.addr != "" {
		cfg.ListenAddr = opts.addr
	}

	logging.Setup(cfg.LoggingConfig())
	logger := logging.NewLogger("bf-proxy")

	auth, err := cfg.Resolve(network.OSLookup)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	var cacheManager *cache.Manager
	if redisClient != nil {
		cacheManager = cache.NewManager(redisClient)
	}

	clientCfg := cfg.ClientConfig()
	clientCfg.Limiter = ratelimit.NewTracker(redisClient, cfg.RateLimitConfig(), logging.NewLogger("ratelimit"))
	clientCfg.Cache = cacheManager

	bf, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer bf.Close()

	ex, err := explorer.New(auth, bf, explorer.WithEngineConfig(cfg.PaginationConfig()))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newProxy(ex, redisClient, cacheManager).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.ListenAddr).
			Str("network", auth.Network().String()).
			Uint32("network_magic", auth.Network().Magic()).
			Msg("Starting Blockfrost proxy")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
