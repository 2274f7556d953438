// Command state-sandbox serves the State HTTP API locally, backed by memory
// or Redis, for development against the aio-state client.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adobe/aio-lib-state-go/internal/config"
	"github.com/adobe/aio-lib-state-go/internal/logging"
	"github.com/adobe/aio-lib-state-go/internal/sandbox"
	"github.com/adobe/aio-lib-state-go/internal/sandbox/redisstore"
	"github.com/adobe/aio-lib-state-go/internal/sandbox/server"
	"github.com/adobe/aio-lib-state-go/pkg/state"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "yaml config file",
	}
	addrFlag = &cli.StringFlag{
		Name:  "addr",
		Usage: "listen address",
	}
	backendFlag = &cli.StringFlag{
		Name:  "backend",
		Usage: "memory or redis",
	}
	seedFlag = &cli.StringFlag{
		Name:  "seed",
		Usage: "JSON file of keys to preload",
	}
	latencyFlag = &cli.DurationFlag{
		Name:  "latency",
		Usage: "artificial latency to inject per request",
	}
	failFlag = &cli.StringFlag{
		Name:  "fail",
		Usage: "failure injection (rate=<float>,code=<httpStatus>)",
	}
)

var app = &cli.App{
	Name:   "state-sandbox",
	Usage:  "local Adobe I/O State service",
	Flags:  []cli.Flag{configFlag, addrFlag, backendFlag, seedFlag, latencyFlag, failFlag},
	Action: run,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	cfg, err := config.Load(cliCtx.String(configFlag.Name))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	sc := cfg.Sandbox
	if cliCtx.IsSet(addrFlag.Name) {
		sc.Addr = cliCtx.String(addrFlag.Name)
	}
	if cliCtx.IsSet(backendFlag.Name) {
		sc.Backend = cliCtx.String(backendFlag.Name)
	}
	if cliCtx.IsSet(latencyFlag.Name) {
		sc.Latency = cliCtx.Duration(latencyFlag.Name)
	}
	if cliCtx.IsSet(failFlag.Name) {
		sc.Fail = cliCtx.String(failFlag.Name)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	failCfg, err := sandbox.ParseFailConfig(sc.Fail)
	if err != nil {
		return fmt.Errorf("parse fail flag: %w", err)
	}

	ctx, stop := signal.NotifyContext(cliCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, sc)
	if err != nil {
		return err
	}
	defer closeStore()

	if path := cliCtx.String(seedFlag.Name); path != "" {
		entries, err := sandbox.LoadSeed(path)
		if err != nil {
			return err
		}
		if err := sandbox.Seed(ctx, store, entries); err != nil {
			return err
		}
		logger.Info("seed applied", zap.Int("keys", len(entries)))
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(store, server.Options{
		Logger:         logger,
		Latency:        sc.Latency,
		Fail:           failCfg,
		RateLimit:      sc.RateLimit,
		Burst:          sc.Burst,
		MaxValueSize:   sc.MaxValueSize,
		APIKeys:        sc.APIKeys,
		AllowedOrigins: sc.Origins,
	})
	httpServer := &http.Server{
		Addr:              sc.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("state-sandbox listening", zap.String("addr", sc.Addr), zap.String("backend", sc.Backend))
	host := sc.Addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Println()
	fmt.Printf("export %s=http\n", state.EnvMode)
	fmt.Printf("export %s=http://%s\n", state.EnvEndpoint, host)
	fmt.Printf("export %s=<namespace> %s=<apikey>\n", state.EnvNamespace, state.EnvAPIKey)
	fmt.Println()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, sc config.SandboxConfig) (sandbox.Store, func(), error) {
	switch strings.ToLower(sc.Backend) {
	case "", "memory":
		return sandbox.NewMemoryStore(), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", sc.Redis.Addr, err)
		}
		return redisstore.New(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q, want memory or redis", sc.Backend)
	}
}
