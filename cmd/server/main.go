package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/n1207n/blog-post-api/config"
	"github.com/n1207n/blog-post-api/db/sqlc"
	"github.com/n1207n/blog-post-api/internal/auth"
	"github.com/n1207n/blog-post-api/internal/db"
	"github.com/n1207n/blog-post-api/internal/handler"
	"github.com/n1207n/blog-post-api/internal/logger"
	"github.com/n1207n/blog-post-api/internal/repository"
	approuter "github.com/n1207n/blog-post-api/internal/router"
	"github.com/n1207n/blog-post-api/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	appLog := logger.New(cfg.AppEnv)
	appLog.Info("Configuration loaded", slog.String("app_env", cfg.AppEnv), slog.Int("port", cfg.AppPort))

	if err := run(cfg, appLog); err != nil {
		appLog.Error("Server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
	appLog.Info("Server exiting")
}

// run wires the application and serves until SIGINT/SIGTERM or a listener
// failure. Every resource it opens is closed before it returns.
func run(cfg *config.Config, appLog *slog.Logger) error {
	// A bad DATABASE_URL does not stop the process: / keeps answering and
	// every /api request is rejected by the router.
	provider := db.NewProvider(cfg.DatabaseURL)
	defer provider.Close()
	if err := provider.Err(); err != nil {
		appLog.Error("Database is not configured, API routes will fail", slog.String("error", err.Error()))
	} else {
		if cfg.MigrateOnStart {
			if err := db.RunMigrations(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			appLog.Info("Database migrations applied.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := provider.Ping(ctx); err != nil {
			appLog.Warn("Database is not reachable yet", slog.String("error", err.Error()))
		} else {
			appLog.Info("Database connection pool established.")
		}
		cancel()
	}

	sqlcQuerier := sqlc.New(provider)
	postRepo := repository.NewDBPostRepository(sqlcQuerier, appLog)

	if cfg.RedisURL != "" {
		rdb, err := initRedis(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				appLog.Error("Failed to close Redis connection", slog.String("error", err.Error()))
			}
		}()
		postRepo = repository.NewCachedPostRepository(postRepo, rdb, appLog)
		appLog.Info("Post cache enabled.")
	}

	postService := service.NewPostService(postRepo, appLog)

	var verifier auth.TokenVerifier
	if cfg.OIDCIssuerURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		oidcVerifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to initialize OIDC verifier: %w", err)
		}
		verifier = oidcVerifier
		appLog.Info("Bearer token verification enabled.", slog.String("issuer", cfg.OIDCIssuerURL))
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	postHandler := handler.NewPostHandler(postService, appLog)
	router := approuter.New(approuter.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Database:       provider,
		Verifier:       verifier,
		Logger:         appLog,
	}, postHandler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.AppPort),
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		appLog.Info("Server listening", slog.Int("port", cfg.AppPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("listen: %w", err)
		}
		close(serveErr)
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serveErr:
		if ok {
			return err
		}
		return nil
	case <-quit:
	}
	appLog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// initRedis connects to a single node, or to a cluster when redisURL is a
// comma separated list of addresses.
func initRedis(redisURL string) (redis.UniversalClient, error) {
	redisAddrs := strings.Split(redisURL, ",")
	if len(redisAddrs) == 1 {
		return initSingleRedis(redisAddrs[0])
	}
	return initClusterRedis(redisAddrs)
}

func initSingleRedis(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("could not parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}

	return rdb, nil
}

func initClusterRedis(redisAddrs []string) (*redis.ClusterClient, error) {
	addrs := make([]string, 0, len(redisAddrs))
	for _, addr := range redisAddrs {
		if addr = strings.TrimSpace(addr); addr != "" {
			addrs = append(addrs, addr)
		}
	}

	rdb := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs: addrs,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}

	return rdb, nil
}
