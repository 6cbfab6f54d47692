// Command webmaild runs the webmail backend: HTTP gateway in front of the
// per-mailbox actors, the auth actor and the blob store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rbaliyan/webmail"
	"github.com/rbaliyan/webmail/blob"
	"github.com/rbaliyan/webmail/blob/gcs"
	"github.com/rbaliyan/webmail/blob/memory"
	"github.com/rbaliyan/webmail/blob/s3"
	"github.com/rbaliyan/webmail/config"
	"github.com/rbaliyan/webmail/gateway"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "", "path to webmaild.yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "webmaild:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	opts := []webmail.Option{
		webmail.WithDataDir(cfg.DataDir),
		webmail.WithBlobStore(blobs),
		webmail.WithLogger(logger),
		webmail.WithSessionTTL(cfg.Session.TTL),
		webmail.WithTracing(cfg.Telemetry.Tracing),
		webmail.WithMetrics(cfg.Telemetry.Metrics),
		webmail.WithServiceName(cfg.Telemetry.Service),
	}
	if cfg.Events.RedisAddr != "" {
		opts = append(opts, webmail.WithRedisEventTransport(redis.NewClient(&redis.Options{
			Addr:     cfg.Events.RedisAddr,
			Password: cfg.Events.RedisPassword,
			DB:       cfg.Events.RedisDB,
		})))
	}

	svc, err := webmail.New(opts...)
	if err != nil {
		return err
	}
	if err := svc.Connect(ctx); err != nil {
		return err
	}

	gw := gateway.New(svc, gateway.WithLogger(logger))
	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("webmaild listening", "addr", cfg.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		svc.Close(context.Background())
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	if err := svc.Close(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("close service: %w", err))
	}
	return errors.Join(errs...)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func newBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blob.Store, error) {
	switch cfg.Blob.Backend {
	case "memory":
		logger.Warn("using in-memory blob store, data will not survive a restart")
		return memory.New(), nil
	case "s3":
		opts := []s3.Option{
			s3.WithBucket(cfg.Blob.S3.Bucket),
			s3.WithPrefix(cfg.Blob.S3.Prefix),
			s3.WithRegion(cfg.Blob.S3.Region),
			s3.WithLogger(logger),
		}
		if cfg.Blob.S3.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(cfg.Blob.S3.Endpoint, cfg.Blob.S3.UsePathStyle))
		}
		if cfg.Blob.S3.AccessKey != "" {
			opts = append(opts, s3.WithStaticCredentials(
				cfg.Blob.S3.AccessKey, cfg.Blob.S3.SecretKey, cfg.Blob.S3.SessionToken))
		}
		return s3.New(ctx, opts...)
	case "gcs":
		opts := []gcs.Option{
			gcs.WithBucket(cfg.Blob.GCS.Bucket),
			gcs.WithPrefix(cfg.Blob.GCS.Prefix),
			gcs.WithLogger(logger),
		}
		if cfg.Blob.GCS.Endpoint != "" {
			opts = append(opts, gcs.WithEndpoint(cfg.Blob.GCS.Endpoint))
		}
		if cfg.Blob.GCS.CredentialsFile != "" {
			opts = append(opts, gcs.WithCredentialsFile(cfg.Blob.GCS.CredentialsFile))
		}
		return gcs.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Blob.Backend)
	}
}
