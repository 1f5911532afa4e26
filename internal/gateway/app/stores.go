package app

import (
	"context"
	"fmt"
	"io"
	"log"

	reportcache "rationalist/internal/cache/report"
	"rationalist/internal/gateway/config"
	reportrepo "rationalist/internal/gateway/repository/report"
)

// initReportStore picks the first configured backend: S3, then Postgres,
// then Redis, then a local directory, falling back to memory. The result is always cached.
func initReportStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (reportrepo.Store, []io.Closer, error) {
	origin, closers, err := chooseReportOrigin(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cacheCfg := reportcache.DefaultCacheConfig()
	if cfg.Report.CacheTTL > 0 {
		cacheCfg.TTL = cfg.Report.CacheTTL
	}
	return reportcache.NewCachedStore(origin, cacheCfg), closers, nil
}

func chooseReportOrigin(ctx context.Context, cfg *config.Config, logger *log.Logger) (reportrepo.Store, []io.Closer, error) {
	if cfg.Report.CanUseS3() {
		s3Cfg := reportrepo.S3Config{
			Endpoint:  cfg.Report.Endpoint,
			Region:    cfg.Report.Region,
			AccessKey: cfg.Report.AccessKey,
			SecretKey: cfg.Report.SecretKey,
			Bucket:    cfg.Report.Bucket,
			UseSSL:    cfg.Report.UseSSL,
		}
		store, err := reportrepo.NewS3Store(s3Cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize report s3 store: %w", err)
		}
		logger.Printf("report store: s3 bucket=%s endpoint=%s", s3Cfg.Bucket, s3Cfg.Endpoint)
		return store, nil, nil
	}
	if cfg.DatabaseURL != "" {
		db, err := reportrepo.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize report postgres store: %w", err)
		}
		logger.Printf("report store: postgres")
		return reportrepo.NewPostgresStore(db), []io.Closer{db}, nil
	}
	if cfg.RedisURL != "" {
		client, err := reportrepo.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize report redis store: %w", err)
		}
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		logger.Printf("report store: redis")
		store := reportrepo.NewRedisStore(client, "")
		return store, []io.Closer{store}, nil
	}
	if cfg.Report.Dir != "" {
		store, err := reportrepo.NewFileStore(cfg.Report.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize report file store: %w", err)
		}
		logger.Printf("report store: dir=%s", cfg.Report.Dir)
		return store, nil, nil
	}
	logger.Printf("report store: in-memory")
	return reportrepo.NewMemoryStore(), nil, nil
}
