// WeiXiu 维修派工服务
// 主程序入口

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

	"github.com/gin-gonic/gin"
	"github.com/weixiu/weixiu/internal/config"
	"github.com/weixiu/weixiu/internal/database"
	"github.com/weixiu/weixiu/internal/events"
	"github.com/weixiu/weixiu/internal/handler"
	"github.com/weixiu/weixiu/internal/metrics"
	"github.com/weixiu/weixiu/internal/repository"
	"github.com/weixiu/weixiu/internal/security"
	"github.com/weixiu/weixiu/pkg/availability"
	"github.com/weixiu/weixiu/pkg/dispatcher"
	"github.com/weixiu/weixiu/pkg/logger"
	"github.com/weixiu/weixiu/pkg/model"
	"github.com/weixiu/weixiu/pkg/specialization"
	"github.com/weixiu/weixiu/pkg/validator"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// store 派工存储，同时支持维修工登记
type store interface {
	dispatcher.Store
	handler.WorkerRegistry
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("env", cfg.App.Env).
		Msg("WeiXiu 维修派工服务启动中")

	if err := run(cfg); err != nil {
		logger.Error().Err(err).Msg("服务异常退出")
		os.Exit(1)
	}
	logger.Info().Msg("服务器已关闭")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return fmt.Errorf("无效的时区 %q: %w", cfg.Scheduling.Timezone, err)
	}
	today := func() model.Date { return model.Today(loc) }

	catalog := specialization.DefaultCatalog()
	if cfg.Scheduling.KeywordFile != "" {
		if catalog, err = specialization.LoadFile(cfg.Scheduling.KeywordFile); err != nil {
			return err
		}
		logger.Info().Str("file", cfg.Scheduling.KeywordFile).Msg("已加载工种关键词")
	}

	checks := map[string]handler.HealthCheck{}

	// 存储：配置了数据库时使用 PostgreSQL，否则使用内存存储
	var (
		st store
		db *database.DB
	)
	if cfg.Database.Enabled() {
		if db, err = database.New(&cfg.Database); err != nil {
			return err
		}
		defer db.Close()
		if cfg.Database.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				return err
			}
		}
		st = repository.NewStore(db)
		checks["database"] = db.Health
	} else {
		logger.Warn().Msg("未配置数据库，使用内存存储，重启后数据丢失")
		st = repository.NewMemoryStore()
	}

	var notifier dispatcher.Notifier = events.NopNotifier{}
	if cfg.NATS.URL != "" {
		pub, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return err
		}
		defer pub.Close()
		notifier = pub
		checks["nats"] = func(context.Context) error {
			if !pub.Healthy() {
				return errors.New("未连接")
			}
			return nil
		}
	}

	capacity := model.CapacityRule{
		NormalMax:    cfg.Scheduling.NormalMax,
		EmergencyMax: cfg.Scheduling.EmergencyMax,
	}
	calc := availability.NewCalculator(capacity, cfg.Scheduling.SearchHorizonDays)

	opts := []dispatcher.Option{
		dispatcher.WithToday(today),
		dispatcher.WithNotifier(notifier),
	}
	routerCfg := handler.RouterConfig{
		Timeout:     cfg.API.Timeout,
		CORSEnabled: cfg.API.CORS.Enabled,
		CORSOrigins: cfg.API.CORS.Origins,
	}
	if cfg.API.RateLimit > 0 {
		limiter := security.NewRateLimiter(cfg.API.RateLimit, time.Minute)
		go limiter.Run(ctx)
		routerCfg.RateLimiter = limiter
	}
	if cfg.Metrics.Enabled {
		m := metrics.New()
		opts = append(opts, dispatcher.WithObserver(m))
		if db != nil {
			if err := m.RegisterDB(db.DB, cfg.Database.Name); err != nil {
				return err
			}
		}
		routerCfg.Metrics = m
		routerCfg.MetricsPath = cfg.Metrics.Path
		routerCfg.MetricsHandler = m.Handler()
	}

	selector := dispatcher.NewSelector(st, calc, catalog, opts...)
	committer := dispatcher.NewCommitter(st, validator.NewSchedulingValidator(catalog, capacity, today), opts...)

	h := handler.New(selector, committer, st, handler.Options{
		Version:       Version,
		MaxResults:    cfg.Scheduling.MaxResults,
		LookAheadDays: cfg.Scheduling.LookAheadDays,
		Capacity:      capacity,
		Today:         today,
		HealthChecks:  checks,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler.NewRouter(h, routerCfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go pruneLocks(ctx, committer.Locks(), today)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 优雅关闭
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("服务器启动失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器关闭失败: %w", err)
	}
	return nil
}

// pruneLocks 定期清理已过日期的派工锁
func pruneLocks(ctx context.Context, locks *dispatcher.KeyedMutex, today func() model.Date) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := locks.Prune(today()); n > 0 {
				logger.Debug().Int("pruned", n).Int("remaining", locks.Len()).Msg("已清理派工锁")
			}
		}
	}
}
