// Storefront 主程序
// 功能：男装网店单体服务，包括商品目录、注册登录、购物车、结账支付、订单管理与通知
// 架构：按限界上下文划分的 DDD 单体 + Outbox + 可选 Kafka
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wyfcoding/storefront/pkg/cache"
	"github.com/wyfcoding/storefront/pkg/config"
	"github.com/wyfcoding/storefront/pkg/db"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/metrics"
	"github.com/wyfcoding/storefront/pkg/middleware"
	"github.com/wyfcoding/storefront/pkg/mq"
	"github.com/wyfcoding/storefront/pkg/ratelimit"
	"github.com/wyfcoding/storefront/pkg/trace"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to the TOML config file")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	loggerCfg := logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}
	if err := logger.Init(loggerCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Info(ctx, "Starting Storefront",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. 初始化追踪
	shutdownTracer, err := trace.InitTracer(ctx, trace.Config{
		Enabled:           cfg.Tracing.Enabled,
		ServiceName:       cfg.ServiceName,
		ServiceVersion:    cfg.Version,
		Environment:       cfg.Environment,
		CollectorEndpoint: cfg.Tracing.CollectorEndpoint,
		SamplingRate:      cfg.Tracing.SamplingRate,
	})
	if err != nil {
		logger.Error(ctx, "Failed to initialize tracer", "error", err)
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error(ctx, "Failed to shutdown tracer", "error", err)
			}
		}()
	}

	// 4. 初始化数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(models()...); err != nil {
			logger.Fatal(ctx, "Failed to migrate database", "error", err)
		}
	}

	// 5. 初始化缓存与限流器：Redis 未启用时退化为进程内实现
	var (
		store       cache.Cache
		rateLimiter ratelimit.RateLimiter
	)
	if cfg.Redis.Enabled {
		redisCache, err := cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Fatal(ctx, "Failed to initialize Redis", "error", err)
		}
		defer redisCache.Close()
		store = redisCache
		rateLimiter = ratelimit.NewRedisRateLimiter(redisCache.GetClient())
	} else {
		maxTTL := config.Seconds(cfg.Auth.RefreshTTL)
		if maxTTL < time.Hour {
			maxTTL = time.Hour
		}
		localCache, err := cache.NewLocal(ctx, maxTTL)
		if err != nil {
			logger.Fatal(ctx, "Failed to initialize local cache", "error", err)
		}
		defer localCache.Close()
		store = localCache
		rateLimiter = ratelimit.NewLocalRateLimiter()
		logger.Warn(ctx, "Redis disabled, using in-process cache and rate limiter")
	}

	// 6. 初始化指标
	m := metrics.New()
	if err := m.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal(ctx, "Failed to register metrics", "error", err)
	}

	// 7. 初始化消息投递：Kafka 启用时 outbox 投递到 Kafka，由消费者回调通知分发器
	var (
		sink     mq.Handler
		producer *mq.KafkaProducer
	)
	kafkaCfg := mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		GroupID:      cfg.Kafka.GroupID,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	}
	if cfg.Kafka.Enabled {
		producer = mq.NewProducer(kafkaCfg)
		defer producer.Close()
		sink = producer
	}

	// 8. 装配应用服务
	application, err := buildApp(cfg, database, store, m, sink)
	if err != nil {
		logger.Fatal(ctx, "Failed to build application", "error", err)
	}

	// 9. 创建 HTTP 服务器
	httpServer := createHTTPServer(cfg, application, rateLimiter, m)

	// 10. 启动后台任务
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(gctx, "Starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Seconds(cfg.HTTP.ShutdownTimeout))
		defer cancel()
		logger.Info(ctx, "Shutting down HTTP server")
		return httpServer.Shutdown(shutdownCtx)
	})
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path, prometheus.DefaultGatherer)
		g.Go(func() error { return metrics.Serve(gctx, metricsServer) })
	}
	g.Go(func() error {
		return application.relay.Run(gctx, time.Duration(cfg.Outbox.PollInterval)*time.Millisecond)
	})
	g.Go(func() error {
		return application.cleanupOutbox(gctx, time.Duration(cfg.Outbox.RetentionHours)*time.Hour)
	})
	if cfg.Kafka.Enabled {
		consumer := mq.NewConsumer(kafkaCfg, application.dispatcher.Topics())
		defer consumer.Close()
		g.Go(func() error { return consumer.Run(gctx, application.dispatcher) })
	}

	// 11. 等待退出
	if err := g.Wait(); err != nil {
		logger.Error(ctx, "Storefront stopped with error", "error", err)
		return
	}
	logger.Info(ctx, "Storefront stopped")
}

// sensitivePaths 按分钟限流的注册与登录接口
var sensitivePaths = map[string]bool{
	"/register":          true,
	"/verify-otp":        true,
	"/resend-otp":        true,
	"/login":             true,
	"/api/token":         true,
	"/api/login":         true,
	"/api/token/refresh": true,
}

// createHTTPServer 创建 HTTP 服务器
func createHTTPServer(cfg *config.Config, a *app, limiter ratelimit.RateLimiter, m *metrics.Metrics) *http.Server {
	if cfg.HTTP.Mode != "" {
		gin.SetMode(cfg.HTTP.Mode)
	}
	router := gin.New()
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.GinLoggingMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(middleware.GinMetricsMiddleware(m))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimitMiddleware(limiter, "http", ratelimit.Limit{
			Rate:   cfg.RateLimit.QPS,
			Period: time.Second,
			Burst:  cfg.RateLimit.Burst,
		}))
		sensitive := middleware.RateLimitMiddleware(limiter, "sensitive", ratelimit.Limit{
			Rate:   cfg.RateLimit.SensitivePerMinute,
			Period: time.Minute,
			Burst:  cfg.RateLimit.SensitivePerMinute,
		})
		router.Use(func(c *gin.Context) {
			if c.Request.Method == http.MethodPost && sensitivePaths[c.FullPath()] {
				sensitive(c)
				return
			}
			c.Next()
		})
	}

	router.Use(middleware.Authenticate(a.tokens, cfg.Auth.CookieName))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName})
	})

	h := a.handlers(cfg)
	public := router.Group("")
	h.catalog.RegisterRoutes(public)
	h.cart.RegisterRoutes(public)
	h.user.RegisterRoutes(public)
	h.auth.RegisterRoutes(public)

	authed := router.Group("", middleware.RequireAuth())
	h.order.RegisterRoutes(authed)
	h.notification.RegisterRoutes(authed)

	admin := router.Group("/admin", middleware.RequireAuth(), middleware.RequireStaff())
	h.catalog.RegisterAdminRoutes(admin)
	h.order.RegisterAdminRoutes(admin)
	h.user.RegisterAdminRoutes(admin)

	return &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  config.Seconds(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.Seconds(cfg.HTTP.WriteTimeout),
	}
}
