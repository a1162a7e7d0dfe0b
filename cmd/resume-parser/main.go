package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"resume-parser-go/internal/api/handler"
	"resume-parser-go/internal/api/router"
	"resume-parser-go/internal/config"
	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/logger"
	"resume-parser-go/internal/metrics"
	"resume-parser-go/internal/outbox"
	"resume-parser-go/internal/processor"
	"resume-parser-go/internal/storage"
	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/worker"
)

var (
	version = constants.ParserVersion //nolint:gochecknoglobals
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}
	initLogger(cfg.Logger)
	hlog.Infof("配置加载成功, version=%s", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing, version)
	if err != nil {
		hlog.Fatalf("初始化链路追踪失败: %v", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	storageManager, err := storage.NewStorage(ctx, cfg, storage.Components{MinIO: true, RabbitMQ: true, MySQL: true, Redis: true})
	if err != nil {
		// 外部存储全部不可用时仍然提供同步解析
		hlog.Warnf("初始化存储失败，仅提供同步解析: %v", err)
		storageManager = &storage.Storage{}
	}
	defer storageManager.Close()

	cacheStore, err := storage.NewCacheStore(cfg.Cache, storageManager)
	if err != nil {
		hlog.Warnf("缓存后端 %s 不可用，改用进程内缓存: %v", cfg.Cache.Backend, err)
		cacheStore = storage.NewMemoryCacheStore(cfg.Cache.MaxEntries, config.GetDuration(cfg.Cache.TTL, constants.DefaultCacheTTL))
	}
	if closer, ok := cacheStore.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	resumeProcessor, err := processor.NewFromConfig(ctx, cfg, cacheStore, m, logger.Component("processor"))
	if err != nil {
		hlog.Fatalf("初始化简历处理器失败: %v", err)
	}
	hlog.Infof("简历处理器初始化成功, 识别后端=%s, 缓存后端=%s", cfg.Recognizer.Backend, cfg.Cache.Backend)

	timeout := processor.ProcessingTimeout(cfg)
	handlerOpts := []handler.Option{handler.WithLogger(logger.Component("handler"))}
	routerOpts := router.Options{APIKeys: cfg.Server.APIKeys, MetricsPath: cfg.Metrics.Path}
	if m != nil {
		routerOpts.MetricsHandler = m.Handler()
	}

	var repo *storage.ResultRepository
	if storageManager.MySQL != nil {
		repo = storage.NewResultRepository(storageManager.MySQL.DB())
		handlerOpts = append(handlerOpts, handler.WithResultReader(repo), handler.WithResultWriter(repo))
		routerOpts.Paginated = handler.NewResumePaginatedHandler(repo, logger.Component("handler"))
	}
	if storageManager.Redis != nil {
		handlerOpts = append(handlerOpts, handler.WithJobStatusStore(storageManager.Redis))
	}

	asyncReady := storageManager.MinIO != nil && storageManager.RabbitMQ != nil && repo != nil
	if asyncReady {
		if err := storageManager.RabbitMQ.DeclareParseTopology(); err != nil {
			hlog.Warnf("声明解析任务队列失败，关闭异步解析: %v", err)
			asyncReady = false
		}
	}

	var messageRelay *outbox.MessageRelay
	if asyncReady {
		handlerOpts = append(handlerOpts, handler.WithAsync(storageManager.MinIO, storageManager.RabbitMQ))

		messageRelay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, logger.Component("outbox"), outbox.Options{
			PollingInterval: config.GetDuration(cfg.RabbitMQ.OutboxPollInterval, 5*time.Second),
			BatchSize:       cfg.RabbitMQ.OutboxBatchSize,
			MaxRetryCount:   cfg.RabbitMQ.OutboxMaxRetryCount,
		})
		messageRelay.Start(ctx)
		hlog.Info("消息中继服务已启动")

		consumerOpts := []worker.Option{worker.WithLogger(logger.Component("worker")), worker.WithMetrics(m)}
		if storageManager.Redis != nil {
			consumerOpts = append(consumerOpts, worker.WithJobStatusStore(storageManager.Redis))
		}
		consumer := worker.NewParseConsumer(resumeProcessor, storageManager.MinIO, repo, worker.Config{
			Queue:             cfg.RabbitMQ.ParseJobQueue,
			Exchange:          cfg.RabbitMQ.ResumeExchange,
			ParsedRoutingKey:  cfg.RabbitMQ.ParsedRoutingKey,
			PrefetchCount:     cfg.RabbitMQ.PrefetchCount,
			Workers:           cfg.RabbitMQ.ConsumerWorkers,
			ProcessingTimeout: timeout,
			MaxRetries:        cfg.RabbitMQ.MaxRetries,
			RetryInterval:     config.GetDuration(cfg.RabbitMQ.RetryInterval, 5*time.Second),
		}, consumerOpts...)
		go func() {
			if err := consumer.Run(ctx, storageManager.RabbitMQ); err != nil {
				hlog.Errorf("解析任务消费者退出: %v", err)
			}
		}()
	} else {
		hlog.Warn("MinIO/RabbitMQ/MySQL 未全部就绪，异步解析未启用")
	}

	resumeHandler := handler.NewResumeHandler(resumeProcessor, handler.Settings{
		MaxFileSize:        cfg.MaxFileSize(),
		ProcessingTimeout:  timeout,
		Exchange:           cfg.RabbitMQ.ResumeExchange,
		ParseJobRoutingKey: cfg.RabbitMQ.ParseJobRoutingKey,
		SupportedFormats:   []string{"PDF", "DOCX"},
	}, handlerOpts...)

	serverTracer, tracingCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		// multipart 边界和表单字段需要额外空间
		server.WithMaxRequestBodySize(int(cfg.MaxFileSize())+1<<20),
		serverTracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracingCfg), router.RequestLogger())

	router.RegisterRoutes(h, resumeHandler, routerOpts)
	hlog.Info("HTTP路由注册成功")

	hlog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			hlog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	hlog.Info("接收到终止信号，正在优雅退出...")

	// 先停止消费和中继，再关闭服务器
	cancel()
	if messageRelay != nil {
		messageRelay.Stop()
		hlog.Info("消息中继服务已停止")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout, 10*time.Second))
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		hlog.Errorf("服务器关闭失败: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		hlog.Warnf("关闭链路追踪失败: %v", err)
	}
	hlog.Info("优雅退出完成")
}

// initLogger 初始化全局日志，并让 hertz 的 hlog 输出到同一个 zerolog 实例
func initLogger(cfg logger.Config) {
	logger.Init(cfg)

	hlog.SetLogger(hertzzerolog.From(logger.Logger))
	if level, err := zerolog.ParseLevel(cfg.Level); err == nil && level == zerolog.DebugLevel {
		hlog.SetLevel(hlog.LevelDebug)
	} else {
		hlog.SetLevel(hlog.LevelInfo)
	}
}
