package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/digital-vault/internal/cfg"
	v1Grpc "github.com/DRSN-tech/digital-vault/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/digital-vault/internal/delivery/v1/http"
	"github.com/DRSN-tech/digital-vault/internal/infrastructure"
	"github.com/DRSN-tech/digital-vault/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/digital-vault/internal/infrastructure/minio"
	s3Repo "github.com/DRSN-tech/digital-vault/internal/repository/minio"
	"github.com/DRSN-tech/digital-vault/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/digital-vault/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/digital-vault/internal/repository/redis"
	redisConv "github.com/DRSN-tech/digital-vault/internal/repository/redis/converter"
	"github.com/DRSN-tech/digital-vault/internal/usecase"
	"github.com/DRSN-tech/digital-vault/pkg/clients"
	"github.com/DRSN-tech/digital-vault/pkg/closer"
	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/DRSN-tech/digital-vault/pkg/logger"
	"github.com/DRSN-tech/digital-vault/pkg/postgres"
	"github.com/DRSN-tech/digital-vault/pkg/tr"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

const (
	shutdownTimeout = 15 * time.Second
	startupTimeout  = 10 * time.Second
)

// App — собранный сервис: HTTP и gRPC API, воркер outbox и все их зависимости.
type App struct {
	cfg     *config.Config
	logger  logger.Logger
	closer  *closer.Closer
	httpSrv *v1Http.Server
	grpcSrv *v1Grpc.GRPCServer
	worker  *kafka.OutboxWorker
	ctx     context.Context
}

// NewApp инициализирует зависимости. Всё, что успело открыться до ошибки, закрывается.
func NewApp(cfg *config.Config, logger logger.Logger) (app *App, err error) {
	cl := closer.NewCloser(0)
	defer func() {
		if err != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if closeErr := cl.Close(ctx); closeErr != nil {
				logger.Warnf("partial init cleanup: %v", closeErr)
			}
		}
	}()

	// Контекст фоновых задач живёт до завершения очистки объектов при остановке
	ctx, cancel := context.WithCancel(context.Background())
	cl.Add("background context", func(context.Context) error {
		cancel()
		return nil
	})

	db, err := initPGDB(logger, cfg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add("postgres", func(context.Context) error {
		db.Close()
		return nil
	})

	minioClient, err := initMinio(cfg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redisClient := clients.NewRedisClient(cfg.Redis)
	cl.Add("redis", func(context.Context) error { return redisClient.Close() })

	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer redisCancel()
	if err := redisClient.Ping(redisCtx); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	producer, err := kafka.NewProducer(logger, cfg.Kafka)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add("kafka producer", func(context.Context) error { return producer.Close() })

	if err := producer.EnsureTopic(startupTimeout); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	locator := infrastructure.NewObjectLocator(cfg.Minio.PublicEndpoint, cfg.Minio.BucketName, cfg.Minio.PublicUseSSL)
	objectRepo := s3Repo.NewObjectRepo(minioClient, cfg.Minio, locator)
	objectsInfra := minioInfra.NewMinioInfrastructure(objectRepo, locator, cfg.Minio, logger, ctx)
	cl.Add("minio cleanup", objectsInfra.WaitForCleanup)

	productRepo := pgdb.NewProductRepo(db.Pool, pgdbConv.ProductConverter{})
	categoryRepo := pgdb.NewCategoryRepo(db.Pool, pgdbConv.CategoryConverter{})
	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.OutboxEventConverter{})
	cacheRepo := redis.NewCacheRepo(redisClient, redisConv.ProductConverter{}, cfg.Redis, logger)

	productUC := usecase.NewProductUC(
		productRepo,
		objectsInfra,
		outboxRepo,
		tr.NewManager(db.Pool),
		cacheRepo,
		kafka.NewProtoEventEncoder(),
		logger,
	)
	categoryUC := usecase.NewCategoryUC(categoryRepo)

	worker := kafka.NewOutboxWorker(
		outboxRepo,
		logger,
		producer,
		db.Dsn,
		cfg.Kafka.OutboxBatchSize,
		cfg.Kafka.OutboxPollPeriod,
	)
	cl.Add("outbox worker", func(context.Context) error {
		worker.Stop()
		return nil
	})

	grpcSrv := v1Grpc.NewGRPCServer(cfg.Grpc, logger)
	grpcSrv.RegisterServices(productUC)
	cl.Add("grpc server", grpcSrv.Stop)

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, logger)
	router.Init(
		productUC,
		categoryUC,
		v1Http.NewAuthenticator(cfg.Auth.JWTSecret, logger),
		db.Ping,
	)

	httpSrv := v1Http.NewServer(r, cfg.Http)
	cl.Add("http server", httpSrv.Stop)

	return &App{
		cfg:     cfg,
		logger:  logger,
		closer:  cl,
		httpSrv: httpSrv,
		grpcSrv: grpcSrv,
		worker:  worker,
		ctx:     ctx,
	}, nil
}

// Run запускает серверы и воркер и блокируется до сигнала остановки или падения сервера.
func (a *App) Run() error {
	a.worker.Start(a.ctx)

	grpcErrCh := make(chan error, 1)
	go func() {
		a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := a.grpcSrv.Start(); err != nil {
			grpcErrCh <- err
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case appErr = <-grpcErrCh:
		a.logger.Errorf(appErr, "gRPC server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Errorf(err, "shutdown finished with errors")
		if appErr == nil {
			appErr = err
		}
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func initPGDB(logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		db.Close()
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}

func initMinio(cfg *config.Config) (*minio.Client, error) {
	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if err := clients.EnsureBucket(ctx, minioClient, cfg.Minio.BucketName, cfg.Minio.PreviewPrefix); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return minioClient, nil
}
