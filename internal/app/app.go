package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/match-service/internal/cfg"
	v1Http "github.com/DRSN-tech/match-service/internal/delivery/v1/http"
	"github.com/DRSN-tech/match-service/internal/infrastructure/kafka"
	s3Repo "github.com/DRSN-tech/match-service/internal/repository/minio"
	"github.com/DRSN-tech/match-service/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/match-service/internal/repository/pgdb/converter"
	qdrantRepo "github.com/DRSN-tech/match-service/internal/repository/qdrant"
	"github.com/DRSN-tech/match-service/internal/repository/redis"
	redisConv "github.com/DRSN-tech/match-service/internal/repository/redis/converter"
	"github.com/DRSN-tech/match-service/internal/usecase"
	"github.com/DRSN-tech/match-service/pkg/clients"
	"github.com/DRSN-tech/match-service/pkg/closer"
	"github.com/DRSN-tech/match-service/pkg/e"
	"github.com/DRSN-tech/match-service/pkg/logger"
	"github.com/DRSN-tech/match-service/pkg/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const ensureTopicTimeout = 10 * time.Second

// App связывает все компоненты сервиса матчинга и управляет их жизненным циклом.
type App struct {
	cfg     *config.Config
	logger  logger.Logger
	httpSrv *v1Http.Server
	closer  *closer.Closer
}

func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	cl := closer.NewCloser(0)

	db, err := initPGDB(log, cfg)
	if err != nil {
		log.Errorf(err, "failed to initialize database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add(func(ctx context.Context) error {
		db.Close()
		return nil
	})

	minioClient, err := clients.NewMinIOClient(cfg)
	if err != nil {
		log.Errorf(err, "failed to initialize minio client")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minioCtx, minioCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := clients.EnsureBucket(minioCtx, minioClient, cfg.Minio.BucketName); err != nil {
		minioCancel()
		log.Errorf(err, "failed to check MinIO bucket")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	minioCancel()

	qdrantClient, err := clients.NewQdrantClient(cfg.Qdrant)
	if err != nil {
		log.Errorf(err, "failed to initialize qdrant")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add(func(ctx context.Context) error {
		return qdrantClient.Client.Close()
	})

	qdrantCtx, qdrantCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := clients.EnsureCollection(qdrantCtx, qdrantClient); err != nil {
		qdrantCancel()
		log.Errorf(err, "failed to initialize qdrant collection")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	qdrantCancel()

	redisClient := clients.NewRedisClient(cfg.Redis)
	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer redisCancel()
	if err := redisClient.Ping(redisCtx); err != nil {
		log.Errorf(err, "failed to connect to redis")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add(func(ctx context.Context) error {
		return redisClient.Client.Close()
	})

	producer, err := kafka.NewProducer(log, cfg.Kafka)
	if err != nil {
		log.Errorf(err, "failed to initialize kafka producer")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if err := producer.EnsureTopic(ensureTopicTimeout); err != nil {
		log.Errorf(err, "failed to ensure kafka topic")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add(func(ctx context.Context) error {
		return producer.Close()
	})

	matchConv := pgdbConv.NewMatchConverter()
	runConv := pgdbConv.NewRunConverter()
	cacheConv := redisConv.NewMatchConverter()

	matchRepo := pgdb.NewMatchRepo(db.Pool, matchConv)
	runRepo := pgdb.NewRunRepo(db.Pool, runConv)
	catalogRepo := pgdb.NewCatalogRepo(db.Pool)
	lockRepo := pgdb.NewLockRepo(db.Pool, log)
	embRepo := qdrantRepo.NewEmbeddingRepo(qdrantClient.Client, cfg.Qdrant, log)
	cacheRepo := redis.NewCacheRepo(redisClient, cacheConv, cfg.Redis, log)
	imageRepo := s3Repo.NewImageRepo(minioClient, cfg.Minio)

	matchUC := usecase.NewMatchUC(
		embRepo,
		catalogRepo,
		matchRepo,
		runRepo,
		lockRepo,
		cacheRepo,
		imageRepo,
		producer,
		usecase.NewPgxTxRunner(db.Pool),
		log,
		cfg.Matching,
	)

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, log)
	router.Init(matchUC, cfg.Matching)

	httpSrv := v1Http.NewServer(r, cfg.Http)

	return &App{
		cfg:     cfg,
		logger:  log,
		httpSrv: httpSrv,
		closer:  cl,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до сигнала остановки или фатальной
// ошибки сервера. Ресурсы закрываются в порядке, обратном созданию.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Errorf(err, "HTTP server failed: %v", err)
			errCh <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Warnf("Resource shutdown error: %v", err)
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
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Ping(); err != nil {
		logger.Errorf(err, "failed to ping database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
