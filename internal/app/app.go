package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DRSN-tech/catalog-backend/db"
	config "github.com/DRSN-tech/catalog-backend/internal/cfg"
	v1Http "github.com/DRSN-tech/catalog-backend/internal/delivery/v1/http"
	"github.com/DRSN-tech/catalog-backend/internal/infrastructure/excel"
	"github.com/DRSN-tech/catalog-backend/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/catalog-backend/internal/infrastructure/minio"
	"github.com/DRSN-tech/catalog-backend/internal/infrastructure/upload"
	fileRepo "github.com/DRSN-tech/catalog-backend/internal/repository/file"
	s3Repo "github.com/DRSN-tech/catalog-backend/internal/repository/minio"
	"github.com/DRSN-tech/catalog-backend/internal/repository/pgdb"
	"github.com/DRSN-tech/catalog-backend/internal/repository/redis"
	"github.com/DRSN-tech/catalog-backend/internal/usecase"
	"github.com/DRSN-tech/catalog-backend/pkg/clients"
	"github.com/DRSN-tech/catalog-backend/pkg/closer"
	"github.com/DRSN-tech/catalog-backend/pkg/e"
	"github.com/DRSN-tech/catalog-backend/pkg/logger"
	"github.com/DRSN-tech/catalog-backend/pkg/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

// App собирает зависимости каталога и управляет жизненным циклом процесса.
type App struct {
	cfg     *config.Config
	logger  logger.Logger
	closer  *closer.Closer
	httpSrv *v1Http.Server

	// shutdownCtx отменяется при остановке, фоновые задачи прекращают повторы
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// NewApp инициализирует хранилище, необязательные интеграции и HTTP-сервер.
// При ошибке уже открытые ресурсы закрываются.
func NewApp(cfg *config.Config, logger logger.Logger) (*App, error) {
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	a := &App{
		cfg:            cfg,
		logger:         logger,
		closer:         closer.NewCloser(0, logger),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	if err := a.init(); err != nil {
		shutdownCancel()
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Http.ShutdownTimeout)
		defer cancel()
		if closeErr := a.closer.Close(ctx); closeErr != nil {
			logger.Warnf("cleanup after failed init: %v", closeErr)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return a, nil
}

func (a *App) init() error {
	productRepo, err := a.initProductRepo()
	if err != nil {
		return err
	}

	uploader := upload.NewUploader(a.cfg.Storage.UploadsDir, config.UploadsSubdir)
	if err := uploader.EnsureDir(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	cacheRepo, err := a.initCache()
	if err != nil {
		return err
	}

	imagesInfra, err := a.initImageMirror()
	if err != nil {
		return err
	}

	var publisher usecase.EventPublisher
	if a.cfg.Kafka != nil {
		producer := kafka.NewProducer(a.logger, a.cfg.Kafka)
		a.closer.Add("kafka producer", producer.Close)
		publisher = producer
	}

	productUC := usecase.NewProductUC(
		productRepo,
		cacheRepo,
		uploader,
		imagesInfra,
		publisher,
		excel.NewSheetParser(),
		a.cfg.Catalog,
		a.logger,
	)
	a.closer.Add("product cache refills", productUC.Wait)

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, a.logger)
	router.Init(productUC, a.cfg.Storage.PublicDir)

	a.httpSrv = v1Http.NewServer(r, a.cfg.Http)
	a.closer.Add("http server", a.httpSrv.Stop)

	return nil
}

func (a *App) initProductRepo() (usecase.ProductRepository, error) {
	switch a.cfg.Storage.Driver {
	case config.StoreDriverPostgres:
		pg, err := initPGDB(a.logger, a.cfg)
		if err != nil {
			return nil, err
		}
		a.closer.Add("postgres", pg.Close)
		a.logger.Infof("product store: postgres")
		return pgdb.NewProductRepo(pg.Pool), nil
	default:
		a.logger.Infof("product store: %s", a.cfg.Storage.ProductsPath)
		return fileRepo.NewProductRepo(a.cfg.Storage.ProductsPath), nil
	}
}

func (a *App) initCache() (usecase.CacheRepository, error) {
	if a.cfg.Redis == nil {
		return nil, nil
	}

	redisClient := clients.NewRedisClient(a.cfg.Redis)
	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer redisCancel()
	if err := redisClient.Ping(redisCtx); err != nil {
		redisClient.Close(redisCtx)
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("redis", redisClient.Close)

	return redis.NewCacheRepo(redisClient, a.cfg.Redis, a.logger), nil
}

func (a *App) initImageMirror() (usecase.ImagesInfra, error) {
	if a.cfg.Minio == nil {
		return nil, nil
	}

	minioClient, err := clients.NewMinIOClient(a.cfg.Minio)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minioCtx, minioCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer minioCancel()
	if err := clients.EnsureBucket(minioCtx, minioClient, a.cfg.Minio.BucketName); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	imageRepo := s3Repo.NewImageRepo(minioClient, a.cfg.Minio)
	imagesInfra := minioInfra.NewMinioInfrastructure(imageRepo, a.logger, a.shutdownCtx)
	a.closer.Add("minio mirror", imagesInfra.Wait)

	return imagesInfra, nil
}

// Run запускает HTTP-сервер и блокируется до сигнала остановки или фатальной ошибки сервера.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	a.shutdownCancel()
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Http.ShutdownTimeout)
	defer cancel()

	if err := a.closer.Close(ctx); err != nil {
		a.logger.Errorf(err, "shutdown finished with errors")
		if appErr == nil {
			appErr = err
		}
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func initPGDB(logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	pg, err := postgres.Connect(cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := pg.RunMigrations(db.Migrations, db.MigrationsDir, logger); err != nil {
		logger.Errorf(err, "failed to run migrations")
		pg.Close(context.Background())
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return pg, nil
}
