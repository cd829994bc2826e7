package app

import (
	"context"
	"time"

	config "github.com/DRSN-tech/digital-vault/internal/cfg"
	"github.com/DRSN-tech/digital-vault/internal/infrastructure"
	minioInfra "github.com/DRSN-tech/digital-vault/internal/infrastructure/minio"
	s3Repo "github.com/DRSN-tech/digital-vault/internal/repository/minio"
	"github.com/DRSN-tech/digital-vault/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/digital-vault/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/digital-vault/internal/usecase"
	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/DRSN-tech/digital-vault/pkg/logger"
	"github.com/DRSN-tech/digital-vault/pkg/postgres"
	"github.com/jimlawless/whereami"
)

// RunSweep выполняет один проход сверки хранилища с записями товаров и удаляет осиротевшие объекты.
func RunSweep(ctx context.Context, cfg *config.Config, logger logger.Logger) (*usecase.SweepRes, error) {
	db, err := postgres.Connect(cfg.Db)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer db.Close()

	minioClient, err := initMinio(cfg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	locator := infrastructure.NewObjectLocator(cfg.Minio.PublicEndpoint, cfg.Minio.BucketName, cfg.Minio.PublicUseSSL)
	objectRepo := s3Repo.NewObjectRepo(minioClient, cfg.Minio, locator)
	objectsInfra := minioInfra.NewMinioInfrastructure(objectRepo, locator, cfg.Minio, logger, ctx)
	defer func() {
		waitCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := objectsInfra.WaitForCleanup(waitCtx); err != nil {
			logger.Warnf("sweep cleanup: %v", err)
		}
	}()

	sweepUC := usecase.NewSweepUC(
		pgdb.NewProductRepo(db.Pool, pgdbConv.ProductConverter{}),
		objectRepo,
		objectsInfra,
		cfg.Sweep.GracePeriod,
		cfg.Sweep.DryRun,
		logger,
	)

	res, err := sweepUC.Sweep(ctx, time.Now().UTC())
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return res, nil
}
