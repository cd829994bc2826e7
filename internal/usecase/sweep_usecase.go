package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/DRSN-tech/digital-vault/pkg/logger"
)

// SweepUseCase удаляет объекты, на которые не ссылается ни одна запись товара.
// Объекты моложе gracePeriod не трогаются: они могут принадлежать операции, которая ещё не записала товар.
type SweepUseCase struct {
	productRepo  ProductRepository
	objectRepo   ObjectRepository
	objectsInfra ObjectsInfra
	gracePeriod  time.Duration
	dryRun       bool
	logger       logger.Logger
}

func NewSweepUC(
	productRepo ProductRepository,
	objectRepo ObjectRepository,
	objectsInfra ObjectsInfra,
	gracePeriod time.Duration,
	dryRun bool,
	logger logger.Logger,
) *SweepUseCase {
	return &SweepUseCase{
		productRepo:  productRepo,
		objectRepo:   objectRepo,
		objectsInfra: objectsInfra,
		gracePeriod:  gracePeriod,
		dryRun:       dryRun,
		logger:       logger,
	}
}

// Sweep сверяет содержимое хранилища с записями товаров. Повторный запуск безопасен.
func (s *SweepUseCase) Sweep(ctx context.Context, now time.Time) (*SweepRes, error) {
	const op = "SweepUseCase.Sweep"

	// Ссылки читаются до листинга: объект, загруженный позже, попадёт под grace period
	refs, err := s.productRepo.ObjectRefs(ctx)
	if err != nil {
		return nil, e.Wrap(op, e.Mark(e.ErrPersistenceFailed, err))
	}

	// Ссылку, которую нельзя сопоставить ключу, нельзя и исключить из удаления.
	// Обычно это смена публичного адреса или бакета, поэтому проход прерывается целиком.
	referenced := make(map[string]struct{}, len(refs.PreviewURLs)+len(refs.AssetKeys))
	for _, url := range refs.PreviewURLs {
		key, err := s.objectsInfra.KeyFromURL(url)
		if err != nil {
			s.logger.Errorf(err, "%s: unresolvable preview url %q, sweep aborted", op, url)
			return nil, e.Wrap(op, e.Mark(e.ErrPersistenceFailed, fmt.Errorf("preview %q: %w", url, err)))
		}
		referenced[key] = struct{}{}
	}
	for _, key := range refs.AssetKeys {
		referenced[key] = struct{}{}
	}

	res := &SweepRes{DryRun: s.dryRun}
	previews, assets := s.objectsInfra.Namespaces()
	for _, prefix := range []string{previews, assets} {
		objects, err := s.objectRepo.List(ctx, prefix+"/")
		if err != nil {
			return nil, e.Wrap(op, e.Mark(e.ErrStorageFailed, err))
		}

		for _, obj := range objects {
			res.Scanned++
			if _, ok := referenced[obj.Key]; ok {
				res.Referenced++
				continue
			}
			if now.Sub(obj.LastModified) < s.gracePeriod {
				res.Young++
				continue
			}
			res.Orphans = append(res.Orphans, obj.Key)
		}
	}

	if s.dryRun || len(res.Orphans) == 0 {
		s.logger.Infof("sweep finished: scanned=%d referenced=%d young=%d orphans=%d dry_run=%t",
			res.Scanned, res.Referenced, res.Young, len(res.Orphans), s.dryRun)
		return res, nil
	}

	res.Failed = s.objectsInfra.DeleteObjects(ctx, res.Orphans)
	failed := make(map[string]struct{}, len(res.Failed))
	for _, key := range res.Failed {
		failed[key] = struct{}{}
	}
	for _, key := range res.Orphans {
		if _, ok := failed[key]; !ok {
			res.Deleted = append(res.Deleted, key)
		}
	}

	s.logger.Infof("sweep finished: scanned=%d referenced=%d young=%d deleted=%d failed=%d",
		res.Scanned, res.Referenced, res.Young, len(res.Deleted), len(res.Failed))
	return res, nil
}
