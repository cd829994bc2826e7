package minio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/digital-vault/internal/cfg"
	"github.com/DRSN-tech/digital-vault/internal/domain"
	"github.com/DRSN-tech/digital-vault/internal/infrastructure"
	"github.com/DRSN-tech/digital-vault/internal/usecase"
	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/DRSN-tech/digital-vault/pkg/jitter"
	"github.com/DRSN-tech/digital-vault/pkg/logger"
)

const (
	cleanupAttempts = 3
	cleanupTimeout  = 30 * time.Second
	defaultMIME     = "application/octet-stream"
)

// MinioInfrastructure управляет загрузкой и удалением наборов объектов товара в MinIO.
type MinioInfrastructure struct {
	objectRepo   usecase.ObjectRepository
	locator      *infrastructure.ObjectLocator
	cfg          *cfg.MinIOCfg
	logger       logger.Logger
	shutdownCtx  context.Context
	wg           sync.WaitGroup
	uploadLimit  int
	retryBackoff time.Duration
}

func NewMinioInfrastructure(
	objectRepo usecase.ObjectRepository,
	locator *infrastructure.ObjectLocator,
	cfg *cfg.MinIOCfg,
	logger logger.Logger,
	shutdownCtx context.Context,
) *MinioInfrastructure {
	limit := cfg.UploadLimit
	if limit <= 0 {
		limit = 1
	}

	return &MinioInfrastructure{
		objectRepo:   objectRepo,
		locator:      locator,
		cfg:          cfg,
		logger:       logger,
		shutdownCtx:  shutdownCtx,
		wg:           sync.WaitGroup{},
		uploadLimit:  limit,
		retryBackoff: time.Second,
	}
}

type uploadResult struct {
	idx int
	obj usecase.UploadedObject
}

// UploadObjects загружает объекты в MinIO параллельно с ограничением одновременных операций.
// Результат возвращается в порядке запроса. При первой ошибке остальные загрузки отменяются,
// а всё, что успело загрузиться, удаляется в фоне.
func (m *MinioInfrastructure) UploadObjects(ctx context.Context, req *usecase.UploadObjectsReq) (*usecase.UploadObjectsRes, error) {
	const op = "MinioInfrastructure.UploadObjects"
	// Отмена остальных загрузок при первой ошибке
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n := len(req.Objects)
	resCh := make(chan uploadResult, n)
	errCh := make(chan error, n)
	sem := make(chan struct{}, m.uploadLimit)

	for idx, obj := range req.Objects {
		go func() {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}

			uploaded, err := m.put(ctx, obj)
			if err != nil {
				errCh <- fmt.Errorf("upload %s failed: %w", obj.File.Name, err)
				return
			}

			resCh <- uploadResult{idx: idx, obj: *uploaded}
		}()
	}

	// Ждём все горутины, чтобы не потерять ключи, загруженные после первой ошибки
	objects := make([]usecase.UploadedObject, n)
	keys := make([]string, 0, n)
	var firstErr error
	for completed := 0; completed < n; completed++ {
		select {
		case res := <-resCh:
			objects[res.idx] = res.obj
			keys = append(keys, res.obj.Key)
		case err := <-errCh:
			if firstErr == nil {
				firstErr = err
				cancel()
			}
		}
	}

	if firstErr != nil {
		m.CleanupObjects(keys)
		return nil, e.Wrap(op, firstErr)
	}

	return usecase.NewUploadObjectsRes(objects), nil
}

func (m *MinioInfrastructure) put(ctx context.Context, obj usecase.UploadObject) (*usecase.UploadedObject, error) {
	contentType := obj.File.MimeType
	if contentType == "" {
		contentType = defaultMIME
	}

	key := infrastructure.NewObjectKey(obj.Namespace, obj.File.Name, contentType)
	stored := domain.NewStoredObject(m.cfg.BucketName, key, obj.File.Data, contentType, obj.Visibility)

	address, err := m.objectRepo.Put(ctx, stored)
	if err != nil {
		return nil, err
	}

	return &usecase.UploadedObject{Key: key, Address: address}, nil
}

// DeleteObjects удаляет объекты параллельно и возвращает ключи, которые удалить не удалось, в порядке запроса.
func (m *MinioInfrastructure) DeleteObjects(ctx context.Context, keys []string) []string {
	const op = "MinioInfrastructure.DeleteObjects"

	failed := make([]bool, len(keys))
	sem := make(chan struct{}, m.uploadLimit)

	var wg sync.WaitGroup
	for idx, key := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := m.objectRepo.Delete(ctx, key); err != nil {
				m.logger.Warnf("%s: failed to delete %s: %v", op, key, err)
				failed[idx] = true
			}
		}()
	}
	wg.Wait()

	var res []string
	for idx, key := range keys {
		if failed[idx] {
			res = append(res, key)
		}
	}

	return res
}

// CleanupObjects запускает фоновую очистку указанных ключей MinIO
func (m *MinioInfrastructure) CleanupObjects(keys []string) {
	if len(keys) == 0 {
		return
	}
	m.wg.Add(1)
	go m.cleanupKeys(keys)
}

// cleanupKeys удаляет указанные объекты из MinIO с экспоненциальной задержкой и jitter.
func (m *MinioInfrastructure) cleanupKeys(keys []string) {
	defer m.wg.Done()
	const op = "MinioInfrastructure.cleanupKeys"
	m.logger.Infof("%s: cleaning up %d objects", op, len(keys))

	ctx, cancel := context.WithTimeout(m.shutdownCtx, cleanupTimeout)
	defer cancel()

	for _, key := range keys {
		for attempt := 0; attempt < cleanupAttempts; attempt++ {
			err := m.objectRepo.Delete(ctx, key)
			if err == nil {
				break
			}

			if attempt == cleanupAttempts-1 {
				m.logger.Errorf(err, "%s: giving up on %s, left for sweep", op, key)
				break
			}

			select {
			case <-time.After(jitter.ExponentialBackoff(m.retryBackoff, 10*m.retryBackoff, attempt, jitter.DefaultJitter)):
			case <-ctx.Done():
				m.logger.Warnf("%s: cleanup interrupted by shutdown, key=%v", op, key)
				return
			}
		}
	}
}

// KeyFromURL восстанавливает ключ объекта по публичному адресу превью.
func (m *MinioInfrastructure) KeyFromURL(url string) (string, error) {
	return m.locator.KeyFromURL(url)
}

func (m *MinioInfrastructure) Namespaces() (string, string) {
	return m.cfg.PreviewPrefix, m.cfg.AssetPrefix
}

// WaitForCleanup ожидает завершения всех фоновых задач очистки с учётом таймаута завершения приложения.
func (m *MinioInfrastructure) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("minio cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}
