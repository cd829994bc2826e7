package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DRSN-tech/digital-vault/internal/domain"
	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/DRSN-tech/digital-vault/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// cacheWriteTimeout ограничивает фоновую запись товара в кэш.
const cacheWriteTimeout = 500 * time.Millisecond

// MaxPreviews — максимальное число превью у товара.
const MaxPreviews = 10

// ProductUseCase согласует запись товара в БД с его объектами в хранилище.
//
// Общее правило для всех операций: сначала загружаются новые объекты, затем одной транзакцией
// пишется запись (вместе с событием outbox), и только после этого удаляются вытесненные объекты.
// Запись никогда не ссылается на удалённый объект; при сбое остаются объекты-сироты,
// которые подбирает сверка хранилища (SweepUseCase).
type ProductUseCase struct {
	productRepo  ProductRepository
	objectsInfra ObjectsInfra
	outboxRepo   OutboxRepository
	txManager    TxManager
	cacheRepo    CacheRepository
	eventEncoder EventEncoder
	logger       logger.Logger
	now          func() time.Time

	// staleCacheWindow — задержка повторного удаления из кэша после изменения товара
	staleCacheWindow time.Duration
}

func NewProductUC(
	productRepo ProductRepository,
	objectsInfra ObjectsInfra,
	outboxRepo OutboxRepository,
	txManager TxManager,
	cacheRepo CacheRepository,
	eventEncoder EventEncoder,
	logger logger.Logger,
) *ProductUseCase {
	return &ProductUseCase{
		productRepo:  productRepo,
		objectsInfra: objectsInfra,
		outboxRepo:   outboxRepo,
		txManager:    txManager,
		cacheRepo:    cacheRepo,
		eventEncoder: eventEncoder,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },

		staleCacheWindow: 2 * cacheWriteTimeout,
	}
}

// CreateProduct загружает превью и файл товара, и только после успешной загрузки всех объектов создаёт запись.
func (p *ProductUseCase) CreateProduct(ctx context.Context, req *CreateProductReq) (*domain.Product, error) {
	const op = "ProductUseCase.CreateProduct"

	if err := p.validateCreate(req); err != nil {
		return nil, e.Wrap(op, e.Mark(e.ErrValidationFailed, err))
	}

	previewNS, assetNS := p.objectsInfra.Namespaces()
	objects := make([]UploadObject, 0, len(req.Previews)+1)
	for _, preview := range req.Previews {
		objects = append(objects, UploadObject{Namespace: previewNS, File: preview, Visibility: domain.VisibilityPublic})
	}
	objects = append(objects, UploadObject{Namespace: assetNS, File: *req.Asset, Visibility: domain.VisibilityPrivate})

	uploaded, err := p.uploadObjects(ctx, objects)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	previewURLs := make([]string, 0, len(req.Previews))
	for _, obj := range uploaded.Objects[:len(req.Previews)] {
		previewURLs = append(previewURLs, obj.Address)
	}
	assetKey := uploaded.Objects[len(req.Previews)].Key

	product := domain.NewProduct(
		uuid.NewString(),
		strings.TrimSpace(req.Title),
		strings.TrimSpace(req.Description),
		req.Price,
		req.Status,
		req.CategoryID,
		req.UserID,
		previewURLs,
		assetKey,
	)

	var created *domain.Product
	err = p.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		if created, err = p.productRepo.Insert(ctx, product); err != nil {
			return err
		}

		return p.appendEvent(ctx, ProductCreated, created)
	})
	if err != nil {
		return nil, e.Wrap(op, p.persistFailure(op, err, uploaded.Keys()))
	}

	p.logger.Infof("product created: id=%s previews=%d asset=%s", created.ID, len(created.PreviewURLs), created.AssetKey)
	return created, nil
}

// UpdateProduct применяет изменения метаданных и, при необходимости, заменяет набор превью и/или файл товара.
// Превью заменяются целиком: новый непустой набор вытесняет все старые адреса.
func (p *ProductUseCase) UpdateProduct(ctx context.Context, req *UpdateProductReq) (*domain.Product, error) {
	const op = "ProductUseCase.UpdateProduct"

	current, err := p.productRepo.FindByID(ctx, req.ID)
	if err != nil {
		return nil, e.Wrap(op, lookupFailure(err))
	}

	if err := authorize(req.Actor, current); err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := p.validateUpdate(req); err != nil {
		return nil, e.Wrap(op, e.Mark(e.ErrValidationFailed, err))
	}

	patch := metadataPatch(req)
	replacePreviews := len(req.Previews) > 0
	replaceAsset := req.Asset != nil

	var uploadedKeys []string
	if replacePreviews || replaceAsset {
		previewNS, assetNS := p.objectsInfra.Namespaces()
		objects := make([]UploadObject, 0, len(req.Previews)+1)
		for _, preview := range req.Previews {
			objects = append(objects, UploadObject{Namespace: previewNS, File: preview, Visibility: domain.VisibilityPublic})
		}
		if replaceAsset {
			objects = append(objects, UploadObject{Namespace: assetNS, File: *req.Asset, Visibility: domain.VisibilityPrivate})
		}

		// Ошибка загрузки прерывает обновление до любых удалений и записи в БД
		uploaded, err := p.uploadObjects(ctx, objects)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		uploadedKeys = uploaded.Keys()

		if replacePreviews {
			urls := make([]string, 0, len(req.Previews))
			for _, obj := range uploaded.Objects[:len(req.Previews)] {
				urls = append(urls, obj.Address)
			}
			patch.PreviewURLs = &urls
		}
		if replaceAsset {
			key := uploaded.Objects[len(uploaded.Objects)-1].Key
			patch.AssetKey = &key
		}
	}

	if patch.IsEmpty() {
		return current, nil
	}

	var updated *domain.Product
	err = p.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		if updated, err = p.productRepo.Update(ctx, current.ID, patch); err != nil {
			return err
		}

		return p.appendEvent(ctx, ProductUpdated, updated)
	})
	if err != nil {
		return nil, e.Wrap(op, p.persistFailure(op, err, uploadedKeys))
	}

	// Запись уже ссылается на новые объекты, вытесненные можно удалять
	p.dropSuperseded(ctx, op, current, replacePreviews, replaceAsset)
	p.evict(ctx, op, current.ID)

	return updated, nil
}

// DeleteProduct удаляет объекты товара (best-effort) и затем саму запись.
// Сбой хранилища не мешает удалению записи.
func (p *ProductUseCase) DeleteProduct(ctx context.Context, req *DeleteProductReq) error {
	const op = "ProductUseCase.DeleteProduct"

	current, err := p.productRepo.FindByID(ctx, req.ID)
	if err != nil {
		return e.Wrap(op, lookupFailure(err))
	}

	if err := authorize(req.Actor, current); err != nil {
		return e.Wrap(op, err)
	}

	// Объекты удаляются, пока запись ещё хранит полный список ключей
	keys := p.previewKeys(op, current.PreviewURLs)
	if current.AssetKey != "" {
		keys = append(keys, current.AssetKey)
	}
	if failed := p.objectsInfra.DeleteObjects(ctx, keys); len(failed) > 0 {
		p.logger.Warnf("%s: product %s: objects left in storage: %v", op, current.ID, failed)
	}

	err = p.txManager.Do(ctx, func(ctx context.Context) error {
		if err := p.productRepo.Delete(ctx, current.ID); err != nil {
			return err
		}

		return p.appendEvent(ctx, ProductDeleted, current)
	})
	if err != nil {
		return e.Wrap(op, lookupFailure(err))
	}

	p.evict(ctx, op, current.ID)
	p.logger.Infof("product deleted: id=%s", current.ID)
	return nil
}

// GetProduct возвращает товар, сначала заглядывая в кэш.
func (p *ProductUseCase) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	const op = "ProductUseCase.GetProduct"

	if cached, err := p.cacheRepo.GetProduct(ctx, id); err != nil {
		p.logger.Warnf("%s: cache read failed: %v", op, err)
	} else if cached != nil {
		return cached, nil
	}

	product, err := p.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, e.Wrap(op, lookupFailure(err))
	}

	// Фоновое добавление товара в кэш. Срок записи отсчитывается от чтения из БД,
	// поэтому запись с устаревшими данными не переживёт повторное удаление в evict.
	bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	go func() {
		defer cancel()

		if err := p.cacheRepo.SetProduct(bgCtx, product); err != nil {
			p.logger.Warnf("%s: failed to cache product in background: %v", op, err)
		}
	}()

	return product, nil
}

func (p *ProductUseCase) ListProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "ProductUseCase.ListProducts"

	products, err := p.productRepo.FindAll(ctx)
	if err != nil {
		return nil, e.Wrap(op, e.Mark(e.ErrPersistenceFailed, err))
	}

	return products, nil
}

// ListUserProducts возвращает товары продавца, упорядоченные по названию.
func (p *ProductUseCase) ListUserProducts(ctx context.Context, userID string) ([]domain.Product, error) {
	const op = "ProductUseCase.ListUserProducts"

	products, err := p.productRepo.FindByOwner(ctx, userID)
	if err != nil {
		return nil, e.Wrap(op, e.Mark(e.ErrPersistenceFailed, err))
	}

	return products, nil
}

// uploadObjects загружает набор объектов и проверяет, что результат соответствует запросу.
func (p *ProductUseCase) uploadObjects(ctx context.Context, objects []UploadObject) (*UploadObjectsRes, error) {
	uploaded, err := p.objectsInfra.UploadObjects(ctx, NewUploadObjectsReq(objects))
	if err != nil {
		return nil, e.Mark(e.ErrStorageFailed, err)
	}

	if len(uploaded.Objects) != len(objects) {
		p.objectsInfra.CleanupObjects(uploaded.Keys())
		return nil, e.Mark(e.ErrStorageFailed, fmt.Errorf("uploaded %d of %d objects", len(uploaded.Objects), len(objects)))
	}

	return uploaded, nil
}

// persistFailure классифицирует ошибку записи в БД, случившуюся после загрузки новых объектов.
// Если запись заведомо не состоялась (нарушена ссылка на категорию или товар уже удалён),
// новые объекты удаляются в фоне. Иначе исход записи неизвестен, и объекты остаются до сверки хранилища.
func (p *ProductUseCase) persistFailure(op string, err error, uploadedKeys []string) error {
	switch {
	case errors.Is(err, e.ErrCategoryNotFound):
		p.objectsInfra.CleanupObjects(uploadedKeys)
		return e.Mark(e.ErrValidationFailed, err)
	case errors.Is(err, e.ErrProductNotFound):
		p.objectsInfra.CleanupObjects(uploadedKeys)
		return err
	default:
		if len(uploadedKeys) > 0 {
			p.logger.Warnf("%s: record write failed, objects left for sweep: %v", op, uploadedKeys)
		}
		return e.Mark(e.ErrPersistenceFailed, err)
	}
}

// dropSuperseded удаляет объекты, на которые запись больше не ссылается. Ошибки только логируются.
func (p *ProductUseCase) dropSuperseded(ctx context.Context, op string, old *domain.Product, previews, asset bool) {
	var keys []string
	if previews {
		keys = append(keys, p.previewKeys(op, old.PreviewURLs)...)
	}
	if asset && old.AssetKey != "" {
		keys = append(keys, old.AssetKey)
	}
	if len(keys) == 0 {
		return
	}

	if failed := p.objectsInfra.DeleteObjects(context.WithoutCancel(ctx), keys); len(failed) > 0 {
		p.logger.Warnf("%s: product %s: superseded objects left in storage: %v", op, old.ID, failed)
	}
}

// previewKeys переводит публичные адреса превью в ключи хранилища, пропуская чужие адреса.
func (p *ProductUseCase) previewKeys(op string, urls []string) []string {
	keys := make([]string, 0, len(urls)+1)
	for _, url := range urls {
		key, err := p.objectsInfra.KeyFromURL(url)
		if err != nil {
			p.logger.Warnf("%s: skip preview %q: %v", op, url, err)
			continue
		}
		keys = append(keys, key)
	}

	return keys
}

func (p *ProductUseCase) evict(ctx context.Context, op string, id string) {
	ctx = context.WithoutCancel(ctx)
	if err := p.cacheRepo.DeleteProduct(ctx, id); err != nil {
		p.logger.Warnf("%s: failed to evict product %s from cache: %v", op, id, err)
	}

	// GetProduct мог прочитать товар до изменения и записать его в кэш уже после удаления
	time.AfterFunc(p.staleCacheWindow, func() {
		delCtx, cancel := context.WithTimeout(ctx, cacheWriteTimeout)
		defer cancel()

		if err := p.cacheRepo.DeleteProduct(delCtx, id); err != nil {
			p.logger.Warnf("%s: failed to evict stale product %s from cache: %v", op, id, err)
		}
	})
}

// appendEvent пишет событие outbox в текущей транзакции.
func (p *ProductUseCase) appendEvent(ctx context.Context, eventType OutboxEventType, product *domain.Product) error {
	eventID := uuid.NewString()
	occurredAt := p.now()

	payload, err := p.eventEncoder.Encode(eventID, eventType, product, occurredAt)
	if err != nil {
		return err
	}

	_, err = p.outboxRepo.Create(ctx, NewOutboxEvent(eventID, eventType, product.ID, payload, occurredAt))
	return err
}

// validateCreate проверяет запрос на создание до любого обращения к хранилищу.
func (p *ProductUseCase) validateCreate(req *CreateProductReq) error {
	if req.Asset == nil || len(req.Asset.Data) == 0 {
		return e.ErrAssetRequired
	}

	if strings.TrimSpace(req.Title) == "" {
		return e.ErrTitleRequired
	}

	if strings.TrimSpace(req.Description) == "" {
		return e.ErrDescriptionRequired
	}

	if err := validatePrice(req.Price); err != nil {
		return err
	}

	if req.Status != "" && !req.Status.IsValid() {
		return e.ErrInvalidStatus
	}

	if strings.TrimSpace(req.CategoryID) == "" {
		return e.ErrCategoryRequired
	}

	if strings.TrimSpace(req.UserID) == "" {
		return e.ErrOwnerRequired
	}

	return validatePreviews(req.Previews)
}

// validateUpdate проверяет только переданные поля.
func (p *ProductUseCase) validateUpdate(req *UpdateProductReq) error {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return e.ErrTitleRequired
	}

	if req.Description != nil && strings.TrimSpace(*req.Description) == "" {
		return e.ErrDescriptionRequired
	}

	if req.Price != nil {
		if err := validatePrice(*req.Price); err != nil {
			return err
		}
	}

	if req.Status != nil && !req.Status.IsValid() {
		return e.ErrInvalidStatus
	}

	if req.CategoryID != nil && strings.TrimSpace(*req.CategoryID) == "" {
		return e.ErrCategoryRequired
	}

	if req.Asset != nil && len(req.Asset.Data) == 0 {
		return e.ErrAssetRequired
	}

	return validatePreviews(req.Previews)
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return e.ErrInvalidPrice
	}

	if !price.Equal(price.Round(2)) {
		return e.ErrPricePrecision
	}

	return nil
}

func validatePreviews(previews []ProductFile) error {
	if len(previews) > MaxPreviews {
		return e.ErrTooManyImages
	}

	for _, preview := range previews {
		if len(preview.Data) == 0 {
			return e.Wrap(preview.Name, e.ErrMissingFields)
		}
	}

	return nil
}

// metadataPatch собирает патч скалярных полей из запроса.
func metadataPatch(req *UpdateProductReq) *domain.ProductPatch {
	patch := &domain.ProductPatch{
		Price:      req.Price,
		Status:     req.Status,
		CategoryID: req.CategoryID,
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		patch.Title = &title
	}

	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		patch.Description = &description
	}

	return patch
}

// authorize разрешает изменение владельцу товара и администратору. nil actor означает внутренний вызов.
func authorize(actor *Actor, product *domain.Product) error {
	if actor == nil || actor.IsAdmin || actor.UserID == product.UserID {
		return nil
	}

	return e.ErrForbidden
}

func lookupFailure(err error) error {
	if errors.Is(err, e.ErrProductNotFound) {
		return err
	}

	return e.Mark(e.ErrPersistenceFailed, err)
}
