package usecase

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/digital-vault/internal/domain"
	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/DRSN-tech/digital-vault/pkg/logger"
	"github.com/shopspring/decimal"
)

const testPublicBase = "http://cdn.test/vault/"

var errStoreDown = errors.New("store unavailable")

// memObjects — хранилище объектов в памяти; реализует ObjectsInfra и ObjectRepository.
type memObjects struct {
	mu         sync.Mutex
	seq        int
	objects    map[string]memObject
	failUpload map[string]bool // по имени файла
	failDelete map[string]bool // по ключу
	uploads    int
	cleaned    []string
	now        func() time.Time
}

type memObject struct {
	visibility domain.Visibility
	modified   time.Time
}

func newMemObjects() *memObjects {
	return &memObjects{
		objects:    make(map[string]memObject),
		failUpload: make(map[string]bool),
		failDelete: make(map[string]bool),
		now:        time.Now,
	}
}

func (m *memObjects) UploadObjects(_ context.Context, req *UploadObjectsReq) (*UploadObjectsRes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var uploaded []string
	res := make([]UploadedObject, 0, len(req.Objects))
	for _, obj := range req.Objects {
		if m.failUpload[obj.File.Name] {
			for _, key := range uploaded {
				delete(m.objects, key)
			}
			m.cleaned = append(m.cleaned, uploaded...)
			return nil, fmt.Errorf("put %s: %w", obj.File.Name, errStoreDown)
		}

		m.seq++
		m.uploads++
		key := fmt.Sprintf("%s/%04d%s", obj.Namespace, m.seq, path.Ext(obj.File.Name))
		m.objects[key] = memObject{visibility: obj.Visibility, modified: m.now()}
		uploaded = append(uploaded, key)

		address := key
		if obj.Visibility == domain.VisibilityPublic {
			address = testPublicBase + key
		}
		res = append(res, UploadedObject{Key: key, Address: address})
	}

	return NewUploadObjectsRes(res), nil
}

func (m *memObjects) DeleteObjects(_ context.Context, keys []string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var failed []string
	for _, key := range keys {
		if m.failDelete[key] {
			failed = append(failed, key)
			continue
		}
		delete(m.objects, key)
	}

	return failed
}

func (m *memObjects) CleanupObjects(keys []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.objects, key)
	}
	m.cleaned = append(m.cleaned, keys...)
}

func (m *memObjects) KeyFromURL(url string) (string, error) {
	if !strings.HasPrefix(url, testPublicBase) {
		return "", e.ErrForeignObjectURL
	}

	return strings.TrimPrefix(url, testPublicBase), nil
}

func (m *memObjects) Namespaces() (string, string) {
	return "products/previews", "products/files"
}

func (m *memObjects) Put(_ context.Context, object *domain.StoredObject) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[object.ObjectKey] = memObject{visibility: object.Visibility, modified: m.now()}
	return object.ObjectKey, nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	return nil
}

func (m *memObjects) List(_ context.Context, prefix string) ([]domain.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []domain.ObjectInfo
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			res = append(res, domain.ObjectInfo{Key: key, LastModified: obj.modified})
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key < res[j].Key })

	return res, nil
}

func (m *memObjects) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.objects[key]
	return ok
}

func (m *memObjects) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.objects)
}

// memProducts — репозиторий товаров в памяти.
type memProducts struct {
	mu        sync.Mutex
	products  map[string]domain.Product
	insertErr error
	updateErr error
	deleteErr error
	updates   int
}

func newMemProducts() *memProducts {
	return &memProducts{products: make(map[string]domain.Product)}
}

func (r *memProducts) Insert(_ context.Context, product *domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.insertErr != nil {
		return nil, r.insertErr
	}

	stored := *product
	stored.CreatedAt = time.Now().UTC()
	r.products[stored.ID] = stored
	return &stored, nil
}

func (r *memProducts) FindByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return nil, e.ErrProductNotFound
	}

	return &product, nil
}

func (r *memProducts) FindByOwner(_ context.Context, userID string) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []domain.Product
	for _, product := range r.products {
		if product.UserID == userID {
			res = append(res, product)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Title < res[j].Title })

	return res, nil
}

func (r *memProducts) FindAll(_ context.Context) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]domain.Product, 0, len(r.products))
	for _, product := range r.products {
		res = append(res, product)
	}

	return res, nil
}

func (r *memProducts) Update(_ context.Context, id string, patch *domain.ProductPatch) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.updateErr != nil {
		return nil, r.updateErr
	}

	product, ok := r.products[id]
	if !ok {
		return nil, e.ErrProductNotFound
	}

	r.updates++
	updated := applyPatch(product, patch)
	now := time.Now().UTC()
	updated.UpdatedAt = &now
	r.products[id] = updated
	return &updated, nil
}

// applyPatch повторяет UPDATE репозитория: меняются только переданные поля.
func applyPatch(product domain.Product, patch *domain.ProductPatch) domain.Product {
	if patch.Title != nil {
		product.Title = *patch.Title
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Status != nil {
		product.Status = *patch.Status
	}
	if patch.CategoryID != nil {
		product.CategoryID = *patch.CategoryID
	}
	if patch.PreviewURLs != nil {
		product.PreviewURLs = append([]string(nil), (*patch.PreviewURLs)...)
	}
	if patch.AssetKey != nil {
		product.AssetKey = *patch.AssetKey
	}

	return product
}

func (r *memProducts) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deleteErr != nil {
		return r.deleteErr
	}

	if _, ok := r.products[id]; !ok {
		return e.ErrProductNotFound
	}

	delete(r.products, id)
	return nil
}

func (r *memProducts) ObjectRefs(_ context.Context) (*domain.ObjectRefs, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	refs := &domain.ObjectRefs{}
	for _, product := range r.products {
		refs.PreviewURLs = append(refs.PreviewURLs, product.PreviewURLs...)
		refs.AssetKeys = append(refs.AssetKeys, product.AssetKey)
	}

	return refs, nil
}

func (r *memProducts) snapshot() map[string]domain.Product {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := make(map[string]domain.Product, len(r.products))
	for id, product := range r.products {
		cp[id] = product
	}

	return cp
}

func (r *memProducts) restore(products map[string]domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.products = products
}

// memTx откатывает изменения репозитория товаров, если fn вернула ошибку.
type memTx struct {
	products *memProducts
	outbox   *memOutbox
}

func (t *memTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	products := t.products.snapshot()
	events := t.outbox.len()

	if err := fn(ctx); err != nil {
		t.products.restore(products)
		t.outbox.truncate(events)
		return err
	}

	return nil
}

type memOutbox struct {
	mu     sync.Mutex
	events []*OutboxEvent
	err    error
}

func (o *memOutbox) Create(_ context.Context, event *OutboxEvent) (*OutboxEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.err != nil {
		return nil, o.err
	}

	event.ID = int64(len(o.events) + 1)
	o.events = append(o.events, event)
	return event, nil
}

func (o *memOutbox) GetAndMarkAsProcessing(_ context.Context, limit int) ([]*OutboxEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var res []*OutboxEvent
	for _, event := range o.events {
		if len(res) == limit {
			break
		}
		if event.Status == Pending {
			event.Status = Processing
			res = append(res, event)
		}
	}

	return res, nil
}

func (o *memOutbox) MarkAsProcessed(_ context.Context, id int64) error {
	return o.setStatus(id, Processed)
}

func (o *memOutbox) MarkAsPending(_ context.Context, id int64) error {
	return o.setStatus(id, Pending)
}

func (o *memOutbox) RequeueStale(_ context.Context, _ time.Duration) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var n int64
	for _, event := range o.events {
		if event.Status == Processing {
			event.Status = Pending
			n++
		}
	}

	return n, nil
}

func (o *memOutbox) setStatus(id int64, status OutboxStatus) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, event := range o.events {
		if event.ID == id {
			event.Status = status
			return nil
		}
	}

	return fmt.Errorf("event %d not found", id)
}

func (o *memOutbox) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.events)
}

func (o *memOutbox) truncate(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.events = o.events[:n]
}

func (o *memOutbox) types() []OutboxEventType {
	o.mu.Lock()
	defer o.mu.Unlock()

	res := make([]OutboxEventType, 0, len(o.events))
	for _, event := range o.events {
		res = append(res, event.EventType)
	}

	return res
}

type memCache struct {
	mu       sync.Mutex
	products map[string]domain.Product
	evicted  []string
}

func newMemCache() *memCache {
	return &memCache{products: make(map[string]domain.Product)}
}

func (c *memCache) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	product, ok := c.products[id]
	if !ok {
		return nil, nil
	}

	return &product, nil
}

func (c *memCache) SetProduct(_ context.Context, product *domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.products[product.ID] = *product
	return nil
}

func (c *memCache) DeleteProduct(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.products, id)
	c.evicted = append(c.evicted, id)
	return nil
}

func (c *memCache) evictions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.evicted...)
}

func (c *memCache) cached(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.products[id]
	return ok
}

type textEncoder struct{}

func (textEncoder) Encode(eventID string, eventType OutboxEventType, product *domain.Product, _ time.Time) ([]byte, error) {
	return []byte(string(eventType) + ":" + product.ID + ":" + eventID), nil
}

type testEnv struct {
	uc       *ProductUseCase
	products *memProducts
	objects  *memObjects
	outbox   *memOutbox
	cache    *memCache
}

func newTestEnv() *testEnv {
	env := &testEnv{
		products: newMemProducts(),
		objects:  newMemObjects(),
		outbox:   &memOutbox{},
		cache:    newMemCache(),
	}
	tx := &memTx{products: env.products, outbox: env.outbox}
	env.uc = NewProductUC(env.products, env.objects, env.outbox, tx, env.cache, textEncoder{}, logger.Nop{})
	env.uc.staleCacheWindow = 20 * time.Millisecond

	return env
}

func file(name, mimeType string) ProductFile {
	data := []byte("content of " + name)
	return *NewProductFile(data, mimeType, int64(len(data)), name)
}

func createReq(previews ...ProductFile) *CreateProductReq {
	asset := file("bundle.zip", "application/zip")
	return &CreateProductReq{
		Title:       "Pixel Icons",
		Description: "Two hundred hand-drawn icons",
		Price:       decimal.RequireFromString("19.99"),
		CategoryID:  "category-1",
		UserID:      "seller-1",
		Previews:    previews,
		Asset:       &asset,
	}
}
