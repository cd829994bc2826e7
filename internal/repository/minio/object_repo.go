package minio

import (
	"bytes"
	"context"

	"github.com/DRSN-tech/digital-vault/internal/cfg"
	"github.com/DRSN-tech/digital-vault/internal/domain"
	"github.com/DRSN-tech/digital-vault/internal/infrastructure"
	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// publicReadMeta — заголовок, с которым MinIO/S3 отдаёт объект анонимно.
var publicReadMeta = map[string]string{"x-amz-acl": "public-read"}

// ObjectRepo реализует объектное хранилище товаров поверх MinIO.
type ObjectRepo struct {
	mc      *minio.Client
	cfg     *cfg.MinIOCfg
	locator *infrastructure.ObjectLocator
}

func NewObjectRepo(mc *minio.Client, cfg *cfg.MinIOCfg, locator *infrastructure.ObjectLocator) *ObjectRepo {
	return &ObjectRepo{
		mc:      mc,
		cfg:     cfg,
		locator: locator,
	}
}

// Put загружает объект и возвращает его адрес: публичный URL для превью и ключ для приватных файлов.
func (o *ObjectRepo) Put(ctx context.Context, object *domain.StoredObject) (string, error) {
	opts := minio.PutObjectOptions{ContentType: object.ContentType}
	if object.Visibility == domain.VisibilityPublic {
		opts.UserMetadata = publicReadMeta
	}

	info, err := o.mc.PutObject(ctx, object.Bucket, object.ObjectKey, bytes.NewReader(object.Bytes), object.Size, opts)
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	if object.Visibility == domain.VisibilityPublic {
		return o.locator.PublicURL(info.Key), nil
	}

	return info.Key, nil
}

// Delete удаляет объект из MinIO по указанному ключу. Отсутствующий объект не считается ошибкой.
func (o *ObjectRepo) Delete(ctx context.Context, key string) error {
	err := o.mc.RemoveObject(ctx, o.cfg.BucketName, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// List перечисляет все объекты бакета с заданным префиксом.
func (o *ObjectRepo) List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	var res []domain.ObjectInfo
	for obj := range o.mc.ListObjects(ctx, o.cfg.BucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), obj.Err)
		}

		res = append(res, domain.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	return res, nil
}
