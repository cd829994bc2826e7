package domain

import "time"

// Visibility определяет, доступен ли объект анонимно.
type Visibility int

const (
	VisibilityPrivate Visibility = iota
	VisibilityPublic
)

// StoredObject описывает бинарный объект, который кладётся в S3
type StoredObject struct {
	Bucket      string
	ObjectKey   string
	Bytes       []byte
	Size        int64
	ContentType string // Example: "image/png"
	Visibility  Visibility
}

func NewStoredObject(bucket string, objectKey string, data []byte, contentType string, visibility Visibility) *StoredObject {
	return &StoredObject{
		Bucket:      bucket,
		ObjectKey:   objectKey,
		Bytes:       data,
		Size:        int64(len(data)),
		ContentType: contentType,
		Visibility:  visibility,
	}
}

// ObjectInfo — сведения об объекте, полученные из листинга бакета.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectRefs — все объекты хранилища, на которые ссылаются записи товаров.
type ObjectRefs struct {
	PreviewURLs []string
	AssetKeys   []string
}
