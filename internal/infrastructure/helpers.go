package infrastructure

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/google/uuid"
)

var extPattern = regexp.MustCompile(`^[a-z0-9]{1,10}$`)

// GetExtensionFromMIME возвращает расширение файла по MIME-типу изображения.
// Поддерживает jpeg, jpg, png, webp, gif. Возвращает ошибку e.ErrUnsupportedMediaType для неподдерживаемых типов.
func GetExtensionFromMIME(mime string) (string, error) {
	switch mime {
	case "image/jpeg", "image/jpg":
		return "jpg", nil
	case "image/png":
		return "png", nil
	case "image/webp":
		return "webp", nil
	case "image/gif":
		return "gif", nil
	default:
		return "bin", e.ErrUnsupportedMediaType
	}
}

// IsImageMIME сообщает, подходит ли MIME-тип для публичного превью.
func IsImageMIME(mime string) bool {
	_, err := GetExtensionFromMIME(strings.ToLower(strings.TrimSpace(mime)))
	return err == nil
}

// SanitizeExtension выделяет расширение из исходного имени файла.
// Если расширения нет или оно подозрительное, берётся расширение по MIME-типу, в крайнем случае "bin".
func SanitizeExtension(filename, mime string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(strings.ReplaceAll(filename, "\\", "/")), "."))
	if extPattern.MatchString(ext) {
		return ext
	}

	ext, _ = GetExtensionFromMIME(mime)
	return ext
}

// NewObjectKey строит ключ вида <namespace>/<uuid>.<ext>. Кроме расширения, пользовательский ввод в ключ не попадает.
func NewObjectKey(namespace, filename, mime string) string {
	return fmt.Sprintf("%s/%s.%s", strings.Trim(namespace, "/"), uuid.NewString(), SanitizeExtension(filename, mime))
}

// ObjectLocator переводит ключи публичных объектов в адреса и обратно.
// Адрес однозначно определяется публичным адресом хранилища, бакетом и ключом.
type ObjectLocator struct {
	base string
}

func NewObjectLocator(publicEndpoint, bucket string, useSSL bool) *ObjectLocator {
	scheme := "http"
	if useSSL {
		scheme = "https"
	}

	return &ObjectLocator{
		base: fmt.Sprintf("%s://%s/%s/", scheme, strings.TrimRight(publicEndpoint, "/"), bucket),
	}
}

// PublicURL возвращает публичный адрес объекта.
func (l *ObjectLocator) PublicURL(key string) string {
	return l.base + key
}

// KeyFromURL восстанавливает ключ по публичному адресу.
// Для адресов вне бакета возвращает e.ErrForeignObjectURL.
func (l *ObjectLocator) KeyFromURL(url string) (string, error) {
	key, ok := strings.CutPrefix(url, l.base)
	if !ok || key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%q: %w", url, e.ErrForeignObjectURL)
	}

	return key, nil
}
