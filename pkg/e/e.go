package e

import (
	"errors"
	"fmt"
)

// Классы ошибок. Конкретные ошибки помечаются классом через Mark,
// слой доставки сопоставляет классы с кодами ответа.
var (
	ErrValidationFailed  = errors.New("validation failed")
	ErrStorageFailed     = errors.New("storage failed")
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrProductNotFound   = errors.New("product not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
)

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = errors.New("transaction not found")

	// Ошибки объектного хранилища
	ErrForeignObjectURL = errors.New("url does not belong to the object store")

	// 400 Bad Request
	ErrStatusBadRequest     = errors.New("bad request")
	ErrExpectedMultipart    = errors.New("expected multipart/form-data")
	ErrMissingFields        = errors.New("missing required fields")
	ErrTitleRequired        = errors.New("product title is required")
	ErrDescriptionRequired  = errors.New("product description is required")
	ErrCategoryRequired     = errors.New("product category is required")
	ErrOwnerRequired        = errors.New("product owner is required")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrPricePrecision       = errors.New("price must have at most 2 decimal places")
	ErrInvalidStatus        = errors.New("invalid product status")
	ErrAssetRequired        = errors.New("asset file is required")
	ErrTooManyImages        = errors.New("too many preview images")
	ErrFileTooLarge         = errors.New("file too large")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrInvalidProductID     = errors.New("invalid product id")

	// 500
	ErrInternalServerError = errors.New("internal server error")

	// Конфигурация
	ErrIncorrectEnvVariable = errors.New("incorrect environment variable")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// Mark помечает ошибку классом: errors.Is срабатывает и для класса, и для исходной ошибки.
func Mark(class error, err error) error {
	if errors.Is(err, class) {
		return err
	}

	return fmt.Errorf("%w: %w", class, err)
}
