package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/DRSN-tech/digital-vault/internal/domain"
	"github.com/DRSN-tech/digital-vault/internal/infrastructure"
	"github.com/DRSN-tech/digital-vault/internal/usecase"
	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/gabriel-vasile/mimetype"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

const (
	maxPreviewSize = 15 << 20
	maxAssetSize   = 200 << 20
)

// maxPrice — верхняя граница цены товара.
var maxPrice = decimal.NewFromInt(1_000_000_000)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ProductResponse — товар в ответах API. Ключ приватного файла наружу не отдаётся.
type ProductResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Price       string     `json:"price" example:"19.99"`
	Status      string     `json:"status" example:"PENDING"`
	CategoryID  string     `json:"categoryId"`
	UserID      string     `json:"userId"`
	PreviewURLs []string   `json:"previewUrls"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

func NewProductResponse(product *domain.Product) *ProductResponse {
	previews := product.PreviewURLs
	if previews == nil {
		previews = []string{}
	}

	return &ProductResponse{
		ID:          product.ID,
		Title:       product.Title,
		Description: product.Description,
		Price:       product.Price.StringFixed(2),
		Status:      string(product.Status),
		CategoryID:  product.CategoryID,
		UserID:      product.UserID,
		PreviewURLs: previews,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}

func NewProductsResponse(products []domain.Product) []*ProductResponse {
	res := make([]*ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, NewProductResponse(&products[i]))
	}

	return res
}

// badRequestErrors — конкретные ошибки ввода, текст которых можно вернуть клиенту.
var badRequestErrors = []error{
	e.ErrExpectedMultipart,
	e.ErrMissingFields,
	e.ErrTitleRequired,
	e.ErrDescriptionRequired,
	e.ErrCategoryRequired,
	e.ErrCategoryNotFound,
	e.ErrInvalidPrice,
	e.ErrPricePrecision,
	e.ErrInvalidStatus,
	e.ErrAssetRequired,
	e.ErrTooManyImages,
	e.ErrInvalidProductID,
	e.ErrStatusBadRequest,
}

func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrUnauthorized):
		return http.StatusUnauthorized, e.ErrUnauthorized.Error()
	case errors.Is(err, e.ErrForbidden):
		return http.StatusForbidden, e.ErrForbidden.Error()
	case errors.Is(err, e.ErrProductNotFound):
		return http.StatusNotFound, e.ErrProductNotFound.Error()
	case errors.Is(err, e.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, e.ErrFileTooLarge.Error()
	case errors.Is(err, e.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, e.ErrUnsupportedMediaType.Error()
	}

	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, target.Error()
		}
	}

	switch {
	case errors.Is(err, e.ErrValidationFailed):
		return http.StatusBadRequest, e.ErrValidationFailed.Error()
	case errors.Is(err, e.ErrStorageFailed):
		return http.StatusBadGateway, e.ErrStorageFailed.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parsePrice разбирает цену вида "599.99" или "600" в точное десятичное значение.
// Ошибка, если формат неверный, знаков после запятой больше двух, цена отрицательная или больше maxPrice.
func parsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, e.ErrInvalidPrice
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, e.ErrInvalidPrice
	}

	if d.IsNegative() || d.GreaterThan(maxPrice) {
		return decimal.Zero, e.ErrInvalidPrice
	}

	if !d.Equal(d.Round(2)) {
		return decimal.Zero, e.ErrPricePrecision
	}

	return d, nil
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return e.Wrap(whereami.WhereAmI(), e.ErrFileTooLarge)
		}
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %w", e.ErrStatusBadRequest, err))
	}

	return nil
}

// formValue возвращает значение поля формы и признак того, что поле передано.
func formValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}

	return values[0], true
}

func parseCreateForm(form *multipart.Form, userID string) (*usecase.CreateProductReq, error) {
	title, _ := formValue(form, "title")
	description, _ := formValue(form, "description")
	priceStr, _ := formValue(form, "price")
	categoryID, _ := formValue(form, "categoryId")
	status, _ := formValue(form, "status")

	var missing []string
	for _, field := range [][2]string{
		{"title", title}, {"description", description}, {"price", priceStr}, {"categoryId", categoryID},
	} {
		if strings.TrimSpace(field[1]) == "" {
			missing = append(missing, field[0])
		}
	}
	if len(missing) > 0 {
		return nil, e.Wrap(strings.Join(missing, ", "), e.ErrMissingFields)
	}

	price, err := parsePrice(priceStr)
	if err != nil {
		return nil, err
	}

	previews, err := parsePreviews(form.File["previews"])
	if err != nil {
		return nil, err
	}

	asset, err := parseAsset(form.File["asset"])
	if err != nil {
		return nil, err
	}

	return &usecase.CreateProductReq{
		Title:       title,
		Description: description,
		Price:       price,
		Status:      domain.ProductStatus(strings.ToUpper(strings.TrimSpace(status))),
		CategoryID:  strings.TrimSpace(categoryID),
		UserID:      userID,
		Previews:    previews,
		Asset:       asset,
	}, nil
}

// parseUpdateForm собирает запрос на изменение: поля, которых нет в форме, не меняются.
func parseUpdateForm(form *multipart.Form, id string, actor *usecase.Actor) (*usecase.UpdateProductReq, error) {
	req := &usecase.UpdateProductReq{ID: id, Actor: actor}

	if title, ok := formValue(form, "title"); ok {
		req.Title = &title
	}
	if description, ok := formValue(form, "description"); ok {
		req.Description = &description
	}
	if priceStr, ok := formValue(form, "price"); ok {
		price, err := parsePrice(priceStr)
		if err != nil {
			return nil, err
		}
		req.Price = &price
	}
	if status, ok := formValue(form, "status"); ok {
		s := domain.ProductStatus(strings.ToUpper(strings.TrimSpace(status)))
		req.Status = &s
	}
	if categoryID, ok := formValue(form, "categoryId"); ok {
		categoryID = strings.TrimSpace(categoryID)
		req.CategoryID = &categoryID
	}

	previews, err := parsePreviews(form.File["previews"])
	if err != nil {
		return nil, err
	}
	req.Previews = previews

	if req.Asset, err = parseAsset(form.File["asset"]); err != nil {
		return nil, err
	}

	return req, nil
}

func parsePreviews(files []*multipart.FileHeader) ([]usecase.ProductFile, error) {
	if len(files) > usecase.MaxPreviews {
		return nil, e.ErrTooManyImages
	}

	previews := make([]usecase.ProductFile, 0, len(files))
	for _, fh := range files {
		file, err := readFile(fh, maxPreviewSize)
		if err != nil {
			return nil, err
		}
		if !infrastructure.IsImageMIME(file.MimeType) {
			return nil, e.Wrap(fh.Filename, e.ErrUnsupportedMediaType)
		}
		previews = append(previews, *file)
	}

	return previews, nil
}

func parseAsset(files []*multipart.FileHeader) (*usecase.ProductFile, error) {
	switch len(files) {
	case 0:
		return nil, nil
	case 1:
		return readFile(files[0], maxAssetSize)
	default:
		return nil, e.Wrap("only one asset file is allowed", e.ErrStatusBadRequest)
	}
}

// readFile читает файл формы. Тип содержимого определяется по самим байтам, а не по заголовку клиента.
func readFile(fh *multipart.FileHeader, maxSize int64) (*usecase.ProductFile, error) {
	if fh.Size > maxSize {
		return nil, e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, e.ErrInternalServerError
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxSize+1))
	if err != nil {
		return nil, e.ErrInternalServerError
	}
	if int64(len(data)) > maxSize {
		return nil, e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	mimeType, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return usecase.NewProductFile(data, mimeType, int64(len(data)), fh.Filename), nil
}
