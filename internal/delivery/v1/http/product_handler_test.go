package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DRSN-tech/digital-vault/internal/domain"
	"github.com/DRSN-tech/digital-vault/internal/usecase"
	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/DRSN-tech/digital-vault/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

type fakeProductUC struct {
	created *usecase.CreateProductReq
	updated *usecase.UpdateProductReq
	deleted *usecase.DeleteProductReq
	err     error
}

func (f *fakeProductUC) product(id, userID string) *domain.Product {
	product := domain.NewProduct(id, "Pixel Icons", "Icons", decimal.RequireFromString("19.99"), "", "cat-1", userID,
		[]string{"http://cdn.test/vault/products/previews/a.png"}, "products/files/a.zip")
	product.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return product
}

func (f *fakeProductUC) CreateProduct(_ context.Context, req *usecase.CreateProductReq) (*domain.Product, error) {
	f.created = req
	if f.err != nil {
		return nil, f.err
	}
	return f.product("p-1", req.UserID), nil
}

func (f *fakeProductUC) UpdateProduct(_ context.Context, req *usecase.UpdateProductReq) (*domain.Product, error) {
	f.updated = req
	if f.err != nil {
		return nil, f.err
	}
	return f.product(req.ID, "seller-1"), nil
}

func (f *fakeProductUC) DeleteProduct(_ context.Context, req *usecase.DeleteProductReq) error {
	f.deleted = req
	return f.err
}

func (f *fakeProductUC) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.product(id, "seller-1"), nil
}

func (f *fakeProductUC) ListProducts(context.Context) ([]domain.Product, error) {
	return []domain.Product{*f.product("p-1", "seller-1")}, f.err
}

func (f *fakeProductUC) ListUserProducts(_ context.Context, userID string) ([]domain.Product, error) {
	return []domain.Product{*f.product("p-1", userID)}, f.err
}

type fakeCategoryUC struct{}

func (fakeCategoryUC) ListCategories(context.Context) ([]domain.Category, error) {
	return []domain.Category{{ID: "c-1", Name: "Fonts & Typography"}}, nil
}

func newTestRouter(t *testing.T, uc *fakeProductUC, ready ReadinessCheck) http.Handler {
	t.Helper()

	if ready == nil {
		ready = func(context.Context) error { return nil }
	}
	mux := chi.NewRouter()
	NewRouter(mux, logger.Nop{}).Init(uc, fakeCategoryUC{}, NewAuthenticator(testSecret, logger.Nop{}), ready)

	return mux
}

func token(t *testing.T, subject string, roles ...string) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	return signed
}

type formFile struct {
	field, name string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func doRequest(t *testing.T, handler http.Handler, method, target string, body *bytes.Buffer, contentType, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var res ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

func validFields() map[string]string {
	return map[string]string{
		"title":       "Pixel Icons",
		"description": "Icons",
		"price":       "19.99",
		"categoryId":  "cat-1",
	}
}

func TestCreateProduct(t *testing.T) {
	uc := &fakeProductUC{}
	router := newTestRouter(t, uc, nil)

	body, contentType := multipartBody(t, validFields(),
		formFile{field: "previews", name: "a.png", data: pngBytes},
		formFile{field: "previews", name: "b.png", data: pngBytes},
		formFile{field: "asset", name: "pack.zip", data: []byte("PK\x03\x04 archive")},
	)
	rec := doRequest(t, router, http.MethodPost, "/api/v1/products", body, contentType, token(t, "seller-1"))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, uc.created)
	assert.Equal(t, "seller-1", uc.created.UserID)
	assert.True(t, uc.created.Price.Equal(decimal.RequireFromString("19.99")))
	require.Len(t, uc.created.Previews, 2)
	assert.Equal(t, "image/png", uc.created.Previews[0].MimeType)
	assert.Equal(t, "a.png", uc.created.Previews[0].Name)
	require.NotNil(t, uc.created.Asset)
	assert.Equal(t, "application/zip", uc.created.Asset.MimeType)

	body = rec.Body
	assert.NotContains(t, body.String(), "products/files")

	var res ProductResponse
	require.NoError(t, json.NewDecoder(body).Decode(&res))
	assert.Equal(t, "p-1", res.ID)
	assert.Equal(t, "19.99", res.Price)
	assert.Equal(t, "PENDING", res.Status)
}

func TestCreateProduct_RequiresToken(t *testing.T) {
	uc := &fakeProductUC{}
	router := newTestRouter(t, uc, nil)
	body, contentType := multipartBody(t, validFields())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/products", body, contentType, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "seller-1"}).
		SignedString([]byte("another-secret"))
	require.NoError(t, err)
	body, contentType = multipartBody(t, validFields())
	rec = doRequest(t, router, http.MethodPost, "/api/v1/products", body, contentType, forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Nil(t, uc.created)
}

func TestCreateProduct_BadInput(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		files    []formFile
		wantCode int
		wantMsg  string
	}{
		{
			name:     "missing title",
			fields:   map[string]string{"description": "d", "price": "1", "categoryId": "c"},
			wantCode: http.StatusBadRequest,
			wantMsg:  e.ErrMissingFields.Error(),
		},
		{
			name:     "price precision",
			fields:   map[string]string{"title": "t", "description": "d", "price": "1.999", "categoryId": "c"},
			wantCode: http.StatusBadRequest,
			wantMsg:  e.ErrPricePrecision.Error(),
		},
		{
			name:     "negative price",
			fields:   map[string]string{"title": "t", "description": "d", "price": "-5", "categoryId": "c"},
			wantCode: http.StatusBadRequest,
			wantMsg:  e.ErrInvalidPrice.Error(),
		},
		{
			name:     "preview is not an image",
			fields:   validFields(),
			files:    []formFile{{field: "previews", name: "notes.png", data: []byte("just some text")}},
			wantCode: http.StatusUnsupportedMediaType,
			wantMsg:  e.ErrUnsupportedMediaType.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &fakeProductUC{}
			router := newTestRouter(t, uc, nil)
			body, contentType := multipartBody(t, tt.fields, tt.files...)

			rec := doRequest(t, router, http.MethodPost, "/api/v1/products", body, contentType, token(t, "seller-1"))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantMsg, decodeError(t, rec).Message)
			assert.Nil(t, uc.created)
		})
	}
}

func TestCreateProduct_NotMultipart(t *testing.T) {
	router := newTestRouter(t, &fakeProductUC{}, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/products", bytes.NewBufferString(`{}`), "application/json", token(t, "seller-1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, e.ErrExpectedMultipart.Error(), decodeError(t, rec).Message)
}

func TestCreateProduct_UsecaseErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{err: e.Mark(e.ErrValidationFailed, e.ErrAssetRequired), code: http.StatusBadRequest},
		{err: e.Mark(e.ErrStorageFailed, errors.New("minio down")), code: http.StatusBadGateway},
		{err: e.Mark(e.ErrPersistenceFailed, errors.New("pg down")), code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		uc := &fakeProductUC{err: tt.err}
		router := newTestRouter(t, uc, nil)
		body, contentType := multipartBody(t, validFields())

		rec := doRequest(t, router, http.MethodPost, "/api/v1/products", body, contentType, token(t, "seller-1"))

		assert.Equal(t, tt.code, rec.Code, tt.err.Error())
	}
}

func TestUpdateProduct_OnlyPassedFields(t *testing.T) {
	uc := &fakeProductUC{}
	router := newTestRouter(t, uc, nil)
	body, contentType := multipartBody(t, map[string]string{"price": "9.50"})

	rec := doRequest(t, router, http.MethodPatch, "/api/v1/products/p-9", body, contentType, token(t, "moderator", AdminRole))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, uc.updated)
	assert.Equal(t, "p-9", uc.updated.ID)
	require.NotNil(t, uc.updated.Price)
	assert.Equal(t, "9.5", uc.updated.Price.String())
	assert.Nil(t, uc.updated.Title)
	assert.Nil(t, uc.updated.Description)
	assert.Nil(t, uc.updated.Status)
	assert.Empty(t, uc.updated.Previews)
	assert.Nil(t, uc.updated.Asset)
	assert.Equal(t, &usecase.Actor{UserID: "moderator", IsAdmin: true}, uc.updated.Actor)
}

func TestUpdateProduct_ReplacesFiles(t *testing.T) {
	uc := &fakeProductUC{}
	router := newTestRouter(t, uc, nil)
	body, contentType := multipartBody(t, map[string]string{"status": "approved"},
		formFile{field: "previews", name: "c.png", data: pngBytes},
		formFile{field: "asset", name: "v2.zip", data: []byte("PK\x03\x04 v2")},
	)

	rec := doRequest(t, router, http.MethodPatch, "/api/v1/products/p-9", body, contentType, token(t, "seller-1"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, uc.updated.Status)
	assert.Equal(t, domain.StatusApproved, *uc.updated.Status)
	assert.Len(t, uc.updated.Previews, 1)
	require.NotNil(t, uc.updated.Asset)
	assert.Equal(t, "v2.zip", uc.updated.Asset.Name)
}

func TestDeleteProduct(t *testing.T) {
	uc := &fakeProductUC{}
	router := newTestRouter(t, uc, nil)

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/products/p-1", nil, "", token(t, "seller-1"))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, uc.deleted)
	assert.Equal(t, "p-1", uc.deleted.ID)
	assert.Equal(t, "seller-1", uc.deleted.Actor.UserID)
}

func TestDeleteProduct_Errors(t *testing.T) {
	for err, code := range map[error]int{
		e.Wrap("ProductUseCase.DeleteProduct", e.ErrForbidden):       http.StatusForbidden,
		e.Wrap("ProductUseCase.DeleteProduct", e.ErrProductNotFound): http.StatusNotFound,
	} {
		router := newTestRouter(t, &fakeProductUC{err: err}, nil)

		rec := doRequest(t, router, http.MethodDelete, "/api/v1/products/p-1", nil, "", token(t, "seller-2"))

		assert.Equal(t, code, rec.Code)
	}
}

func TestReadRoutes(t *testing.T) {
	router := newTestRouter(t, &fakeProductUC{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/products/p-7", nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var product ProductResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&product))
	assert.Equal(t, "p-7", product.ID)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/products/user/seller-3", nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var products []ProductResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&products))
	require.Len(t, products, 1)
	assert.Equal(t, "seller-3", products[0].UserID)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/products", nil, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/categories", nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var categories []CategoryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&categories))
	assert.Equal(t, []CategoryResponse{{ID: "c-1", Name: "Fonts & Typography"}}, categories)
}

func TestGetProduct_NotFound(t *testing.T) {
	router := newTestRouter(t, &fakeProductUC{err: e.ErrProductNotFound}, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/products/missing", nil, "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndReadiness(t *testing.T) {
	router := newTestRouter(t, &fakeProductUC{}, func(context.Context) error { return errors.New("db down") })

	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/health", nil, "", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(t, router, http.MethodGet, "/ready", nil, "", "").Code)
}

func TestToHTTPResponse(t *testing.T) {
	code, msg := ToHTTPResponse(e.Wrap("op", e.Mark(e.ErrValidationFailed, e.ErrCategoryNotFound)))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, e.ErrCategoryNotFound.Error(), msg)

	code, _ = ToHTTPResponse(e.Mark(e.ErrStorageFailed, errors.New("timeout")))
	assert.Equal(t, http.StatusBadGateway, code)

	code, msg = ToHTTPResponse(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, e.ErrInternalServerError.Error(), msg)
}

func TestParsePrice(t *testing.T) {
	for input, want := range map[string]string{"600": "600", "599.99": "599.99", " 0.5 ": "0.5", "5.000": "5"} {
		got, err := parsePrice(input)
		require.NoError(t, err, input)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), input)
	}

	for input, want := range map[string]error{
		"":              e.ErrInvalidPrice,
		"abc":           e.ErrInvalidPrice,
		"-1":            e.ErrInvalidPrice,
		"1000000000.01": e.ErrInvalidPrice,
		"0.001":         e.ErrPricePrecision,
	} {
		_, err := parsePrice(input)
		assert.ErrorIs(t, err, want, input)
	}
}
