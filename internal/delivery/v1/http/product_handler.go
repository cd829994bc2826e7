package http

import (
	"net/http"

	"github.com/DRSN-tech/digital-vault/internal/usecase"
	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/DRSN-tech/digital-vault/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const (
	maxTotalRequestSize = maxAssetSize + usecase.MaxPreviews*maxPreviewSize + 1<<20
	maxMemory           = 32 << 20
)

type ProductHandler struct {
	productUsecase usecase.ProductUC
	logger         logger.Logger
}

func NewProductHandler(productUsecase usecase.ProductUC, logger logger.Logger) *ProductHandler {
	return &ProductHandler{productUsecase: productUsecase, logger: logger}
}

// createProduct
//
//	@Summary		Создание товара
//	@Description	Загружает превью и файл товара, затем создаёт запись. Владелец берётся из токена.
//	@Tags			products
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			title		formData	string			true	"Название"
//	@Param			description	formData	string			true	"Описание"
//	@Param			price		formData	string			true	"Цена, не больше двух знаков после запятой"
//	@Param			categoryId	formData	string			true	"Категория"
//	@Param			status		formData	string			false	"PENDING, APPROVED или REJECTED"
//	@Param			previews	formData	file			false	"Превью (до 10 изображений)"
//	@Param			asset		formData	file			true	"Файл товара"
//	@Success		201			{object}	ProductResponse	"Товар создан"
//	@Failure		400			{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		401			{object}	ErrorResponse	"Нет токена"
//	@Failure		502			{object}	ErrorResponse	"Ошибка хранилища"
//	@Router			/products [post]
func (p *ProductHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromCtx(r.Context())
	if !ok {
		WriteError(w, e.ErrUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxTotalRequestSize)
	if err := ensureMultipartForm(r, maxMemory); err != nil {
		p.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := parseCreateForm(r.MultipartForm, actor.UserID)
	if err != nil {
		p.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	product, err := p.productUsecase.CreateProduct(r.Context(), req)
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, NewProductResponse(product))
}

// listProducts
//
//	@Summary	Список товаров
//	@Tags		products
//	@Produce	json
//	@Success	200	{array}		ProductResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/products [get]
func (p *ProductHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := p.productUsecase.ListProducts(r.Context())
	if err != nil {
		p.logger.Errorf(err, "list products")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewProductsResponse(products))
}

// listUserProducts
//
//	@Summary	Товары продавца
//	@Tags		products
//	@Produce	json
//	@Param		userId	path		string	true	"Продавец"
//	@Success	200		{array}		ProductResponse
//	@Failure	500		{object}	ErrorResponse
//	@Router		/products/user/{userId} [get]
func (p *ProductHandler) listUserProducts(w http.ResponseWriter, r *http.Request) {
	products, err := p.productUsecase.ListUserProducts(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		p.logger.Errorf(err, "list user products")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewProductsResponse(products))
}

// getProduct
//
//	@Summary	Товар по идентификатору
//	@Tags		products
//	@Produce	json
//	@Param		id	path		string	true	"Товар"
//	@Success	200	{object}	ProductResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/products/{id} [get]
func (p *ProductHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := p.productUsecase.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewProductResponse(product))
}

// updateProduct
//
//	@Summary		Изменение товара
//	@Description	Меняет только переданные поля. Непустой набор previews целиком заменяет старые превью, asset заменяет файл.
//	@Tags			products
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id			path		string			true	"Товар"
//	@Param			title		formData	string			false	"Название"
//	@Param			description	formData	string			false	"Описание"
//	@Param			price		formData	string			false	"Цена"
//	@Param			categoryId	formData	string			false	"Категория"
//	@Param			status		formData	string			false	"Статус"
//	@Param			previews	formData	file			false	"Новые превью"
//	@Param			asset		formData	file			false	"Новый файл товара"
//	@Success		200			{object}	ProductResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		403			{object}	ErrorResponse	"Товар принадлежит другому продавцу"
//	@Failure		404			{object}	ErrorResponse
//	@Failure		502			{object}	ErrorResponse
//	@Router			/products/{id} [patch]
func (p *ProductHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromCtx(r.Context())
	if !ok {
		WriteError(w, e.ErrUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxTotalRequestSize)
	if err := ensureMultipartForm(r, maxMemory); err != nil {
		p.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := parseUpdateForm(r.MultipartForm, chi.URLParam(r, "id"), actor)
	if err != nil {
		p.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	product, err := p.productUsecase.UpdateProduct(r.Context(), req)
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewProductResponse(product))
}

// deleteProduct
//
//	@Summary	Удаление товара
//	@Tags		products
//	@Security	BearerAuth
//	@Param		id	path	string	true	"Товар"
//	@Success	204
//	@Failure	403	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/products/{id} [delete]
func (p *ProductHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromCtx(r.Context())
	if !ok {
		WriteError(w, e.ErrUnauthorized)
		return
	}

	err := p.productUsecase.DeleteProduct(r.Context(), &usecase.DeleteProductReq{ID: chi.URLParam(r, "id"), Actor: actor})
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
