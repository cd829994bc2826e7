package http

import (
	"net/http"

	"github.com/DRSN-tech/digital-vault/internal/usecase"
	"github.com/DRSN-tech/digital-vault/pkg/logger"
)

type CategoryHandler struct {
	categoryUsecase usecase.CategoryUC
	logger          logger.Logger
}

func NewCategoryHandler(categoryUsecase usecase.CategoryUC, logger logger.Logger) *CategoryHandler {
	return &CategoryHandler{categoryUsecase: categoryUsecase, logger: logger}
}

// listCategories
//
//	@Summary	Справочник категорий
//	@Tags		categories
//	@Produce	json
//	@Success	200	{array}		CategoryResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/categories [get]
func (c *CategoryHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := c.categoryUsecase.ListCategories(r.Context())
	if err != nil {
		c.logger.Errorf(err, "list categories")
		WriteError(w, err)
		return
	}

	res := make([]CategoryResponse, 0, len(categories))
	for _, category := range categories {
		res = append(res, CategoryResponse{ID: category.ID, Name: category.Name})
	}

	WriteSuccess(w, http.StatusOK, res)
}
