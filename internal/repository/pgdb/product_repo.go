package pgdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DRSN-tech/digital-vault/internal/domain"
	"github.com/DRSN-tech/digital-vault/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/DRSN-tech/digital-vault/pkg/tr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const productColumns = `
	id::text, title, description, price::text, status, category_id::text,
	user_id, preview_urls, asset_key, created_at, updated_at`

// ProductRepo реализует репозиторий товаров поверх PostgreSQL.
// Записи выполняются только внутри транзакции из контекста, чтение идёт через пул.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewProductRepo(pool *pgxpool.Pool, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		conv: conv,
	}
}

// Insert создаёт запись товара. Ссылка на несуществующую категорию даёт e.ErrCategoryNotFound.
func (p *ProductRepo) Insert(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	model := p.conv.ToModel(product)
	query := `
		INSERT INTO products (
			id, title, description, price, status, category_id, user_id, preview_urls, asset_key
		) VALUES ($1, $2, $3, $4::numeric, $5, $6::uuid, $7, $8, $9)
		RETURNING` + productColumns

	row := tx.QueryRow(ctx, query,
		model.ID,
		model.Title,
		model.Description,
		model.Price,
		model.Status,
		model.CategoryID,
		model.UserID,
		model.PreviewURLs,
		model.AssetKey,
	)

	created, err := p.scanProduct(row)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), writeFailure(err))
	}

	return created, nil
}

// FindByID возвращает товар по идентификатору или e.ErrProductNotFound.
func (p *ProductRepo) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	if uuid.Validate(id) != nil {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
	}

	query := `SELECT` + productColumns + ` FROM products WHERE id = $1`

	product, err := p.scanProduct(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return product, nil
}

// FindByOwner возвращает товары продавца, упорядоченные по названию.
func (p *ProductRepo) FindByOwner(ctx context.Context, userID string) ([]domain.Product, error) {
	query := `SELECT` + productColumns + ` FROM products WHERE user_id = $1 ORDER BY title, id`

	return p.queryProducts(ctx, query, userID)
}

// FindAll возвращает все товары, новые первыми.
func (p *ProductRepo) FindAll(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT` + productColumns + ` FROM products ORDER BY created_at DESC, id`

	return p.queryProducts(ctx, query)
}

// Update применяет патч одним запросом: меняются только переданные поля.
func (p *ProductRepo) Update(ctx context.Context, id string, patch *domain.ProductPatch) (*domain.Product, error) {
	if uuid.Validate(id) != nil {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
	}

	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query, args := productUpdateQuery(id, patch)
	updated, err := p.scanProduct(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), writeFailure(err))
	}

	return updated, nil
}

// productUpdateQuery строит UPDATE по патчу: в SET попадают только переданные поля
// и updated_at, последним параметром идёт id товара.
func productUpdateQuery(id string, patch *domain.ProductPatch) (string, []any) {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 8)
	set := func(column, cast string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d%s", column, len(args), cast))
	}

	if patch.Title != nil {
		set("title", "", *patch.Title)
	}
	if patch.Description != nil {
		set("description", "", *patch.Description)
	}
	if patch.Price != nil {
		set("price", "::numeric", patch.Price.StringFixed(2))
	}
	if patch.Status != nil {
		set("status", "", string(*patch.Status))
	}
	if patch.CategoryID != nil {
		set("category_id", "::uuid", *patch.CategoryID)
	}
	if patch.PreviewURLs != nil {
		set("preview_urls", "", *patch.PreviewURLs)
	}
	if patch.AssetKey != nil {
		set("asset_key", "", *patch.AssetKey)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d RETURNING%s`,
		strings.Join(sets, ", "), len(args), productColumns)

	return query, args
}

// Delete удаляет запись товара; отсутствующая запись даёт e.ErrProductNotFound.
func (p *ProductRepo) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
	}

	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if result.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
	}

	return nil
}

// ObjectRefs собирает адреса превью и ключи файлов всех товаров.
func (p *ProductRepo) ObjectRefs(ctx context.Context) (*domain.ObjectRefs, error) {
	rows, err := p.pool.Query(ctx, `SELECT preview_urls, asset_key FROM products`)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	refs := &domain.ObjectRefs{}
	for rows.Next() {
		var previews []string
		var assetKey string
		if err := rows.Scan(&previews, &assetKey); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		refs.PreviewURLs = append(refs.PreviewURLs, previews...)
		refs.AssetKeys = append(refs.AssetKeys, assetKey)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return refs, nil
}

func (p *ProductRepo) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		product, err := p.scanProduct(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

func (p *ProductRepo) scanProduct(row pgx.Row) (*domain.Product, error) {
	var model converter.ProductModel
	err := row.Scan(
		&model.ID, &model.Title, &model.Description, &model.Price, &model.Status, &model.CategoryID,
		&model.UserID, &model.PreviewURLs, &model.AssetKey, &model.CreatedAt, &model.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, e.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	return p.conv.ToEntity(&model)
}

func writeFailure(err error) error {
	if categoryViolation(err) {
		return e.ErrCategoryNotFound
	}

	return err
}
