package pgdb

import (
	"strings"
	"testing"

	"github.com/DRSN-tech/digital-vault/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProductID = "0b6c1c4e-7f0a-4a4e-9a57-3c1f2b8d9e10"

func ptr[T any](v T) *T {
	return &v
}

func setClause(t *testing.T, query string) (string, string) {
	t.Helper()

	before, after, ok := strings.Cut(query, " WHERE ")
	require.True(t, ok, query)
	set, ok := strings.CutPrefix(before, "UPDATE products SET ")
	require.True(t, ok, query)

	return set, after
}

func TestProductUpdateQuery(t *testing.T) {
	tests := []struct {
		name      string
		patch     *domain.ProductPatch
		wantSet   string
		wantArgs  []any
		wantWhere string
	}{
		{
			name:      "empty patch touches only updated_at",
			patch:     &domain.ProductPatch{},
			wantSet:   "updated_at = NOW()",
			wantArgs:  []any{testProductID},
			wantWhere: "id = $1 RETURNING",
		},
		{
			name:      "price only",
			patch:     &domain.ProductPatch{Price: ptr(decimal.RequireFromString("19.9"))},
			wantSet:   "price = $1::numeric, updated_at = NOW()",
			wantArgs:  []any{"19.90", testProductID},
			wantWhere: "id = $2 RETURNING",
		},
		{
			name: "metadata",
			patch: &domain.ProductPatch{
				Title:       ptr("Icons"),
				Description: ptr("Pack"),
				Status:      ptr(domain.StatusApproved),
				CategoryID:  ptr("cat-1"),
			},
			wantSet:   "title = $1, description = $2, status = $3, category_id = $4::uuid, updated_at = NOW()",
			wantArgs:  []any{"Icons", "Pack", "APPROVED", "cat-1", testProductID},
			wantWhere: "id = $5 RETURNING",
		},
		{
			name: "files only",
			patch: &domain.ProductPatch{
				PreviewURLs: ptr([]string{"http://cdn/a.png", "http://cdn/b.png"}),
				AssetKey:    ptr("products/files/new.zip"),
			},
			wantSet:   "preview_urls = $1, asset_key = $2, updated_at = NOW()",
			wantArgs:  []any{[]string{"http://cdn/a.png", "http://cdn/b.png"}, "products/files/new.zip", testProductID},
			wantWhere: "id = $3 RETURNING",
		},
		{
			name:      "previews cleared",
			patch:     &domain.ProductPatch{PreviewURLs: ptr([]string{})},
			wantSet:   "preview_urls = $1, updated_at = NOW()",
			wantArgs:  []any{[]string{}, testProductID},
			wantWhere: "id = $2 RETURNING",
		},
		{
			name: "every field",
			patch: &domain.ProductPatch{
				Title:       ptr("Icons"),
				Description: ptr("Pack"),
				Price:       ptr(decimal.RequireFromString("5")),
				Status:      ptr(domain.StatusRejected),
				CategoryID:  ptr("cat-2"),
				PreviewURLs: ptr([]string{"http://cdn/c.png"}),
				AssetKey:    ptr("products/files/v2.zip"),
			},
			wantSet: "title = $1, description = $2, price = $3::numeric, status = $4, " +
				"category_id = $5::uuid, preview_urls = $6, asset_key = $7, updated_at = NOW()",
			wantArgs: []any{
				"Icons", "Pack", "5.00", "REJECTED", "cat-2",
				[]string{"http://cdn/c.png"}, "products/files/v2.zip", testProductID,
			},
			wantWhere: "id = $8 RETURNING",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := productUpdateQuery(testProductID, tt.patch)

			set, where := setClause(t, query)
			assert.Equal(t, tt.wantSet, set)
			assert.True(t, strings.HasPrefix(where, tt.wantWhere), where)
			assert.True(t, strings.HasSuffix(query, productColumns))
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
