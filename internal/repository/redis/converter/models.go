package converter

import "time"

// ProductRedisModel — представление товара в кэше. Цена хранится строкой без потери точности.
type ProductRedisModel struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Price       string     `json:"price"`
	Status      string     `json:"status"`
	CategoryID  string     `json:"category_id"`
	UserID      string     `json:"user_id"`
	PreviewURLs []string   `json:"preview_urls"`
	AssetKey    string     `json:"asset_key"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}
