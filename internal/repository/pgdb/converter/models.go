package converter

import "time"

// ProductModel представляет запись таблицы products в PostgreSQL.
// Цена читается и пишется текстом, чтобы не терять точность NUMERIC.
type ProductModel struct {
	ID          string     `db:"id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	Price       string     `db:"price"`
	Status      string     `db:"status"`
	CategoryID  string     `db:"category_id"`
	UserID      string     `db:"user_id"`
	PreviewURLs []string   `db:"preview_urls"`
	AssetKey    string     `db:"asset_key"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
}

// CategoryModel представляет запись таблицы categories в PostgreSQL.
type CategoryModel struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID          int64      `db:"id"`
	EventID     string     `db:"event_id"`
	EventType   string     `db:"event_type"`
	ProductID   string     `db:"product_id"`
	Payload     []byte     `db:"payload"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}
