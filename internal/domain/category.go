package domain

import "time"

// Category описывает категорию товара. Категории заводятся миграцией и сервисом не меняются.
type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
