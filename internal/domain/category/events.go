package category

import "time"

const (
	EventCategoryCreated = "CategoryCreated"
	EventCategoryDeleted = "CategoryDeleted"
)

type CategoryCreated struct {
	CategoryID string    `json:"category_id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	CreatedAt  time.Time `json:"created_at"`
}

type CategoryDeleted struct {
	CategoryID string    `json:"category_id"`
	DeletedAt  time.Time `json:"deleted_at"`
}
