package database

import "pipal/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Product{},
		&models.Post{},
		&models.Vote{},
		&models.LiveSession{},
		&models.Order{},
		&models.OrderItem{},
		&models.Like{},
		&models.Follow{},
	}
}
