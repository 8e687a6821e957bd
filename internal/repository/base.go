package repository

import (
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

// isPostgres reports whether db talks to Postgres. Row locks and some SQL only apply there.
func isPostgres(db *gorm.DB) bool {
	return db.Name() == "postgres"
}
