package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"pipal/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestErrorClassification(t *testing.T) {
	pgUnique := &pgconn.PgError{Code: pgUniqueViolation}
	pgFK := &pgconn.PgError{Code: pgForeignKeyViolation}
	liteUnique := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}
	liteBusy := sqlite3.Error{Code: sqlite3.ErrBusy}

	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", pgUnique)))
	assert.True(t, isUniqueViolation(liteUnique))
	assert.False(t, isUniqueViolation(pgFK))
	assert.False(t, isUniqueViolation(nil))

	assert.True(t, isForeignKeyViolation(pgFK))
	assert.True(t, isForeignKeyViolation(gorm.ErrForeignKeyViolated))
	assert.False(t, isForeignKeyViolation(pgUnique))

	assert.True(t, isStoreUnavailable(driver.ErrBadConn))
	assert.True(t, isStoreUnavailable(context.DeadlineExceeded))
	assert.True(t, isStoreUnavailable(liteBusy))
	assert.False(t, isStoreUnavailable(errors.New("syntax error")))
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil, "Post", 1))
	assert.True(t, models.HasCode(translate(gorm.ErrRecordNotFound, "Post", 1), models.CodeNotFound))
	assert.True(t, models.HasCode(translate(driver.ErrBadConn, "Post", 1), models.CodeStoreUnavailable))
	assert.True(t, models.HasCode(translate(gorm.ErrDuplicatedKey, "Post", 1), models.CodeConflict))
	assert.True(t, models.HasCode(translate(gorm.ErrForeignKeyViolated, "Post", 1), models.CodeValidation))

	dup := models.NewDuplicateVoteError(1, models.VoteTypeGeneral)
	assert.Same(t, dup, translate(dup, "Post", 1))

	plain := errors.New("boom")
	assert.Equal(t, plain, translate(plain, "Post", 1))
}
