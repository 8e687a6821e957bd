package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"pipal/internal/database"
	"pipal/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens a file-backed SQLite database. Immediate transactions make
// concurrent writers queue on the busy timeout instead of failing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipal.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", path)

	db, err := database.Open(sqlite.Open(dsn))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func createUser(t *testing.T, db *gorm.DB, role models.UserRole) *models.User {
	t.Helper()
	name := "u_" + uuid.NewString()[:8]
	user := &models.User{
		Email:    name + "@example.com",
		Username: name,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func createPost(t *testing.T, db *gorm.DB, owner *models.User) *models.Post {
	t.Helper()
	post := &models.Post{
		UserID:   owner.ID,
		Caption:  "Spring collection drop",
		Type:     models.PostTypeProduct,
		IsActive: true,
	}
	require.NoError(t, NewPostRepository(db).Create(context.Background(), post))
	return post
}

// recountLiveVotes recomputes a post's live_session tally from the ledger.
func recountLiveVotes(t *testing.T, db *gorm.DB, postID uuid.UUID) (ledger int64, counter int) {
	t.Helper()
	require.NoError(t, db.Model(&models.Vote{}).
		Where("post_id = ? AND vote_type = ?", postID, models.VoteTypeLiveSession).
		Count(&ledger).Error)
	var post models.Post
	require.NoError(t, db.First(&post, "id = ?", postID).Error)
	return ledger, post.VotesCount
}
