package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/pozytywnie/facebook-auth/app/models"
	"github.com/pozytywnie/facebook-auth/internal/pkg/env"
)

// setupTestDB connects to the test database or skips the test when no MySQL
// endpoint is reachable.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", "root"),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", "facebook_auth_test"),
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Skipf("Skipping MySQL-dependent test: open failed (%v)", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Skipf("Skipping MySQL-dependent test: no sql handle (%v)", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		t.Skipf("Skipping MySQL-dependent test: no reachable MySQL endpoint (%v)", err)
	}

	require.NoError(t, db.AutoMigrate(&models.UserToken{}))
	require.NoError(t, db.Exec("DELETE FROM user_tokens").Error)
	return db
}

func TestTokenRepository_InsertSelectInvalidate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)

	exp := time.Date(1989, 2, 25, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.InsertToken("123", "abc123", &exp))

	got, err := repo.GetAccessToken("123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.Token)

	require.NoError(t, repo.InvalidateToken("abc123"))

	_, err = repo.GetAccessToken("123")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenRepository_InsertTokenUpsertsByValue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)

	first := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, repo.InsertToken("100", "tok", &first))

	second := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, repo.InsertToken("100", "tok", &second))

	var count int64
	require.NoError(t, db.Model(&models.UserToken{}).Where("token = ?", "tok").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var row models.UserToken
	require.NoError(t, db.Where("token = ?", "tok").First(&row).Error)
	require.NotNil(t, row.ExpirationDate)
	assert.Equal(t, second, row.ExpirationDate.UTC())

	// a null expiry overwrites too
	require.NoError(t, repo.InsertToken("100", "tok", nil))
	require.NoError(t, db.Where("token = ?", "tok").First(&row).Error)
	assert.Nil(t, row.ExpirationDate)
}

func TestTokenRepository_InsertTokenKeepsOriginalOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)

	require.NoError(t, repo.InsertToken("100", "tok", nil))

	// same credential asserted for a different owner: logged, not reassigned
	exp := time.Now().Add(time.Hour).UTC()
	require.NoError(t, repo.InsertToken("999", "tok", &exp))

	var row models.UserToken
	require.NoError(t, db.Where("token = ?", "tok").First(&row).Error)
	assert.Equal(t, "100", row.ProviderUserID)
}

func TestTokenRepository_InvalidateMissingTokenIsNoop(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)

	assert.NoError(t, repo.InvalidateToken("never-stored"))
}

func TestTokenRepository_InvalidateOthers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)

	exp := time.Now().Add(time.Hour).UTC()
	require.NoError(t, repo.InsertToken("100", "keep", &exp))
	require.NoError(t, repo.InsertToken("100", "drop-a", &exp))
	require.NoError(t, repo.InsertToken("100", "drop-b", &exp))

	require.NoError(t, repo.InvalidateOthers("100", "keep"))

	active, err := repo.ActiveTokens("100")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "keep", active[0].Token)
}

func TestTokenRepository_AfterInsertHookFiresWithStoredOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)

	var fired []string
	repo.AfterInsert(func(providerUserID string) {
		fired = append(fired, providerUserID)
	})

	require.NoError(t, repo.InsertToken("100", "tok", nil))
	// re-insert under a disputed owner still reports the stored one
	require.NoError(t, repo.InsertToken("999", "tok", nil))

	assert.Equal(t, []string{"100", "100"}, fired)
}

func TestTokenRepository_DistinctProviderUserIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepository(db)

	require.NoError(t, repo.InsertToken("100", "tok-a", nil))
	require.NoError(t, repo.InsertToken("100", "tok-b", nil))
	require.NoError(t, repo.InsertToken("200", "tok-c", nil))

	ids, err := repo.DistinctProviderUserIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "200"}, ids)
}
