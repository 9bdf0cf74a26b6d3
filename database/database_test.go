package database

import (
	"testing"

	"genealogy/config"
	"genealogy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite", ""} {
		d, err := Dialector(&config.DatabaseConfig{Driver: driver, DBName: "genealogy"})
		require.NoError(t, err, driver)
		assert.NotNil(t, d)
	}

	_, err := Dialector(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMigrateAndSeed(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))
	require.NoError(t, Seed(db, &config.SuperuserConfig{Username: "admin", Password: "Secret123"}))

	var admin models.Account
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	assert.True(t, admin.IsSuperuser)
	assert.True(t, admin.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("Secret123")))

	var catCount int64
	db.Model(&models.ExpenseCategory{}).Count(&catCount)
	assert.Equal(t, int64(len(models.GetDefaultExpenseCategories())), catCount)

	// 再次执行不重复写入
	require.NoError(t, Seed(db, &config.SuperuserConfig{Username: "other", Password: "Secret123"}))
	var accountCount int64
	db.Model(&models.Account{}).Count(&accountCount)
	assert.Equal(t, int64(1), accountCount)
}

func TestSeed_SkipsSuperuserWithoutPassword(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))
	require.NoError(t, Seed(db, &config.SuperuserConfig{Username: "admin"}))

	var accountCount int64
	db.Model(&models.Account{}).Count(&accountCount)
	assert.Equal(t, int64(0), accountCount)
}
