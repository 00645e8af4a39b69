package testutils

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/askboard/askboard/config"
	"github.com/askboard/askboard/models"
	"github.com/askboard/askboard/utils"
)

var testDBSeq int64

// SetupDB opens a unique in-memory SQLite database, migrates the full
// schema and installs it as the package-global handle for the test's
// duration.
func SetupDB(t *testing.T) *gorm.DB {
	t.Helper()

	seq := atomic.AddInt64(&testDBSeq, 1)
	dsn := fmt.Sprintf("file:askboard_%d?mode=memory&cache=shared", seq)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := gdb.AutoMigrate(&models.User{}, &models.Tag{}, &models.Post{}, &models.Comment{}, &models.Image{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	config.SetDB(gdb)
	return gdb
}

// SetupConfig installs a self-contained test configuration: a throwaway
// media dir, a static JWT secret and short token lifetimes.
func SetupConfig(t *testing.T) config.AppConfig {
	t.Helper()

	logDir := t.TempDir()
	cfg := config.AppConfig{
		AppPort:            "0",
		JWTSecret:          "test-secret",
		RateLimitPerMinute: 1000,
		AllowedOrigins:     []string{"*"},
		AccessTokenMinutes: 15,
		RefreshTokenHours:  168,
		GinMode:            "test",
		GinPath:            logDir + "/gin.log",
		MediaDir:           t.TempDir(),
		UploadMaxSizeMB:    10,
		JPEGQuality:        60,
		LogLevel:           "error",
		LogPath:            logDir + "/app.log",
		// point at a closed port so cache lookups fail fast instead of
		// reading state left over from other runs
		RedisHost: "127.0.0.1",
		RedisPort: 1,
	}
	config.Set(cfg)
	_ = utils.InitLogger(cfg)
	return cfg
}

// CreateUser inserts a user with a bcrypt-hashed password.
func CreateUser(t *testing.T, db *gorm.DB, number, username, password string) *models.User {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		Number:       number,
		Username:     username,
		PasswordHash: hash,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}
