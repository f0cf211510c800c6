// Package testutil 测试辅助
package testutil

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smysle/raffle-storefront-go/internal/database"
	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB 创建迁移好的内存 sqlite 数据库
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := database.GormConfig()
	cfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)

	db, err := gorm.Open(sqlite.Open("file::memory:"), cfg)
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}

	// 单连接，保证所有语句落在同一个内存库上
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取连接池失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	return db
}

// Fixture 一个带商品的抽奖
type Fixture struct {
	Raffle  *models.Raffle
	Product *models.Product
}

// SeedUser 创建用户
func SeedUser(t *testing.T, db *gorm.DB, id string, admin bool) *models.User {
	t.Helper()
	user := &models.User{ID: id, Email: id + "@example.com", FullName: "User " + id, IsAdmin: admin}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	return user
}

// SeedRaffle 创建抽奖和关联商品
func SeedRaffle(t *testing.T, db *gorm.DB, slug string, status models.RaffleStatus, stock int) Fixture {
	t.Helper()
	now := time.Now().UTC()

	product := &models.Product{
		Name:           "Prize " + slug,
		BasePriceCents: 19999,
		StockQuantity:  stock,
		WeightOunces:   24,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("创建商品失败: %v", err)
	}

	raffle := &models.Raffle{
		Slug:                 slug,
		Name:                 "Raffle " + slug,
		Status:               status,
		TotalWinners:         2,
		RegistrationStartsAt: now.Add(-48 * time.Hour),
		RegistrationEndsAt:   now.Add(48 * time.Hour),
		DrawDate:             now.Add(72 * time.Hour),
		ProductID:            product.ID,
	}
	if err := db.Create(raffle).Error; err != nil {
		t.Fatalf("创建抽奖失败: %v", err)
	}
	return Fixture{Raffle: raffle, Product: product}
}

// SeedEntry 创建已确认的报名
func SeedEntry(t *testing.T, db *gorm.DB, raffleID uint, userID string, number int) *models.RaffleEntry {
	t.Helper()
	entry := &models.RaffleEntry{RaffleID: raffleID, UserID: userID, EntryNumber: number, Status: models.EntryConfirmed}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("创建报名失败: %v", err)
	}
	return entry
}

// SeedWinner 创建中奖记录
func SeedWinner(t *testing.T, db *gorm.DB, raffleID uint, userID string, position int, deadline time.Time) *models.RaffleWinner {
	t.Helper()
	winner := &models.RaffleWinner{
		RaffleID:         raffleID,
		UserID:           userID,
		EntryNumber:      position,
		WinnerPosition:   position,
		SelectedAt:       time.Now().UTC(),
		PurchaseDeadline: deadline.UTC(),
	}
	if err := db.Create(winner).Error; err != nil {
		t.Fatalf("创建中奖记录失败: %v", err)
	}
	return winner
}
