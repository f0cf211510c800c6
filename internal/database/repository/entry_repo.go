package repository

import (
	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"gorm.io/gorm"
)

// EntryRepository 报名仓库
type EntryRepository struct {
	db *gorm.DB
}

// NewEntryRepository 创建报名仓库
func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create 创建报名
func (r *EntryRepository) Create(entry *models.RaffleEntry) error {
	return r.db.Create(entry).Error
}

// GetByUser 获取用户在某抽奖的报名
func (r *EntryRepository) GetByUser(raffleID uint, userID string) (*models.RaffleEntry, error) {
	var entry models.RaffleEntry
	err := r.db.Where("raffle_id = ? AND user_id = ?", raffleID, userID).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// NextEntryNumber 下一个报名号
func (r *EntryRepository) NextEntryNumber(raffleID uint) (int, error) {
	var max int
	err := r.db.Model(&models.RaffleEntry{}).
		Where("raffle_id = ?", raffleID).
		Select("COALESCE(MAX(entry_number), 0)").
		Scan(&max).Error
	return max + 1, err
}

// GetByNumbers 按报名号批量获取确认的报名
func (r *EntryRepository) GetByNumbers(raffleID uint, numbers []int) ([]models.RaffleEntry, error) {
	var entries []models.RaffleEntry
	err := r.db.Where("raffle_id = ? AND entry_number IN ? AND status = ?", raffleID, numbers, models.EntryConfirmed).
		Find(&entries).Error
	return entries, err
}

// ListByRaffle 获取抽奖的所有报名
func (r *EntryRepository) ListByRaffle(raffleID uint) ([]models.RaffleEntry, error) {
	var entries []models.RaffleEntry
	err := r.db.Where("raffle_id = ?", raffleID).Order("entry_number ASC").Find(&entries).Error
	return entries, err
}
