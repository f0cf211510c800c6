// Package repository 抽奖数据仓库
package repository

import (
	"time"

	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"gorm.io/gorm"
)

// RaffleRepository 抽奖仓库
type RaffleRepository struct {
	db *gorm.DB
}

// NewRaffleRepository 创建抽奖仓库
func NewRaffleRepository(db *gorm.DB) *RaffleRepository {
	return &RaffleRepository{db: db}
}

// Create 创建抽奖
func (r *RaffleRepository) Create(raffle *models.Raffle) error {
	return r.db.Create(raffle).Error
}

// GetBySlug 根据 slug 获取抽奖
func (r *RaffleRepository) GetBySlug(slug string) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.db.Where("slug = ?", slug).First(&raffle).Error
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}

// GetByID 根据 ID 获取抽奖
func (r *RaffleRepository) GetByID(id uint) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.db.First(&raffle, id).Error
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}

// List 按创建时间倒序列出全部抽奖
func (r *RaffleRepository) List() ([]models.Raffle, error) {
	var raffles []models.Raffle
	err := r.db.Order("created_at DESC").Order("id DESC").Find(&raffles).Error
	return raffles, err
}

// ListByStatus 按状态列出抽奖，按开奖时间排序
func (r *RaffleRepository) ListByStatus(statuses ...models.RaffleStatus) ([]models.Raffle, error) {
	var raffles []models.Raffle
	err := r.db.Where("status IN ?", statuses).Order("draw_date ASC").Find(&raffles).Error
	return raffles, err
}

// UpdateStatus 条件更新状态，只有当前状态等于 from 时才会写入
func (r *RaffleRepository) UpdateStatus(id uint, from, to models.RaffleStatus) (bool, error) {
	result := r.db.Model(&models.Raffle{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CountEntries 统计确认的报名数
func (r *RaffleRepository) CountEntries(raffleID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.RaffleEntry{}).
		Where("raffle_id = ? AND status = ?", raffleID, models.EntryConfirmed).
		Count(&count).Error
	return count, err
}

// CountWinners 统计中奖人数
func (r *RaffleRepository) CountWinners(raffleID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.RaffleWinner{}).
		Where("raffle_id = ?", raffleID).
		Count(&count).Error
	return count, err
}

// CreateStreamEvent 记录开奖过程事件
func (r *RaffleRepository) CreateStreamEvent(event *models.DrawingStreamEvent) error {
	return r.db.Create(event).Error
}

// ListStreamEvents 获取开奖过程事件
func (r *RaffleRepository) ListStreamEvents(raffleID uint) ([]models.DrawingStreamEvent, error) {
	var events []models.DrawingStreamEvent
	err := r.db.Where("raffle_id = ?", raffleID).Order("id ASC").Find(&events).Error
	return events, err
}
