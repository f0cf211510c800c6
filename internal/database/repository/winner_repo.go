package repository

import (
	"time"

	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"gorm.io/gorm"
)

// WinnerRepository 中奖记录仓库
type WinnerRepository struct {
	db *gorm.DB
}

// NewWinnerRepository 创建中奖记录仓库
func NewWinnerRepository(db *gorm.DB) *WinnerRepository {
	return &WinnerRepository{db: db}
}

// Create 创建中奖记录
func (r *WinnerRepository) Create(winner *models.RaffleWinner) error {
	return r.db.Create(winner).Error
}

// GetByID 根据 ID 获取中奖记录
func (r *WinnerRepository) GetByID(id uint) (*models.RaffleWinner, error) {
	var winner models.RaffleWinner
	err := r.db.First(&winner, id).Error
	if err != nil {
		return nil, err
	}
	return &winner, nil
}

// GetByRaffleAndUser 获取用户在某抽奖的中奖记录
func (r *WinnerRepository) GetByRaffleAndUser(raffleID uint, userID string) (*models.RaffleWinner, error) {
	var winner models.RaffleWinner
	err := r.db.Where("raffle_id = ? AND user_id = ?", raffleID, userID).First(&winner).Error
	if err != nil {
		return nil, err
	}
	return &winner, nil
}

// ListByRaffle 按名次获取中奖记录
func (r *WinnerRepository) ListByRaffle(raffleID uint) ([]models.RaffleWinner, error) {
	var winners []models.RaffleWinner
	err := r.db.Where("raffle_id = ?", raffleID).Order("winner_position ASC").Find(&winners).Error
	return winners, err
}

// MarkPurchased 原子标记已购买，返回是否抢到
func (r *WinnerRepository) MarkPurchased(id uint, userID string, now time.Time) (bool, error) {
	result := r.db.Model(&models.RaffleWinner{}).
		Where("id = ? AND user_id = ? AND has_purchased = ? AND purchase_deadline >= ?", id, userID, false, now).
		Update("has_purchased", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SetOrderID 关联订单
func (r *WinnerRepository) SetOrderID(id uint, orderID uint) error {
	return r.db.Model(&models.RaffleWinner{}).
		Where("id = ?", id).
		Update("order_id", orderID).Error
}

// SetNotified 记录中奖通知时间
func (r *WinnerRepository) SetNotified(id uint, at time.Time) error {
	return r.db.Model(&models.RaffleWinner{}).Where("id = ?", id).Update("notified_at", at).Error
}

// SetReminded 记录购买提醒时间
func (r *WinnerRepository) SetReminded(id uint, at time.Time) error {
	return r.db.Model(&models.RaffleWinner{}).Where("id = ?", id).Update("reminded_at", at).Error
}

// SetExpiredNotified 记录过期通知时间
func (r *WinnerRepository) SetExpiredNotified(id uint, at time.Time) error {
	return r.db.Model(&models.RaffleWinner{}).Where("id = ?", id).Update("expired_notified_at", at).Error
}

// ListDueForReminder 截止时间在 (now, now+lead] 内且尚未提醒的未购买中奖者
func (r *WinnerRepository) ListDueForReminder(now time.Time, lead time.Duration) ([]models.RaffleWinner, error) {
	var winners []models.RaffleWinner
	err := r.db.Where("has_purchased = ? AND reminded_at IS NULL AND purchase_deadline > ? AND purchase_deadline <= ?",
		false, now, now.Add(lead)).
		Find(&winners).Error
	return winners, err
}

// ListExpiredUnnotified 已过期且未发过期通知的中奖者
func (r *WinnerRepository) ListExpiredUnnotified(now time.Time) ([]models.RaffleWinner, error) {
	var winners []models.RaffleWinner
	err := r.db.Where("has_purchased = ? AND expired_notified_at IS NULL AND purchase_deadline < ?", false, now).
		Find(&winners).Error
	return winners, err
}
