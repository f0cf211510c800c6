package repository

import (
	"time"

	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"gorm.io/gorm"
)

// OrderRepository 订单仓库
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create 创建订单及明细
func (r *OrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByID 根据 ID 获取订单及明细
func (r *OrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByPayPalOrderID 根据 PayPal 订单号获取订单
func (r *OrderRepository) GetByPayPalOrderID(paypalOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("paypal_order_id = ?", paypalOrderID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CountByWinner 统计某中奖者的订单数
func (r *OrderRepository) CountByWinner(winnerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).Where("raffle_winner_id = ?", winnerID).Count(&count).Error
	return count, err
}

// SetPayPalOrder 关联 PayPal 订单
func (r *OrderRepository) SetPayPalOrder(id uint, paypalOrderID, paypalStatus string) error {
	return r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"paypal_order_id": paypalOrderID,
			"paypal_status":   paypalStatus,
		}).Error
}

// MarkPaid 记录扣款成功
func (r *OrderRepository) MarkPaid(id uint, captureID, payerID, paypalStatus string, at time.Time) error {
	return r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            models.OrderPaid,
			"paypal_capture_id": captureID,
			"paypal_payer_id":   payerID,
			"paypal_status":     paypalStatus,
			"paid_at":           at,
		}).Error
}

// UpdateStatusByPayPalOrderID 按 PayPal 订单号更新状态，只更新当前处于 from 中的订单
func (r *OrderRepository) UpdateStatusByPayPalOrderID(paypalOrderID string, status models.OrderStatus, paypalStatus string, from ...models.OrderStatus) (bool, error) {
	return r.updateStatus("paypal_order_id = ?", paypalOrderID, status, paypalStatus, from)
}

// UpdateStatusByCaptureID 按 PayPal 扣款号更新状态，只更新当前处于 from 中的订单
func (r *OrderRepository) UpdateStatusByCaptureID(captureID string, status models.OrderStatus, paypalStatus string, from ...models.OrderStatus) (bool, error) {
	return r.updateStatus("paypal_capture_id = ?", captureID, status, paypalStatus, from)
}

func (r *OrderRepository) updateStatus(where string, key string, status models.OrderStatus, paypalStatus string, from []models.OrderStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Order{}).
		Where(where, key).
		Where("status IN ?", from).
		Updates(map[string]interface{}{
			"status":        status,
			"paypal_status": paypalStatus,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateAmounts 更新运费、税费和总价
func (r *OrderRepository) UpdateAmounts(id uint, shippingCents, taxCents, totalCents int64) error {
	return r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"shipping_cents": shippingCents,
			"tax_cents":      taxCents,
			"total_cents":    totalCents,
		}).Error
}

// CompleteByPayPalOrderID Webhook 确认扣款完成，已取消或已退款的订单不受影响
func (r *OrderRepository) CompleteByPayPalOrderID(paypalOrderID, captureID string) (bool, error) {
	updates := map[string]interface{}{
		"status":        models.OrderCompleted,
		"paypal_status": "COMPLETED",
	}
	if captureID != "" {
		updates["paypal_capture_id"] = captureID
	}
	result := r.db.Model(&models.Order{}).
		Where("paypal_order_id = ?", paypalOrderID).
		Where("status IN ?", []models.OrderStatus{models.OrderPending, models.OrderApproved, models.OrderPaid, models.OrderCompleted}).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
