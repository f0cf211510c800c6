package repository

import (
	"time"

	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"gorm.io/gorm"
)

// EmailLogRepository 邮件日志仓库
type EmailLogRepository struct {
	db *gorm.DB
}

// NewEmailLogRepository 创建邮件日志仓库
func NewEmailLogRepository(db *gorm.DB) *EmailLogRepository {
	return &EmailLogRepository{db: db}
}

// Create 写入邮件日志
func (r *EmailLogRepository) Create(log *models.EmailLog) error {
	return r.db.Create(log).Error
}

// ListByTemplate 按模板获取日志
func (r *EmailLogRepository) ListByTemplate(template string) ([]models.EmailLog, error) {
	var logs []models.EmailLog
	err := r.db.Where("template = ?", template).Order("id ASC").Find(&logs).Error
	return logs, err
}

// WebhookEventRepository PayPal Webhook 事件仓库
type WebhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository 创建 Webhook 事件仓库
func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Create 写入事件，event_id 重复时返回唯一索引错误
func (r *WebhookEventRepository) Create(event *models.PayPalWebhookEvent) error {
	return r.db.Create(event).Error
}

// GetByEventID 根据事件 ID 获取
func (r *WebhookEventRepository) GetByEventID(eventID string) (*models.PayPalWebhookEvent, error) {
	var event models.PayPalWebhookEvent
	err := r.db.Where("event_id = ?", eventID).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// MarkProcessed 标记处理结果
func (r *WebhookEventRepository) MarkProcessed(eventID string, processErr error, at time.Time) error {
	updates := map[string]interface{}{
		"processed":    processErr == nil,
		"processed_at": at,
	}
	if processErr != nil {
		updates["error"] = processErr.Error()
	}
	return r.db.Model(&models.PayPalWebhookEvent{}).Where("event_id = ?", eventID).Updates(updates).Error
}

// TaxSettingsRepository 税费设置仓库
type TaxSettingsRepository struct {
	db *gorm.DB
}

// NewTaxSettingsRepository 创建税费设置仓库
func NewTaxSettingsRepository(db *gorm.DB) *TaxSettingsRepository {
	return &TaxSettingsRepository{db: db}
}

// Get 获取设置，不存在时返回 gorm.ErrRecordNotFound
func (r *TaxSettingsRepository) Get() (*models.TaxSettings, error) {
	var settings models.TaxSettings
	err := r.db.Order("id ASC").First(&settings).Error
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// Save 保存设置
func (r *TaxSettingsRepository) Save(settings *models.TaxSettings) error {
	return r.db.Save(settings).Error
}
